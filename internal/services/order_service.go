// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/nepshop-backend/internal/database"
	"github.com/javajoker/nepshop-backend/internal/metrics"
	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

// maxAdvanceAttempts bounds the compare-and-set retries when another request moves the
// same order between our read and our write.
const maxAdvanceAttempts = 3

// paymentSucceeded is the processor status that marks an online order as paid.
const paymentSucceeded = "succeeded"

type OrderService struct {
	db                  *gorm.DB
	inventoryService    *InventoryService
	notificationService *NotificationService
	tasks               *BackgroundTasks
	metrics             *metrics.Metrics
	now                 func() time.Time
}

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=1"`
}

type CreateOrderRequest struct {
	ShippingInfo    models.ShippingInfo  `json:"shipping_info"`
	OrderItems      []OrderItemRequest   `json:"order_items" validate:"required,min=1,dive"`
	PaymentMethod   models.PaymentMethod `json:"payment_method"`
	PaymentInfo     models.PaymentInfo   `json:"payment_info"`
	ItemsPrice      decimal.Decimal      `json:"items_price"`
	Tax             decimal.Decimal      `json:"tax"`
	ShippingCharges decimal.Decimal      `json:"shipping_charges"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
}

type AdminOrderList struct {
	Orders      []models.Order  `json:"orders"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func NewOrderService(db *gorm.DB, inventoryService *InventoryService, notificationService *NotificationService, tasks *BackgroundTasks, m *metrics.Metrics) *OrderService {
	if tasks == nil {
		tasks = NewBackgroundTasks()
	}
	return &OrderService{
		db:                  db,
		inventoryService:    inventoryService,
		notificationService: notificationService,
		tasks:               tasks,
		metrics:             m,
		now:                 time.Now,
	}
}

func (s *OrderService) validateCreate(req *CreateOrderRequest) error {
	if len(req.OrderItems) == 0 {
		return utils.NewValidationError("Order must contain at least one item")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ValidationErrorFrom(err)
	}

	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentMethodCOD
	}
	if !req.PaymentMethod.Valid() {
		return utils.NewValidationError("Payment method must be COD or ONLINE")
	}
	if req.PaymentMethod == models.PaymentMethodOnline && strings.TrimSpace(req.PaymentInfo.ExternalID) == "" {
		return utils.NewValidationError("Payment info is required for online payment")
	}

	if !req.ItemsPrice.IsPositive() {
		return utils.NewValidationError("Items price must be greater than zero")
	}
	if !req.TotalAmount.IsPositive() {
		return utils.NewValidationError("Total amount must be greater than zero")
	}
	if req.Tax.IsNegative() || req.ShippingCharges.IsNegative() {
		return utils.NewValidationError("Tax and shipping charges must not be negative")
	}
	if !req.ItemsPrice.Add(req.Tax).Add(req.ShippingCharges).Equal(req.TotalAmount) {
		return utils.NewValidationError("Total amount must equal items price plus tax and shipping charges")
	}

	return nil
}

// CreateOrder persists the order and takes its items out of stock in one transaction.
// Item names, prices and images are captured from the live products, never from the
// request.
func (s *OrderService) CreateOrder(ctx context.Context, identity models.Identity, req *CreateOrderRequest) (*models.Order, error) {
	if err := s.validateCreate(req); err != nil {
		s.metrics.OrderFailed(string(utils.KindValidation))
		return nil, err
	}

	order := &models.Order{
		UserID:          identity.UserID,
		ShippingInfo:    req.ShippingInfo,
		PaymentMethod:   req.PaymentMethod,
		PaymentInfo:     req.PaymentInfo,
		ItemsPrice:      req.ItemsPrice,
		Tax:             req.Tax,
		ShippingCharges: req.ShippingCharges,
		TotalAmount:     req.TotalAmount,
		OrderStatus:     models.OrderStatusProcessing,
		IsNewOrder:      true,
	}
	if order.PaymentMethod == models.PaymentMethodOnline && strings.EqualFold(order.PaymentInfo.Status, paymentSucceeded) {
		paidAt := s.now()
		order.PaidAt = &paidAt
	}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		lines := make([]StockLine, 0, len(req.OrderItems))
		for _, item := range req.OrderItems {
			var product models.Product
			err := tx.Preload("Images", func(db *gorm.DB) *gorm.DB {
				return db.Order("position ASC")
			}).Where("id = ?", item.ProductID).Take(&product).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewNotFoundError(fmt.Sprintf("Product %s", item.ProductID))
			}
			if err != nil {
				return fmt.Errorf("failed to load product: %w", err)
			}

			order.OrderItems = append(order.OrderItems, models.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  item.Quantity,
				Image:     product.PrimaryImageURL(),
			})
			lines = append(lines, StockLine{ProductID: product.ID, Quantity: item.Quantity})
		}

		if itemsTotal := order.ItemsTotal(); !itemsTotal.Equal(order.ItemsPrice) {
			return utils.NewValidationError("Items price %s does not match current product prices (%s)",
				order.ItemsPrice.StringFixed(2), itemsTotal.StringFixed(2))
		}

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		return s.inventoryService.DecrementItems(tx, lines)
	})
	if err != nil {
		s.metrics.OrderFailed(string(utils.KindOf(err)))
		return nil, err
	}

	s.metrics.OrderPlaced(string(order.PaymentMethod))
	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"items":    len(order.OrderItems),
		"total":    order.TotalAmount.StringFixed(2),
	}).Info("Order placed")

	if s.notificationService != nil {
		placed := *order
		s.tasks.Go("order_confirmation", func() { s.sendOrderConfirmation(placed) })
	}

	return order, nil
}

func (s *OrderService) sendOrderConfirmation(order models.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", order.UserID).Take(&user).Error; err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Warn("Failed to load order owner for confirmation")
		return
	}
	s.notificationService.SendOrderConfirmation(ctx, &user, &order)
}

// AdvanceStatus moves the order one step along Processing, Shipped, Delivered. The write
// only lands if the status is still the one that was read, so two concurrent calls can
// never skip a step.
func (s *OrderService) AdvanceStatus(ctx context.Context, orderID uuid.UUID) (models.OrderStatus, error) {
	db := s.db.WithContext(ctx)

	for attempt := 0; attempt < maxAdvanceAttempts; attempt++ {
		var order models.Order
		err := db.Select("id", "order_status", "created_at").Where("id = ?", orderID).Take(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", utils.NewNotFoundError("Order")
		}
		if err != nil {
			return "", fmt.Errorf("failed to load order: %w", err)
		}

		current := order.OrderStatus
		if err := order.Advance(s.now()); err != nil {
			if errors.Is(err, models.ErrAlreadyDelivered) {
				return "", utils.NewAlreadyDeliveredError(err)
			}
			return "", fmt.Errorf("failed to advance order: %w", err)
		}

		updates := map[string]interface{}{"order_status": order.OrderStatus}
		if order.DeliveredAt != nil {
			updates["delivered_at"] = *order.DeliveredAt
		}

		result := db.Model(&models.Order{}).
			Where("id = ? AND order_status = ?", orderID, current).
			Updates(updates)
		if result.Error != nil {
			return "", fmt.Errorf("failed to update order status: %w", result.Error)
		}
		if result.RowsAffected == 1 {
			s.metrics.OrderAdvanced(string(order.OrderStatus))
			return order.OrderStatus, nil
		}
	}

	return "", utils.NewConflictError("Order status changed concurrently, please retry")
}

func (s *OrderService) ListMyOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("OrderItems").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) ListAllOrders(ctx context.Context) (*AdminOrderList, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("OrderItems").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	total := decimal.Zero
	for _, order := range orders {
		total = total.Add(order.TotalAmount)
	}

	return &AdminOrderList{Orders: orders, TotalAmount: total}, nil
}

func (s *OrderService) GetOrder(ctx context.Context, identity models.Identity, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("OrderItems").
		Where("id = ?", orderID).
		Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("Order")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if !identity.IsAdmin() && order.UserID != identity.UserID {
		return nil, utils.NewForbiddenError("You can only view your own orders")
	}
	return &order, nil
}
