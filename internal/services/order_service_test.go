// internal/services/order_service_test.go
package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/services"
	"github.com/javajoker/nepshop-backend/internal/testutil"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

type OrderServiceTestSuite struct {
	suite.Suite
	ctx          context.Context
	db           *gorm.DB
	mailer       *testutil.Mailer
	tasks        *services.BackgroundTasks
	inventory    *services.InventoryService
	orderService *services.OrderService
	buyer        models.Identity
	admin        models.Identity
	kettle       *models.Product
}

func (suite *OrderServiceTestSuite) SetupTest() {
	cfg := testutil.Config()
	suite.ctx = context.Background()
	suite.db = testutil.NewDB(suite.T(), cfg)
	suite.mailer = &testutil.Mailer{}
	suite.tasks = services.NewBackgroundTasks()

	notifications := services.NewNotificationService(suite.mailer, cfg)
	suite.inventory = services.NewInventoryService(suite.db, nil)
	suite.orderService = services.NewOrderService(suite.db, suite.inventory, notifications, suite.tasks, nil)

	suite.buyer = testutil.CreateUser(suite.T(), suite.db, "buyer@nepshop.test", models.RoleUser).Identity()
	suite.admin = testutil.CreateUser(suite.T(), suite.db, "admin@nepshop.test", models.RoleAdmin).Identity()
	suite.kettle = testutil.CreateProduct(suite.T(), suite.db, "Kettle", "10.50", 5)
}

func (suite *OrderServiceTestSuite) orderRequest(items ...services.OrderItemRequest) *services.CreateOrderRequest {
	total := decimal.Zero
	for _, item := range items {
		var product models.Product
		suite.Require().NoError(suite.db.Where("id = ?", item.ProductID).Take(&product).Error)
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return &services.CreateOrderRequest{
		ShippingInfo: models.ShippingInfo{
			Address: "Thamel",
			City:    "Kathmandu",
			Country: "Nepal",
			Phone:   "9800000000",
		},
		OrderItems:      items,
		ItemsPrice:      total,
		Tax:             decimal.NewFromInt(2),
		ShippingCharges: decimal.Zero,
		TotalAmount:     total.Add(decimal.NewFromInt(2)),
	}
}

func (suite *OrderServiceTestSuite) stockOf(id uuid.UUID) int {
	stock, err := suite.inventory.Stock(suite.ctx, id)
	suite.Require().NoError(err)
	return stock
}

func (suite *OrderServiceTestSuite) countOrders() int64 {
	var count int64
	suite.Require().NoError(suite.db.Model(&models.Order{}).Count(&count).Error)
	return count
}

func (suite *OrderServiceTestSuite) TestCreateOrderSnapshotsProducts() {
	req := suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 2})

	order, err := suite.orderService.CreateOrder(suite.ctx, suite.buyer, req)
	suite.Require().NoError(err)

	suite.Equal(models.OrderStatusProcessing, order.OrderStatus)
	suite.Equal(models.PaymentMethodCOD, order.PaymentMethod)
	suite.True(order.IsNewOrder)
	suite.Nil(order.PaidAt)
	suite.Require().Len(order.OrderItems, 1)
	suite.Equal("Kettle", order.OrderItems[0].Name)
	suite.True(decimal.RequireFromString("10.50").Equal(order.OrderItems[0].Price))
	suite.Equal(suite.kettle.PrimaryImageURL(), order.OrderItems[0].Image)
	suite.Equal(3, suite.stockOf(suite.kettle.ID))

	// Later catalog edits do not reach the placed order
	suite.Require().NoError(suite.db.Model(&models.Product{}).Where("id = ?", suite.kettle.ID).
		Updates(map[string]interface{}{"name": "Renamed", "price": decimal.NewFromInt(99)}).Error)

	stored, err := suite.orderService.GetOrder(suite.ctx, suite.buyer, order.ID)
	suite.Require().NoError(err)
	suite.Equal("Kettle", stored.OrderItems[0].Name)
	suite.True(decimal.RequireFromString("10.50").Equal(stored.OrderItems[0].Price))
}

func (suite *OrderServiceTestSuite) TestCreateOrderSendsConfirmation() {
	req := suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 1})

	_, err := suite.orderService.CreateOrder(suite.ctx, suite.buyer, req)
	suite.Require().NoError(err)

	ctx, cancel := context.WithTimeout(suite.ctx, 2*time.Second)
	defer cancel()
	suite.Require().NoError(suite.tasks.Wait(ctx))
	suite.Require().Len(suite.mailer.Messages(), 1)
	suite.Equal("buyer@nepshop.test", suite.mailer.Messages()[0].To)

	// Once shutdown has started, orders still go through but no mail is queued
	_, err = suite.orderService.CreateOrder(suite.ctx, suite.buyer, req)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.tasks.Wait(ctx))
	suite.Len(suite.mailer.Messages(), 1)
}

func (suite *OrderServiceTestSuite) TestCreateOrderInsufficientStockWritesNothing() {
	req := suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 6})

	_, err := suite.orderService.CreateOrder(suite.ctx, suite.buyer, req)
	suite.Require().Error(err)
	suite.Equal(utils.KindStock, utils.KindOf(err))
	suite.Equal(int64(0), suite.countOrders())
	suite.Equal(5, suite.stockOf(suite.kettle.ID))
}

func (suite *OrderServiceTestSuite) TestConcurrentOrdersNeverOversell() {
	req := suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 3})

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = suite.orderService.CreateOrder(suite.ctx, suite.buyer, req)
		}(i)
	}
	wg.Wait()

	placed, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			placed++
		case utils.KindOf(err) == utils.KindStock:
			rejected++
		default:
			suite.Failf("unexpected error", "%v", err)
		}
	}
	suite.Equal(1, placed)
	suite.Equal(1, rejected)
	suite.Equal(2, suite.stockOf(suite.kettle.ID))
	suite.Equal(int64(1), suite.countOrders())
}

func (suite *OrderServiceTestSuite) TestCreateOrderNoPartialDecrement() {
	scarce := testutil.CreateProduct(suite.T(), suite.db, "Saucer", "3.00", 1)
	req := suite.orderRequest(
		services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 2},
		services.OrderItemRequest{ProductID: scarce.ID, Quantity: 2},
	)

	_, err := suite.orderService.CreateOrder(suite.ctx, suite.buyer, req)
	suite.Equal(utils.KindStock, utils.KindOf(err))
	suite.Equal(5, suite.stockOf(suite.kettle.ID))
	suite.Equal(1, suite.stockOf(scarce.ID))
	suite.Equal(int64(0), suite.countOrders())
}

func (suite *OrderServiceTestSuite) TestCreateOrderRejectsBadRequests() {
	unknown := suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 1})
	unknown.OrderItems[0].ProductID = uuid.New()

	wrongPrice := suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 1})
	wrongPrice.ItemsPrice = decimal.NewFromInt(1)
	wrongPrice.TotalAmount = decimal.NewFromInt(3)

	wrongTotal := suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 1})
	wrongTotal.TotalAmount = decimal.NewFromInt(1000)

	onlineUnpaid := suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 1})
	onlineUnpaid.PaymentMethod = models.PaymentMethodOnline

	badPhone := suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 1})
	badPhone.ShippingInfo.Phone = "call me"

	zeroQuantity := suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 1})
	zeroQuantity.OrderItems[0].Quantity = 0

	cases := map[string]struct {
		req  *services.CreateOrderRequest
		kind utils.ErrorKind
	}{
		"no items":      {&services.CreateOrderRequest{}, utils.KindValidation},
		"unknown":       {unknown, utils.KindNotFound},
		"wrong price":   {wrongPrice, utils.KindValidation},
		"wrong total":   {wrongTotal, utils.KindValidation},
		"online unpaid": {onlineUnpaid, utils.KindValidation},
		"bad phone":     {badPhone, utils.KindValidation},
		"zero quantity": {zeroQuantity, utils.KindValidation},
	}
	for name, tc := range cases {
		_, err := suite.orderService.CreateOrder(suite.ctx, suite.buyer, tc.req)
		suite.Equal(tc.kind, utils.KindOf(err), name)
	}

	suite.Equal(int64(0), suite.countOrders())
	suite.Equal(5, suite.stockOf(suite.kettle.ID))
}

func (suite *OrderServiceTestSuite) TestCreateOnlineOrderMarksPaid() {
	req := suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 1})
	req.PaymentMethod = models.PaymentMethodOnline
	req.PaymentInfo = models.PaymentInfo{ExternalID: "pi_123", Status: "succeeded"}

	order, err := suite.orderService.CreateOrder(suite.ctx, suite.buyer, req)
	suite.Require().NoError(err)
	suite.NotNil(order.PaidAt)
	suite.Equal("pi_123", order.PaymentInfo.ExternalID)
}

func (suite *OrderServiceTestSuite) TestAdvanceStatusMovesForwardOnly() {
	order, err := suite.orderService.CreateOrder(suite.ctx, suite.buyer,
		suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 1}))
	suite.Require().NoError(err)

	status, err := suite.orderService.AdvanceStatus(suite.ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusShipped, status)

	status, err = suite.orderService.AdvanceStatus(suite.ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusDelivered, status)

	stored, err := suite.orderService.GetOrder(suite.ctx, suite.admin, order.ID)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusDelivered, stored.OrderStatus)
	suite.NotNil(stored.DeliveredAt)

	_, err = suite.orderService.AdvanceStatus(suite.ctx, order.ID)
	suite.Equal(utils.KindAlreadyDelivered, utils.KindOf(err))

	_, err = suite.orderService.AdvanceStatus(suite.ctx, uuid.New())
	suite.Equal(utils.KindNotFound, utils.KindOf(err))
}

func (suite *OrderServiceTestSuite) placeOrder() *models.Order {
	order, err := suite.orderService.CreateOrder(suite.ctx, suite.buyer,
		suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 1}))
	suite.Require().NoError(err)
	return order
}

func (suite *OrderServiceTestSuite) storedOrder(id uuid.UUID) models.Order {
	var order models.Order
	suite.Require().NoError(suite.db.Where("id = ?", id).Take(&order).Error)
	return order
}

// rewriteStatusBeforeWrites sets the order's status to the next scripted value right
// before each status write, as a competing admin request would.
func (suite *OrderServiceTestSuite) rewriteStatusBeforeWrites(orderID uuid.UUID, script ...models.OrderStatus) {
	calls := 0
	err := suite.db.Callback().Update().Before("gorm:update").Register("test:rewrite_status", func(tx *gorm.DB) {
		if tx.Statement.Table != "orders" || calls >= len(script) {
			return
		}
		status := script[calls]
		calls++
		if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"UPDATE orders SET order_status = ? WHERE id = ?", string(status), orderID.String()); err != nil {
			tx.AddError(err)
		}
	})
	suite.Require().NoError(err)
}

func (suite *OrderServiceTestSuite) TestAdvanceStatusRetriesLostRace() {
	order := suite.placeOrder()
	suite.rewriteStatusBeforeWrites(order.ID, models.OrderStatusShipped)

	status, err := suite.orderService.AdvanceStatus(suite.ctx, order.ID)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusDelivered, status)

	stored := suite.storedOrder(order.ID)
	suite.Equal(models.OrderStatusDelivered, stored.OrderStatus)
	suite.Require().NotNil(stored.DeliveredAt)
	suite.False(stored.DeliveredAt.Before(stored.CreatedAt))
}

func (suite *OrderServiceTestSuite) TestAdvanceStatusGivesUpAfterRepeatedRaces() {
	order := suite.placeOrder()
	suite.rewriteStatusBeforeWrites(order.ID,
		models.OrderStatusShipped, models.OrderStatusProcessing, models.OrderStatusShipped)

	_, err := suite.orderService.AdvanceStatus(suite.ctx, order.ID)
	suite.Equal(utils.KindConflict, utils.KindOf(err))

	stored := suite.storedOrder(order.ID)
	suite.Equal(models.OrderStatusShipped, stored.OrderStatus)
	suite.Nil(stored.DeliveredAt)
}

func (suite *OrderServiceTestSuite) TestConcurrentAdvancesNeverSkipAState() {
	order := suite.placeOrder()

	statuses := make([]models.OrderStatus, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i], errs[i] = suite.orderService.AdvanceStatus(suite.ctx, order.ID)
		}(i)
	}
	wg.Wait()

	suite.Require().NoError(errs[0])
	suite.Require().NoError(errs[1])
	suite.ElementsMatch([]models.OrderStatus{models.OrderStatusShipped, models.OrderStatusDelivered}, statuses)

	stored := suite.storedOrder(order.ID)
	suite.Equal(models.OrderStatusDelivered, stored.OrderStatus)
	suite.NotNil(stored.DeliveredAt)

	_, err := suite.orderService.AdvanceStatus(suite.ctx, order.ID)
	suite.Equal(utils.KindAlreadyDelivered, utils.KindOf(err))
}

func (suite *OrderServiceTestSuite) TestOrderVisibility() {
	order, err := suite.orderService.CreateOrder(suite.ctx, suite.buyer,
		suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 1}))
	suite.Require().NoError(err)

	stranger := testutil.CreateUser(suite.T(), suite.db, "stranger@nepshop.test", models.RoleUser).Identity()
	_, err = suite.orderService.GetOrder(suite.ctx, stranger, order.ID)
	suite.Equal(utils.KindForbidden, utils.KindOf(err))

	mine, err := suite.orderService.ListMyOrders(suite.ctx, suite.buyer.UserID)
	suite.Require().NoError(err)
	suite.Len(mine, 1)

	theirs, err := suite.orderService.ListMyOrders(suite.ctx, stranger.UserID)
	suite.Require().NoError(err)
	suite.Empty(theirs)
}

func (suite *OrderServiceTestSuite) TestListAllOrdersSumsTotals() {
	for i := 0; i < 2; i++ {
		_, err := suite.orderService.CreateOrder(suite.ctx, suite.buyer,
			suite.orderRequest(services.OrderItemRequest{ProductID: suite.kettle.ID, Quantity: 1}))
		suite.Require().NoError(err)
	}

	list, err := suite.orderService.ListAllOrders(suite.ctx)
	suite.Require().NoError(err)
	suite.Len(list.Orders, 2)
	suite.True(decimal.RequireFromString("25.00").Equal(list.TotalAmount), list.TotalAmount.String())
}

func TestOrderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}
