// internal/models/order.go
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrAlreadyDelivered = errors.New("this order has already been delivered")

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
)

// Next returns the status that follows s. Delivered is terminal.
func (s OrderStatus) Next() (OrderStatus, error) {
	switch s {
	case OrderStatusProcessing:
		return OrderStatusShipped, nil
	case OrderStatusShipped:
		return OrderStatusDelivered, nil
	case OrderStatusDelivered:
		return "", ErrAlreadyDelivered
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

type ShippingInfo struct {
	Address string `json:"address" gorm:"size:255;not null" validate:"required"`
	City    string `json:"city" gorm:"size:100;not null" validate:"required"`
	Country string `json:"country" gorm:"size:100;not null" validate:"required"`
	PinCode string `json:"pin_code,omitempty" gorm:"size:20"`
	Phone   string `json:"phone" gorm:"size:20;not null" validate:"required,phone"`
}

type PaymentInfo struct {
	ExternalID string `json:"id,omitempty" gorm:"size:255"`
	Status     string `json:"status,omitempty" gorm:"size:50"`
}

// OrderItem is a value snapshot of the product at placement time. It never follows
// later edits to the live product.
type OrderItem struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID       `json:"-" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `json:"product" gorm:"type:uuid;not null;index"`
	Name      string          `json:"name" gorm:"size:255;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Image     string          `json:"image" gorm:"size:1024"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID       `json:"user" gorm:"type:uuid;not null;index"`
	ShippingInfo    ShippingInfo    `json:"shipping_info" gorm:"embedded;embeddedPrefix:shipping_"`
	OrderItems      []OrderItem     `json:"order_items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentMethod   PaymentMethod   `json:"payment_method" gorm:"type:varchar(10);not null;default:'COD'"`
	PaymentInfo     PaymentInfo     `json:"payment_info" gorm:"embedded;embeddedPrefix:payment_"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	ItemsPrice      decimal.Decimal `json:"items_price" gorm:"type:decimal(12,2);not null"`
	Tax             decimal.Decimal `json:"tax" gorm:"type:decimal(12,2);not null"`
	ShippingCharges decimal.Decimal `json:"shipping_charges" gorm:"type:decimal(12,2);not null"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	OrderStatus     OrderStatus     `json:"order_status" gorm:"type:varchar(20);not null;default:'Processing';index"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	IsNewOrder      bool            `json:"is_new_order" gorm:"not null;default:true;index"`
	CreatedAt       time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Advance moves the order one step forward. Entering Delivered stamps DeliveredAt.
func (o *Order) Advance(now time.Time) error {
	next, err := o.OrderStatus.Next()
	if err != nil {
		return err
	}

	o.OrderStatus = next
	if next == OrderStatusDelivered {
		o.DeliveredAt = &now
	}
	return nil
}

// ItemsTotal sums the snapshot line totals.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.OrderItems {
		total = total.Add(item.LineTotal())
	}
	return total
}
