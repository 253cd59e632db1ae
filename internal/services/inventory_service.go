// internal/services/inventory_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/nepshop-backend/internal/metrics"
	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

// InventoryService owns stock counts. Every decrement is a single conditional update so
// concurrent callers can never drive stock below zero.
type InventoryService struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// StockLine is one product quantity to take out of stock.
type StockLine struct {
	ProductID uuid.UUID
	Quantity  int
}

func NewInventoryService(db *gorm.DB, m *metrics.Metrics) *InventoryService {
	return &InventoryService{db: db, metrics: m}
}

func (s *InventoryService) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	return s.decrement(s.db.WithContext(ctx), productID, quantity)
}

// DecrementItems takes every line out of stock using tx. Lines are applied in ascending
// product id order and quantities for the same product are merged. The first failure is
// returned and the caller is expected to roll tx back.
func (s *InventoryService) DecrementItems(tx *gorm.DB, lines []StockLine) error {
	merged := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return utils.NewValidationError("Quantity must be at least 1")
		}
		merged[line.ProductID] += line.Quantity
	}

	ids := make([]uuid.UUID, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})

	for _, id := range ids {
		if err := s.decrement(tx, id, merged[id]); err != nil {
			return err
		}
	}
	return nil
}

func (s *InventoryService) decrement(db *gorm.DB, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return utils.NewValidationError("Quantity must be at least 1")
	}

	result := db.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to decrement stock: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var product models.Product
	err := db.Select("id", "name", "stock").Where("id = ?", productID).Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NewNotFoundError("Product")
	}
	if err != nil {
		return fmt.Errorf("failed to load product: %w", err)
	}

	s.metrics.StockRejected()
	return utils.NewStockError("Insufficient stock for %s: requested %d, available %d", product.Name, quantity, product.Stock)
}

// Stock returns the current stock count of a product.
func (s *InventoryService) Stock(ctx context.Context, productID uuid.UUID) (int, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Select("id", "stock").Where("id = ?", productID).Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, utils.NewNotFoundError("Product")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load product: %w", err)
	}
	return product.Stock, nil
}
