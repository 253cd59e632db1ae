// internal/services/admin_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

type AdminService struct {
	db  *gorm.DB
	now func() time.Time
}

type AdminUpdates struct {
	NewOrders int64 `json:"new_orders"`
}

type AdminDashboardStats struct {
	TotalUsers        int64           `json:"total_users"`
	NewUsersThisMonth int64           `json:"new_users_this_month"`
	TotalProducts     int64           `json:"total_products"`
	TotalOrders       int64           `json:"total_orders"`
	ProcessingOrders  int64           `json:"processing_orders"`
	ShippedOrders     int64           `json:"shipped_orders"`
	DeliveredOrders   int64           `json:"delivered_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	MonthlyRevenue    decimal.Decimal `json:"monthly_revenue"`
}

type AcknowledgeOrdersRequest struct {
	OrderIDs []uuid.UUID `json:"order_ids"`
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db, now: time.Now}
}

// GetUpdates reports how many orders the admin has not looked at yet.
func (s *AdminService) GetUpdates(ctx context.Context) (*AdminUpdates, error) {
	updates := &AdminUpdates{}
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Where("is_new_order = ?", true).Count(&updates.NewOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count new orders: %w", err)
	}
	return updates, nil
}

// AcknowledgeOrders clears the new-order flag on the given orders, or on every order
// when no ids are given. It returns the number of orders changed.
func (s *AdminService) AcknowledgeOrders(ctx context.Context, ids []uuid.UUID) (int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("is_new_order = ?", true)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	result := query.UpdateColumn("is_new_order", false)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to acknowledge orders: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *AdminService) GetDashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &AdminDashboardStats{}
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalUsers, db.Model(&models.User{})},
		{&stats.NewUsersThisMonth, db.Model(&models.User{}).Where("created_at >= ?", monthStart)},
		{&stats.TotalProducts, db.Model(&models.Product{})},
		{&stats.TotalOrders, db.Model(&models.Order{})},
		{&stats.ProcessingOrders, db.Model(&models.Order{}).Where("order_status = ?", models.OrderStatusProcessing)},
		{&stats.ShippedOrders, db.Model(&models.Order{}).Where("order_status = ?", models.OrderStatusShipped)},
		{&stats.DeliveredOrders, db.Model(&models.Order{}).Where("order_status = ?", models.OrderStatusDelivered)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
		}
	}

	var err error
	if stats.TotalRevenue, err = s.sumRevenue(db, time.Time{}); err != nil {
		return nil, err
	}
	if stats.MonthlyRevenue, err = s.sumRevenue(db, monthStart); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *AdminService) sumRevenue(db *gorm.DB, since time.Time) (decimal.Decimal, error) {
	query := db.Model(&models.Order{})
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}

	var totals []decimal.Decimal
	if err := query.Pluck("total_amount", &totals).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return decimal.Sum(decimal.Zero, totals...), nil
}

// ListAuditLogs pages through the audit trail, newest first.
func (s *AdminService) ListAuditLogs(ctx context.Context, params utils.PaginationParams) ([]models.AuditLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{}).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var logs []models.AuditLog
	if err := utils.ApplyPagination(query, params).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}
