// internal/services/admin_service_test.go
package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/services"
	"github.com/javajoker/nepshop-backend/internal/testutil"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

func createOrder(t *testing.T, db *gorm.DB, user *models.User, total string, status models.OrderStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		UserID:        user.ID,
		ShippingInfo:  models.ShippingInfo{Address: "Thamel", City: "Kathmandu", Country: "Nepal", Phone: "9800000000"},
		PaymentMethod: models.PaymentMethodCOD,
		ItemsPrice:    decimal.RequireFromString(total),
		TotalAmount:   decimal.RequireFromString(total),
		OrderStatus:   status,
		IsNewOrder:    true,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestAcknowledgeOrders(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t, testutil.Config())
	admin := services.NewAdminService(db)
	user := testutil.CreateUser(t, db, "asha@nepshop.test", models.RoleUser)

	first := createOrder(t, db, user, "10.00", models.OrderStatusProcessing)
	createOrder(t, db, user, "20.00", models.OrderStatusProcessing)
	createOrder(t, db, user, "30.00", models.OrderStatusProcessing)

	updates, err := admin.GetUpdates(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updates.NewOrders)

	cleared, err := admin.AcknowledgeOrders(ctx, []uuid.UUID{first.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	cleared, err = admin.AcknowledgeOrders(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cleared)

	updates, err = admin.GetUpdates(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updates.NewOrders)
}

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t, testutil.Config())
	admin := services.NewAdminService(db)
	user := testutil.CreateUser(t, db, "asha@nepshop.test", models.RoleUser)
	testutil.CreateProduct(t, db, "Kettle", "10.00", 1)

	createOrder(t, db, user, "10.50", models.OrderStatusProcessing)
	createOrder(t, db, user, "20.25", models.OrderStatusShipped)
	createOrder(t, db, user, "5.00", models.OrderStatusDelivered)

	stats, err := admin.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.TotalProducts)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.ProcessingOrders)
	assert.Equal(t, int64(1), stats.ShippedOrders)
	assert.Equal(t, int64(1), stats.DeliveredOrders)
	assert.True(t, decimal.RequireFromString("35.75").Equal(stats.TotalRevenue), stats.TotalRevenue.String())
}

func TestListAuditLogs(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t, testutil.Config())
	admin := services.NewAdminService(db)

	for _, action := range []string{"POST /a", "PUT /b", "DELETE /c"} {
		require.NoError(t, db.Create(&models.AuditLog{Action: action, ResourceType: "product", Status: 200}).Error)
	}

	logs, total, err := admin.ListAuditLogs(ctx, utils.PaginationParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, logs, 2)
	assert.Equal(t, "DELETE /c", logs[0].Action)
}
