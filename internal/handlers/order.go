// internal/handlers/order.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/nepshop-backend/internal/i18n"
	"github.com/javajoker/nepshop-backend/internal/services"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// POST /order/new
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req services.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), identity, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusCreated, i18n.KeyOrderPlaced, order)
}

// GET /order/my
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	orders, err := h.orderService.ListMyOrders(c.Request.Context(), identity.UserID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, orders)
}

// GET /order/admin
func (h *OrderHandler) GetAdminOrders(c *gin.Context) {
	list, err := h.orderService.ListAllOrders(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, list)
}

// GET /order/single/:orderId
func (h *OrderHandler) GetOrder(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "orderId")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), identity, orderID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// PUT /order/single/:orderId
func (h *OrderHandler) ProcessOrder(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "orderId")
	if !ok {
		return
	}

	status, err := h.orderService.AdvanceStatus(c.Request.Context(), orderID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusOK, i18n.KeyOrderStatusChanged, gin.H{"updated_status": status})
}
