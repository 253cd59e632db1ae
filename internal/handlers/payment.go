// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/nepshop-backend/internal/services"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// POST /order/payment
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req services.CreatePaymentIntentRequest
	if !bindJSON(c, &req) {
		return
	}

	intent, err := h.paymentService.CreatePaymentIntent(c.Request.Context(), identity, req.TotalAmount)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, intent)
}
