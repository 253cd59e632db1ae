// internal/handlers/admin.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/nepshop-backend/internal/i18n"
	"github.com/javajoker/nepshop-backend/internal/services"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
	pageSize     int
}

func NewAdminHandler(adminService *services.AdminService, pageSize int) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		pageSize:     pageSize,
	}
}

// GET /admin/updates, GET /product/getupdates
func (h *AdminHandler) GetUpdates(c *gin.Context) {
	updates, err := h.adminService.GetUpdates(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, updates)
}

// PUT /admin/updates
func (h *AdminHandler) AcknowledgeOrders(c *gin.Context) {
	var req services.AcknowledgeOrdersRequest
	if !bindJSON(c, &req) {
		return
	}

	cleared, err := h.adminService.AcknowledgeOrders(c.Request.Context(), req.OrderIDs)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusOK, i18n.KeyAdminOrdersCleared, gin.H{"cleared": cleared})
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c, h.pageSize)

	logs, total, err := h.adminService.ListAuditLogs(c.Request.Context(), params)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	result := utils.CreatePaginationResult(logs, total, params)
	utils.PaginatedResponse(c, result)
}
