// internal/handlers/product.go
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/nepshop-backend/internal/i18n"
	"github.com/javajoker/nepshop-backend/internal/services"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

type ProductHandler struct {
	catalogService *services.CatalogService
	queryService   *services.CatalogQueryService
	reviewService  *services.ReviewService
	pageSize       int
}

func NewProductHandler(catalogService *services.CatalogService, queryService *services.CatalogQueryService, reviewService *services.ReviewService, pageSize int) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
		queryService:   queryService,
		reviewService:  reviewService,
		pageSize:       pageSize,
	}
}

// productForm is the multipart shape of a new product. Numeric fields arrive as
// text and are parsed by toRequest.
type productForm struct {
	Name         string `form:"name"`
	Description  string `form:"description"`
	Price        string `form:"price"`
	Stock        string `form:"stock"`
	Category     string `form:"category"`
	Discount     string `form:"discount"`
	IsNewArrival string `form:"is_new_arrival"`
}

func (f *productForm) toRequest() (*services.CreateProductRequest, string) {
	req := &services.CreateProductRequest{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
	}

	price, err := decimal.NewFromString(strings.TrimSpace(f.Price))
	if err != nil {
		return nil, "price"
	}
	req.Price = price

	if f.Stock != "" {
		if req.Stock, err = strconv.Atoi(f.Stock); err != nil {
			return nil, "stock"
		}
	}
	if f.Discount != "" {
		if req.Discount, err = strconv.Atoi(f.Discount); err != nil {
			return nil, "discount"
		}
	}
	if f.IsNewArrival != "" {
		if req.IsNewArrival, err = strconv.ParseBool(f.IsNewArrival); err != nil {
			return nil, "is_new_arrival"
		}
	}
	if f.Category != "" {
		categoryID, err := uuid.Parse(f.Category)
		if err != nil {
			return nil, "category"
		}
		req.CategoryID = &categoryID
	}
	return req, ""
}

func invalidField(c *gin.Context, field string) {
	utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, field), nil)
}

// GET /product/all
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c, h.pageSize)

	list, err := h.queryService.ListProducts(c.Request.Context(), params)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, list)
}

// GET /product/gethomeproducts
func (h *ProductHandler) GetHomeProducts(c *gin.Context) {
	home, err := h.queryService.HomeProducts(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, home)
}

// GET /product/admin
func (h *ProductHandler) GetAdminProducts(c *gin.Context) {
	list, err := h.queryService.AdminProducts(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, list)
}

// GET /product/single/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), productID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// POST /product/new
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var form productForm
	if err := c.ShouldBind(&form); err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}
	req, field := form.toRequest()
	if field != "" {
		invalidField(c, field)
		return
	}

	image, ok := optionalUpload(c)
	if !ok {
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), req, image)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusCreated, i18n.KeyProductCreated, product)
}

// PUT /product/single/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	productID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), productID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusOK, i18n.KeyProductUpdated, product)
}

// DELETE /product/single/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	productID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(c.Request.Context(), productID); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusOK, i18n.KeyProductDeleted, nil)
}

// POST /product/images/:id
func (h *ProductHandler) AddImage(c *gin.Context) {
	productID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	image, ok := optionalUpload(c)
	if !ok {
		return
	}

	product, err := h.catalogService.AddImage(c.Request.Context(), productID, image)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusOK, i18n.KeyProductImageAdded, product)
}

// DELETE /product/images/:id?id=<imageId>
func (h *ProductHandler) DeleteImage(c *gin.Context) {
	productID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	imageID, err := uuid.Parse(c.Query("id"))
	if err != nil {
		invalidField(c, "image id")
		return
	}

	if err := h.catalogService.DeleteImage(c.Request.Context(), productID, imageID); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusOK, i18n.KeyProductImageDeleted, nil)
}

// PUT /product/togglefeature/:id
func (h *ProductHandler) ToggleFeatured(c *gin.Context) {
	productID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	featured, err := h.catalogService.ToggleFeatured(c.Request.Context(), productID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusOK, i18n.KeyProductUpdated, gin.H{"featured": featured})
}

// GET /product/categories
func (h *ProductHandler) GetCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, categories)
}

// POST /product/category
func (h *ProductHandler) CreateCategory(c *gin.Context) {
	var req services.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.catalogService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusCreated, i18n.KeyCategoryCreated, category)
}

// DELETE /product/category/:id
func (h *ProductHandler) DeleteCategory(c *gin.Context) {
	categoryID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteCategory(c.Request.Context(), categoryID); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusOK, i18n.KeyCategoryDeleted, nil)
}

// POST /product/review/:id
func (h *ProductHandler) PostReview(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	productID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.PostReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	review, err := h.reviewService.PostReview(c.Request.Context(), identity, productID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.MessageResponse(c, http.StatusOK, i18n.KeyReviewPosted, review)
}

// GET /product/review/:id
func (h *ProductHandler) GetReviews(c *gin.Context) {
	productID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	reviews, err := h.reviewService.GetReviews(c.Request.Context(), productID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, reviews)
}
