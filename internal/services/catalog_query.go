// internal/services/catalog_query.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/nepshop-backend/internal/config"
	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

// CatalogQueryService serves the read side of the catalog.
type CatalogQueryService struct {
	db     *gorm.DB
	config config.StoreConfig
}

type ProductList struct {
	Products      []models.Product `json:"products"`
	TotalProducts int64            `json:"total_products"`
	Page          int              `json:"page"`
	PageSize      int              `json:"page_size"`
}

type AdminProductList struct {
	Products   []models.Product `json:"products"`
	OutOfStock int              `json:"out_of_stock"`
	LowStock   int              `json:"low_stock"`
	InStock    int              `json:"in_stock"`
}

type HomeProducts struct {
	Featured    []models.Product `json:"featured"`
	Discounted  []models.Product `json:"discounted"`
	TopRated    []models.Product `json:"top_rated"`
	NewArrivals []models.Product `json:"new_arrivals"`
}

func NewCatalogQueryService(db *gorm.DB, cfg config.StoreConfig) *CatalogQueryService {
	return &CatalogQueryService{db: db, config: cfg}
}

// ListProducts filters by category and a case-insensitive name keyword, one fixed-size
// page at a time.
func (s *CatalogQueryService) ListProducts(ctx context.Context, params utils.PaginationParams) (*ProductList, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	params.Limit = s.config.PageSize

	query := s.db.WithContext(ctx).Model(&models.Product{})

	if params.Category != "" {
		categoryID, err := uuid.Parse(params.Category)
		if err != nil {
			return nil, utils.NewValidationError("Invalid category id")
		}
		query = query.Where("category_id = ?", categoryID)
	}
	if keyword := strings.TrimSpace(params.Keyword); keyword != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(keyword))+"%")
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	err := utils.ApplyPagination(query, params).
		Preload("Images", orderImages).
		Order("created_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductList{
		Products:      products,
		TotalProducts: total,
		Page:          params.Page,
		PageSize:      params.Limit,
	}, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *CatalogQueryService) AdminProducts(ctx context.Context) (*AdminProductList, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Images", orderImages).
		Order("created_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	result := &AdminProductList{Products: products}
	for i := range products {
		switch products[i].StockLevel(s.config.LowStockThreshold) {
		case models.StockLevelOut:
			result.OutOfStock++
		case models.StockLevelLow:
			result.LowStock++
			result.InStock++
		default:
			result.InStock++
		}
	}
	return result, nil
}

func (s *CatalogQueryService) HomeProducts(ctx context.Context) (*HomeProducts, error) {
	lists := []struct {
		dest  *[]models.Product
		scope func(*gorm.DB) *gorm.DB
	}{
		{new([]models.Product), func(db *gorm.DB) *gorm.DB {
			return db.Where("is_featured = ?", true).Order("created_at DESC")
		}},
		{new([]models.Product), func(db *gorm.DB) *gorm.DB {
			return db.Where("discount > 0").Order("created_at DESC")
		}},
		{new([]models.Product), func(db *gorm.DB) *gorm.DB {
			return db.Order("average_rating DESC").Order("created_at DESC")
		}},
		{new([]models.Product), func(db *gorm.DB) *gorm.DB {
			return db.Where("is_new_arrival = ?", true).Order("created_at DESC")
		}},
	}

	for _, list := range lists {
		err := s.db.WithContext(ctx).
			Scopes(list.scope).
			Preload("Images", orderImages).
			Limit(s.config.HomeListLimit).
			Find(list.dest).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load home products: %w", err)
		}
	}

	return &HomeProducts{
		Featured:    *lists[0].dest,
		Discounted:  *lists[1].dest,
		TopRated:    *lists[2].dest,
		NewArrivals: *lists[3].dest,
	}, nil
}
