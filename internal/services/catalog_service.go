// internal/services/catalog_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/javajoker/nepshop-backend/internal/database"
	"github.com/javajoker/nepshop-backend/internal/metrics"
	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

// imageDeleteConcurrency caps parallel object-store deletes per product.
const imageDeleteConcurrency = 4

type CatalogService struct {
	db      *gorm.DB
	storage ObjectStorage
	metrics *metrics.Metrics
}

type CreateProductRequest struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	CategoryID   *uuid.UUID      `json:"category,omitempty"`
	Discount     int             `json:"discount"`
	IsNewArrival bool            `json:"is_new_arrival"`
}

// UpdateProductRequest is a partial update; nil fields are left untouched.
type UpdateProductRequest struct {
	Name         *string          `json:"name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Stock        *int             `json:"stock,omitempty"`
	CategoryID   *uuid.UUID       `json:"category,omitempty"`
	Discount     *int             `json:"discount,omitempty"`
	IsNewArrival *bool            `json:"is_new_arrival,omitempty"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func NewCatalogService(db *gorm.DB, storage ObjectStorage, m *metrics.Metrics) *CatalogService {
	return &CatalogService{
		db:      db,
		storage: storage,
		metrics: m,
	}
}

func validateProductFields(name, description string, price decimal.Decimal, stock, discount int) error {
	if strings.TrimSpace(name) == "" {
		return utils.NewValidationError("Name of a product is required")
	}
	if strings.TrimSpace(description) == "" {
		return utils.NewValidationError("Description of a product is required")
	}
	if !price.IsPositive() {
		return utils.NewValidationError("Price of a product must be greater than zero")
	}
	if stock < 0 {
		return utils.NewValidationError("Stock of a product must not be negative")
	}
	if discount < 0 || discount > 100 {
		return utils.NewValidationError("Discount must be between 0 and 100")
	}
	return nil
}

func (s *CatalogService) ensureCategory(db *gorm.DB, categoryID uuid.UUID) error {
	var count int64
	if err := db.Model(&models.Category{}).Where("id = ?", categoryID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load category: %w", err)
	}
	if count == 0 {
		return utils.NewNotFoundError("Category")
	}
	return nil
}

func (s *CatalogService) upload(ctx context.Context, image *FileUpload) (models.Image, error) {
	if err := image.Validate(); err != nil {
		return models.Image{}, utils.NewValidationError("%s", err.Error())
	}

	stored, err := s.storage.Upload(ctx, image, FolderProducts)
	if err != nil {
		s.metrics.ExternalFailure("object_storage")
		return models.Image{}, utils.NewExternalServiceError("object storage", err)
	}
	return stored, nil
}

// CreateProduct uploads the first image and then inserts the product. When the insert
// fails the uploaded image is removed again.
func (s *CatalogService) CreateProduct(ctx context.Context, req *CreateProductRequest, image *FileUpload) (*models.Product, error) {
	if err := validateProductFields(req.Name, req.Description, req.Price, req.Stock, req.Discount); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if req.CategoryID != nil {
		if err := s.ensureCategory(db, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	if image == nil {
		return nil, utils.NewValidationError("At least one image of the product is required")
	}

	stored, err := s.upload(ctx, image)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Price:        req.Price,
		Stock:        req.Stock,
		CategoryID:   req.CategoryID,
		Discount:     req.Discount,
		IsNewArrival: req.IsNewArrival,
		Images:       []models.ProductImage{{Position: 0, Image: stored}},
	}

	if err := db.Create(product).Error; err != nil {
		if delErr := s.storage.Delete(ctx, stored.StorageKey); delErr != nil {
			logrus.WithError(delErr).WithField("key", stored.StorageKey).Error("Failed to remove orphaned product image")
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Images", orderImages).
		Where("id = ?", id).
		Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("Product")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &product, nil
}

func orderImages(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	db := s.db.WithContext(ctx)

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	// Only provided columns are written; stock is never rewritten unless asked for.
	updates := map[string]interface{}{}
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
		updates["name"] = product.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
		updates["description"] = product.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
		updates["price"] = product.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
		updates["stock"] = product.Stock
	}
	if req.Discount != nil {
		product.Discount = *req.Discount
		updates["discount"] = product.Discount
	}
	if req.IsNewArrival != nil {
		product.IsNewArrival = *req.IsNewArrival
		updates["is_new_arrival"] = product.IsNewArrival
	}
	if req.CategoryID != nil {
		if err := s.ensureCategory(db, *req.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *req.CategoryID
	}

	if err := validateProductFields(product.Name, product.Description, product.Price, product.Stock, product.Discount); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return product, nil
	}

	err = db.Model(&models.Product{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return s.GetProduct(ctx, id)
}

func (s *CatalogService) AddImage(ctx context.Context, id uuid.UUID, image *FileUpload) (*models.Product, error) {
	if image == nil {
		return nil, utils.NewValidationError("Please provide an image to add")
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	stored, err := s.upload(ctx, image)
	if err != nil {
		return nil, err
	}

	row := &models.ProductImage{
		ProductID: product.ID,
		Position:  product.NextImagePosition(),
		Image:     stored,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if delErr := s.storage.Delete(ctx, stored.StorageKey); delErr != nil {
			logrus.WithError(delErr).WithField("key", stored.StorageKey).Error("Failed to remove orphaned product image")
		}
		return nil, fmt.Errorf("failed to add image: %w", err)
	}

	product.Images = append(product.Images, *row)
	return product, nil
}

// DeleteImage removes the object first and the row second, so a failed object delete
// leaves the product unchanged.
func (s *CatalogService) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error {
	db := s.db.WithContext(ctx)

	if _, err := s.GetProduct(ctx, productID); err != nil {
		return err
	}

	var image models.ProductImage
	err := db.Where("id = ? AND product_id = ?", imageID, productID).Take(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NewNotFoundError("Image")
	}
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	if err := s.storage.Delete(ctx, image.StorageKey); err != nil {
		s.metrics.ExternalFailure("object_storage")
		return utils.NewExternalServiceError("object storage", err)
	}

	if err := db.Delete(&image).Error; err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// ToggleFeatured flips the flag in the row itself and reads the result back inside the
// same transaction, so concurrent toggles never cancel each other out.
func (s *CatalogService) ToggleFeatured(ctx context.Context, id uuid.UUID) (bool, error) {
	var featured bool
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		result := tx.Model(&models.Product{}).Where("id = ?", id).
			UpdateColumn("is_featured", gorm.Expr("NOT is_featured"))
		if result.Error != nil {
			return fmt.Errorf("failed to toggle featured: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return utils.NewNotFoundError("Product")
		}

		var product models.Product
		if err := tx.Select("id", "is_featured").Where("id = ?", id).Take(&product).Error; err != nil {
			return fmt.Errorf("failed to load product: %w", err)
		}
		featured = product.IsFeatured
		return nil
	})
	return featured, err
}

// DeleteProduct deletes every stored image and then the product. If any image delete
// fails, the images that did go are dropped from the product, the product itself is
// kept and an external service error is returned. Images attached after the product
// was loaded keep it in place and yield a conflict.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	deleted := make([]bool, len(product.Images))
	var g errgroup.Group
	g.SetLimit(imageDeleteConcurrency)
	for i, image := range product.Images {
		i, image := i, image
		g.Go(func() error {
			if err := s.storage.Delete(ctx, image.StorageKey); err != nil {
				return fmt.Errorf("delete image %s: %w", image.StorageKey, err)
			}
			deleted[i] = true
			return nil
		})
	}
	deleteErr := g.Wait()

	var deletedIDs []uuid.UUID
	for i, ok := range deleted {
		if ok {
			deletedIDs = append(deletedIDs, product.Images[i].ID)
		}
	}

	if deleteErr != nil {
		s.metrics.ExternalFailure("object_storage")
		logrus.WithError(deleteErr).WithFields(logrus.Fields{
			"product_id": product.ID,
			"deleted":    len(deletedIDs),
			"total":      len(product.Images),
		}).Error("Failed to delete product images")

		if len(deletedIDs) > 0 {
			if err := s.db.WithContext(ctx).Where("id IN ?", deletedIDs).Delete(&models.ProductImage{}).Error; err != nil {
				return fmt.Errorf("failed to drop deleted images: %w", err)
			}
		}
		return utils.NewExternalServiceError("object storage", deleteErr)
	}

	// Only the rows whose objects were deleted go. An image added meanwhile keeps the
	// product alive so its object is never orphaned.
	var remaining int64
	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if len(deletedIDs) > 0 {
			if err := tx.Where("id IN ?", deletedIDs).Delete(&models.ProductImage{}).Error; err != nil {
				return fmt.Errorf("failed to delete product images: %w", err)
			}
		}
		if err := tx.Model(&models.ProductImage{}).Where("product_id = ?", product.ID).Count(&remaining).Error; err != nil {
			return fmt.Errorf("failed to count product images: %w", err)
		}
		if remaining > 0 {
			return nil
		}
		if err := tx.Delete(&models.Product{}, "id = ?", product.ID).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if remaining > 0 {
		logrus.WithFields(logrus.Fields{
			"product_id": product.ID,
			"remaining":  remaining,
		}).Warn("Images were added while the product was being deleted")
		return utils.NewConflictError("Images were added to the product while it was being deleted, please retry")
	}
	return nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*models.Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationErrorFrom(err)
	}

	category := &models.Category{Name: req.Name}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// DeleteCategory detaches the category from every product and deletes it, atomically.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var category models.Category
		err := tx.Where("id = ?", id).Take(&category).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewNotFoundError("Category")
		}
		if err != nil {
			return fmt.Errorf("failed to load category: %w", err)
		}

		err = tx.Unscoped().Model(&models.Product{}).
			Where("category_id = ?", id).
			UpdateColumn("category_id", nil).Error
		if err != nil {
			return fmt.Errorf("failed to detach products: %w", err)
		}

		if err := tx.Delete(&category).Error; err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return nil
	})
}
