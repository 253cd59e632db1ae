// internal/services/review_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/nepshop-backend/internal/database"
	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

type ReviewService struct {
	db *gorm.DB
}

type PostReviewRequest struct {
	Comment string `json:"comment"`
	Rating  int    `json:"rating"`
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// PostReview creates or replaces the caller's review and recomputes the product's
// aggregate rating. The product row stays locked for the whole read-modify-write so
// concurrent reviewers cannot lose each other's updates.
func (s *ReviewService) PostReview(ctx context.Context, identity models.Identity, productID uuid.UUID, req *PostReviewRequest) (*models.Review, error) {
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return nil, utils.NewValidationError("Comment is required")
	}
	if req.Rating < models.MinRating || req.Rating > models.MaxRating {
		return nil, utils.NewValidationError("Rating must be between %d and %d", models.MinRating, models.MaxRating)
	}

	var saved models.Review
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var product models.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", productID).
			Take(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewNotFoundError("Product")
		}
		if err != nil {
			return fmt.Errorf("failed to lock product: %w", err)
		}

		if err := tx.Where("product_id = ?", productID).Order("created_at ASC").Find(&product.Reviews).Error; err != nil {
			return fmt.Errorf("failed to load reviews: %w", err)
		}

		review, created, err := product.UpsertReview(identity.UserID, comment, req.Rating)
		if err != nil {
			return utils.NewValidationError("%s", err.Error())
		}

		if created {
			err = tx.Create(review).Error
		} else {
			err = tx.Model(review).Updates(map[string]interface{}{
				"comment": review.Comment,
				"rating":  review.Rating,
			}).Error
		}
		if err != nil {
			return fmt.Errorf("failed to save review: %w", err)
		}

		err = tx.Model(&product).UpdateColumns(map[string]interface{}{
			"average_rating": product.AverageRating,
			"num_reviews":    product.NumReviews,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update product rating: %w", err)
		}

		saved = *review
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &saved, nil
}

// GetReviews lists a product's reviews in the order they were first posted, with the
// reviewer's current name and avatar.
func (s *ReviewService) GetReviews(ctx context.Context, productID uuid.UUID) ([]models.ReviewView, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if count == 0 {
		return nil, utils.NewNotFoundError("Product")
	}

	var reviews []models.Review
	err := db.Preload("User").
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}

	views := make([]models.ReviewView, 0, len(reviews))
	for _, r := range reviews {
		view := models.ReviewView{
			ID:        r.ID,
			UserID:    r.UserID,
			Comment:   r.Comment,
			Rating:    r.Rating,
			CreatedAt: r.CreatedAt,
		}
		if r.User != nil {
			view.Name = r.User.Name
			view.Avatar = r.User.Avatar.URL
		}
		views = append(views, view)
	}
	return views, nil
}
