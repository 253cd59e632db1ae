// internal/models/review.go
package models

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinRating = 1
	MaxRating = 5
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

type Review struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_reviews_product_user"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_reviews_product_user"`
	Comment   string    `json:"comment" gorm:"type:text;not null"`
	Rating    int       `json:"rating" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	User *User `json:"-" gorm:"foreignKey:UserID"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// AverageRating is the rounded mean of all ratings, 0 for an empty set.
func AverageRating(reviews []Review) int {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return int(math.Round(float64(sum) / float64(len(reviews))))
}

// UpsertReview replaces the caller's existing review in place or appends a new one,
// then refreshes the product's derived rating fields. The returned review points into
// p.Reviews; created reports whether it was appended.
func (p *Product) UpsertReview(userID uuid.UUID, comment string, rating int) (review *Review, created bool, err error) {
	if rating < MinRating || rating > MaxRating {
		return nil, false, ErrInvalidRating
	}

	idx := -1
	for i := range p.Reviews {
		if p.Reviews[i].UserID == userID {
			idx = i
			break
		}
	}

	if idx >= 0 {
		p.Reviews[idx].Comment = comment
		p.Reviews[idx].Rating = rating
	} else {
		p.Reviews = append(p.Reviews, Review{
			ProductID: p.ID,
			UserID:    userID,
			Comment:   comment,
			Rating:    rating,
		})
		idx = len(p.Reviews) - 1
		created = true
	}

	p.AverageRating = AverageRating(p.Reviews)
	p.NumReviews = len(p.Reviews)

	return &p.Reviews[idx], created, nil
}

// ReviewView is the read projection returned to clients.
type ReviewView struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	Comment   string    `json:"comment"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "product_reviews"
}
