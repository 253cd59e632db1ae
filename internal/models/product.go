// internal/models/product.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Image is a reference to an object held by the external object store.
type Image struct {
	StorageKey string `json:"public_id" gorm:"size:255"`
	URL        string `json:"url" gorm:"size:1024"`
}

type ProductImage struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `json:"-" gorm:"type:uuid;not null;index"`
	Position  int       `json:"-" gorm:"not null"`
	Image     `gorm:"embedded"`
	CreatedAt time.Time `json:"-"`
}

func (i *ProductImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

type Product struct {
	BaseModel
	Name          string          `json:"name" gorm:"size:255;not null"`
	Description   string          `json:"description" gorm:"type:text;not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Stock         int             `json:"stock" gorm:"not null;default:0"`
	CategoryID    *uuid.UUID      `json:"category_id" gorm:"type:uuid;index"`
	Discount      int             `json:"discount" gorm:"not null;default:0"`
	IsFeatured    bool            `json:"is_featured" gorm:"not null;default:false;index"`
	IsNewArrival  bool            `json:"is_new_arrival" gorm:"not null;default:false;index"`
	AverageRating int             `json:"average_rating" gorm:"not null;default:0"`
	NumReviews    int             `json:"num_reviews" gorm:"not null;default:0"`

	// Relationships
	Category *Category     `json:"category,omitempty" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	Images   []ProductImage `json:"images" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Reviews  []Review       `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// PrimaryImageURL is the url captured into order item snapshots.
func (p *Product) PrimaryImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// NextImagePosition returns the position after the last image currently loaded.
func (p *Product) NextImagePosition() int {
	next := 0
	for _, img := range p.Images {
		if img.Position >= next {
			next = img.Position + 1
		}
	}
	return next
}

type StockLevel string

const (
	StockLevelOut StockLevel = "out_of_stock"
	StockLevelLow StockLevel = "low_stock"
	StockLevelIn  StockLevel = "in_stock"
)

// StockLevel buckets the product; low stock is any positive count at or below lowThreshold.
func (p *Product) StockLevel(lowThreshold int) StockLevel {
	switch {
	case p.Stock <= 0:
		return StockLevelOut
	case p.Stock <= lowThreshold:
		return StockLevelLow
	default:
		return StockLevelIn
	}
}
