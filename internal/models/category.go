// internal/models/category.go
package models

type Category struct {
	BaseModel
	Name string `json:"name" gorm:"size:100;not null"`
}
