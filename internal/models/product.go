package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products on the storefront.
type Category struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null" validate:"required,min=2,max=100"`
	Slug        string    `json:"slug" gorm:"uniqueIndex;type:varchar(120)"`
	Description string    `json:"description" validate:"omitempty,max=500"`
	ImageURL    string    `json:"image_url" validate:"omitempty,url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product represents a product in the store.
type Product struct {
	ID            string              `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name          string              `json:"name" gorm:"type:varchar(100);not null" validate:"required,min=3,max=100"`
	Slug          string              `json:"slug" gorm:"uniqueIndex;type:varchar(120)"`
	Description   string              `json:"description" validate:"omitempty,max=500"`
	ImageURL      string              `json:"image_url" validate:"omitempty,url"`
	Price         decimal.Decimal     `json:"price" gorm:"type:numeric(14,2);not null"`
	OriginalPrice decimal.NullDecimal `json:"original_price" gorm:"type:numeric(14,2)"`
	Discount      int                 `json:"discount" validate:"gte=0,lte=100"`
	Rating        float64             `json:"rating" validate:"gte=0,lte=5"`
	ReviewCount   int                 `json:"review_count" validate:"gte=0"`
	Stock         int                 `json:"stock" validate:"gte=0"`
	IsNew         bool                `json:"is_new"`
	CategoryID    *string             `json:"category_id" gorm:"type:varchar(36);index"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify lower-cases name and replaces every whitespace run with a single dash.
func Slugify(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
