package models

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Category is the closed set of garment categories a product may belong to
type Category string

const (
	CategoryShirt       Category = "shirt"
	CategoryTShirt      Category = "t_shirt"
	CategoryPant        Category = "pant"
	CategoryJacket      Category = "jacket"
	CategoryHoodie      Category = "hoodie"
	CategoryDress       Category = "dress"
	CategoryUniform     Category = "uniform"
	CategoryAccessories Category = "accessories"
)

// Categories lists every known category in display order
var Categories = []Category{
	CategoryShirt,
	CategoryTShirt,
	CategoryPant,
	CategoryJacket,
	CategoryHoodie,
	CategoryDress,
	CategoryUniform,
	CategoryAccessories,
}

// IsValid reports whether c is a known category
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory normalizes and validates a category string
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	return c, c.IsValid()
}

// Product is a garment offered by a manager
type Product struct {
	ID                   string          `db:"id" json:"id"`
	OwnerID              string          `db:"owner_id" json:"owner_id"`
	Name                 string          `db:"name" json:"name"`
	Slug                 string          `db:"slug" json:"slug"`
	Description          string          `db:"description" json:"description"`
	Category             Category        `db:"category" json:"category"`
	Price                decimal.Decimal `db:"price" json:"price"`
	AvailableQuantity    int             `db:"available_quantity" json:"available_quantity"`
	MinimumOrderQuantity int             `db:"minimum_order_quantity" json:"minimum_order_quantity"`
	Featured             bool            `db:"featured" json:"featured"`
	ShowOnHome           bool            `db:"show_on_home" json:"show_on_home"`
	Images               pq.StringArray  `db:"images" json:"images"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// NewProduct creates a product owned by the given manager
func NewProduct(ownerID, name, description string, category Category, price decimal.Decimal, quantity, minOrder int) *Product {
	now := GetCurrentTime()

	return &Product{
		ID:                   GenerateID("prd"),
		OwnerID:              ownerID,
		Name:                 strings.TrimSpace(name),
		Slug:                 slug.Make(name),
		Description:          description,
		Category:             category,
		Price:                price,
		AvailableQuantity:    quantity,
		MinimumOrderQuantity: minOrder,
		Images:               pq.StringArray{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Rename changes the product name and its slug together
func (p *Product) Rename(name string) {
	p.Name = strings.TrimSpace(name)
	p.Slug = slug.Make(name)
}
