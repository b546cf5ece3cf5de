package models

import (
	"strings"
	"time"

	"github.com/dailykart/dailykart/services/storefront/blob"
)

type Category string

const (
	CategoryFood    Category = "food"
	CategoryGrocery Category = "grocery"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryFood, CategoryGrocery}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryFood:
		return CategoryFood, true
	case CategoryGrocery:
		return CategoryGrocery, true
	}
	return "", false
}

// Label is the human readable category name.
func (c Category) Label() string {
	switch c {
	case CategoryFood:
		return "Food"
	case CategoryGrocery:
		return "Grocery"
	}
	return string(c)
}

type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	Image     blob.Ref  `json:"image"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CartItem snapshots the product for the cart.
func (p Product) CartItem() CartItem {
	return CartItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		ImageURL: p.Image.DirectURL(),
		Quantity: 1,
	}
}

type ProductInput struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Image    blob.Ref `json:"image"`
	Price    int64    `json:"price"`
}
