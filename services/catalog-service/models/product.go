package models

import "time"

type Category string

const (
	CategoryFood    Category = "food"
	CategoryGrocery Category = "grocery"
)

// Valid reports whether c is one of the two catalog categories.
func (c Category) Valid() bool {
	return c == CategoryFood || c == CategoryGrocery
}

// Product is a catalog entry. Image is a URL, possibly a data URL.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	Image     string    `json:"image"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProductInput is the writable part of a product.
type ProductInput struct {
	Name     string   `json:"name" yaml:"name" validate:"required"`
	Category Category `json:"category" yaml:"category" validate:"required,oneof=food grocery"`
	Image    string   `json:"image" yaml:"image" validate:"required"`
	Price    int64    `json:"price" yaml:"price" validate:"gte=0"`
}
