package catalog

import "github.com/dailykart/dailykart/services/storefront/models"

// FilterAll selects every product.
const FilterAll = "all"

// FilterByCategory keeps the products of one category in their original
// order. "all" returns the input unchanged; an unknown filter matches nothing.
func FilterByCategory(products []models.Product, filter string) []models.Product {
	if filter == FilterAll {
		return products
	}
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if string(p.Category) == filter {
			out = append(out, p)
		}
	}
	return out
}

// Sections splits the catalog into the two home page sections.
func Sections(products []models.Product) (food, grocery []models.Product) {
	return FilterByCategory(products, string(models.CategoryFood)),
		FilterByCategory(products, string(models.CategoryGrocery))
}
