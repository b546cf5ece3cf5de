package catalog

import (
	"testing"

	"github.com/dailykart/dailykart/services/storefront/models"
	"github.com/stretchr/testify/assert"
)

func sampleCatalog() []models.Product {
	return []models.Product{
		{ID: "1", Name: "Samosa", Category: models.CategoryFood, Price: 20},
		{ID: "2", Name: "Rice 5kg", Category: models.CategoryGrocery, Price: 350},
		{ID: "3", Name: "Paneer Roll", Category: models.CategoryFood, Price: 80},
		{ID: "4", Name: "Dal 1kg", Category: models.CategoryGrocery, Price: 140},
		{ID: "5", Name: "Thali", Category: models.CategoryFood, Price: 150},
	}
}

func ids(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestFilterByCategory(t *testing.T) {
	products := sampleCatalog()

	tests := []struct {
		filter string
		want   []string
	}{
		{"all", []string{"1", "2", "3", "4", "5"}},
		{"food", []string{"1", "3", "5"}},
		{"grocery", []string{"2", "4"}},
		{"electronics", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterByCategory(products, tt.filter)))
		})
	}
}

func TestFilterByCategoryIsPure(t *testing.T) {
	products := sampleCatalog()
	before := ids(products)

	FilterByCategory(products, "grocery")

	assert.Equal(t, before, ids(products))
}

func TestSections(t *testing.T) {
	food, grocery := Sections(sampleCatalog())

	assert.Equal(t, []string{"1", "3", "5"}, ids(food))
	assert.Equal(t, []string{"2", "4"}, ids(grocery))
}
