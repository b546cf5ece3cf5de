// Package seed loads the initial product catalog.
package seed

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/dailykart/dailykart/services/catalog-service/models"
	"gopkg.in/yaml.v3"
)

//go:embed products.yaml
var defaultCatalog []byte

type file struct {
	Products []models.ProductInput `yaml:"products"`
}

// Parse decodes a seed document.
func Parse(data []byte) ([]models.ProductInput, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return f.Products, nil
}

// Load reads the seed file at path, or the built-in catalog when path is empty.
func Load(path string) ([]models.ProductInput, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}
