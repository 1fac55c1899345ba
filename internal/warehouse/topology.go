// Package warehouse turns a warehouse topology and a batch of orders into
// the routing graph and robot fleet the optimizer works on.
package warehouse

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"antroute/internal/model"
)

// ParseTopology decodes a warehouse from YAML. JSON input is accepted too.
func ParseTopology(data []byte) (model.Warehouse, error) {
	var w model.Warehouse
	if err := yaml.Unmarshal(data, &w); err != nil {
		return model.Warehouse{}, fmt.Errorf("parse topology: %w", err)
	}
	return w, nil
}

// LoadTopology reads and decodes a topology file.
func LoadTopology(path string) (model.Warehouse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Warehouse{}, fmt.Errorf("load topology %q: %w", path, err)
	}
	return ParseTopology(data)
}

// ParseOrders decodes a YAML or JSON list of orders.
func ParseOrders(data []byte) ([]model.Order, error) {
	var orders []model.Order
	if err := yaml.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("parse orders: %w", err)
	}
	return orders, nil
}
