// Package salesmodel embeds the sample sales mapping: customers, products,
// sales orders with their items, and the order status history.
package salesmodel

import (
	"bytes"
	_ "embed"

	"sqlcriteria/internal/mapping"
)

//go:embed sales.yaml
var document []byte

// Statuses lists the sales order statuses in workflow order.
var Statuses = []string{"NEW", "APPROVED", "PREPARING", "SHIPPED"}

// YAML returns the raw mapping document.
func YAML() []byte {
	return append([]byte(nil), document...)
}

// Registry loads the sales mapping.
func Registry(opts ...mapping.Option) (*mapping.Registry, error) {
	return mapping.LoadYAML(bytes.NewReader(document), opts...)
}
