package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"SalesOrder", "sales_order"},
		{"SalesOrderItem", "sales_order_item"},
		{"firstName", "first_name"},
		{"unitPrice", "unit_price"},
		{"id", "id"},
		{"HTTPServer", "http_server"},
		{"already_snake", "already_snake"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToSnakeCase(tt.input))
		})
	}
}

func TestCaseConversions(t *testing.T) {
	assert.Equal(t, "SalesOrder", ToPascalCase("sales_order"))
	assert.Equal(t, "salesOrder", ToCamelCase("sales_order"))
	assert.Equal(t, "id", ToCamelCase("id"))
}

func TestDefaultNames(t *testing.T) {
	namer := Default()

	assert.Equal(t, "sales_order_history", namer.TableName("SalesOrderHistory"))
	assert.Equal(t, "created_at", namer.ColumnName("createdAt"))
	assert.Equal(t, "sales_order_id", namer.JoinColumnName("salesOrder"))
	assert.Equal(t, "customer", namer.AssociationName("Customer", false))
	assert.Equal(t, "salesOrderItems", namer.AssociationName("SalesOrderItem", true))
	assert.Equal(t, "salesOrder", namer.MappedByName("SalesOrder"))
}

func TestAlias(t *testing.T) {
	namer := Default()

	tests := []struct {
		input    string
		expected string
	}{
		{"Customer", "c"},
		{"SalesOrder", "so"},
		{"SalesOrderItem", "soi"},
		{"sales_order_history", "soh"},
		{"", "t"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, namer.Alias(tt.input))
		})
	}
}

func TestPluralize(t *testing.T) {
	namer := Default()

	tests := []struct {
		input    string
		expected string
	}{
		{"user", "users"},
		{"category", "categories"},
		{"person", "people"},
		{"child", "children"},
		{"status", "statuses"},
		{"analysis", "analyses"},
		{"orderItem", "orderItems"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := namer.Pluralize(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSingularize(t *testing.T) {
	namer := Default()

	tests := []struct {
		input    string
		expected string
	}{
		{"users", "user"},
		{"categories", "category"},
		{"people", "person"},
		{"children", "child"},
		{"statuses", "status"},
		{"analyses", "analysis"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := namer.Singularize(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestInflect_CompoundNames(t *testing.T) {
	namer := Default()

	assert.Equal(t, "SalesOrderItems", namer.Pluralize("SalesOrderItem"))
	assert.Equal(t, "sales_order_histories", namer.Pluralize("sales_order_history"))
	assert.Equal(t, "sales_order_item", namer.Singularize("sales_order_items"))
	assert.Equal(t, "SalesOrderHistory", namer.Singularize("SalesOrderHistories"))
}

func TestInflect_Overrides(t *testing.T) {
	namer := New(Config{
		PluralOverrides:   map[string]string{"staff": "staff"},
		SingularOverrides: map[string]string{"data": "datum", "sales_data": "sale_datum"},
	}, nil)

	assert.Equal(t, "staff", namer.Pluralize("staff"))
	assert.Equal(t, "warehouse_staff", namer.Pluralize("warehouse_staff"))
	assert.Equal(t, "users", namer.Pluralize("user"))

	assert.Equal(t, "sale_datum", namer.Singularize("sales_data"))
	assert.Equal(t, "sensor_datum", namer.Singularize("sensor_data"))
	assert.Equal(t, "user", namer.Singularize("users"))
}
