// Package testutil provides shared mocks, builders, and constants for tests.
package testutil

import "github.com/sqlscout/sqlscout/internal/catalog"

// ColumnOption is a functional option for configuring test columns
type ColumnOption func(*catalog.ColumnDescriptor)

// WithType sets the column type
func WithType(colType string) ColumnOption {
	return func(c *catalog.ColumnDescriptor) {
		c.Type = colType
	}
}

// WithDescription sets the column description
func WithDescription(desc string) ColumnOption {
	return func(c *catalog.ColumnDescriptor) {
		c.Description = desc
	}
}

// WithPK marks the column as a primary key
func WithPK() ColumnOption {
	return func(c *catalog.ColumnDescriptor) {
		c.IsPK = true
	}
}

// WithFK marks the column as a foreign key
func WithFK() ColumnOption {
	return func(c *catalog.ColumnDescriptor) {
		c.IsFK = true
	}
}

// WithSamples sets the column sample values
func WithSamples(values ...string) ColumnOption {
	return func(c *catalog.ColumnDescriptor) {
		c.SampleValues = values
	}
}

// NewTestColumn creates a column descriptor with sensible defaults and
// applies any provided options
func NewTestColumn(table, name string, opts ...ColumnOption) catalog.ColumnDescriptor {
	col := catalog.ColumnDescriptor{
		Table: table,
		Name:  name,
		Type:  "VARCHAR",
	}

	for _, opt := range opts {
		opt(&col)
	}

	return col
}

// SalesColumns returns a small fixed catalog for pipeline and engine tests
func SalesColumns() []catalog.ColumnDescriptor {
	return []catalog.ColumnDescriptor{
		NewTestColumn("customers", "id", WithType("INTEGER"), WithPK()),
		NewTestColumn("customers", "name", WithSamples("Acme", "Globex")),
		NewTestColumn("customers", "country"),
		NewTestColumn("orders", "id", WithType("INTEGER"), WithPK()),
		NewTestColumn("orders", "customer_id", WithType("INTEGER"), WithFK()),
		NewTestColumn("orders", "amount", WithType("DECIMAL(10,2)")),
		NewTestColumn("orders", "placed_at", WithType("TIMESTAMP")),
	}
}
