package testutil

// Common test constants used across test files
const (
	TestDatabaseID = "sales"
	TestQuestion   = "total revenue per customer last month"
	TestTable      = "orders"
	TestColumn     = "amount"
)
