// Package logkey holds the shared slog attribute keys so log lines stay
// grep-able across packages.
package logkey

const (
	TraceID = "TRACE ID"
	ERROR   = "ERROR"

	UserID    = "UserID"
	OrderID   = "OrderID"
	ProductID = "ProductID"
	SessionID = "SessionID"
)
