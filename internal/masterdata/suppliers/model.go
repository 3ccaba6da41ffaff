package suppliers

import "errors"

// Supplier is the read-only view of a supplier master record.
type Supplier struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Active bool   `json:"active"`
}

// ErrNotFound is returned when the supplier id is unknown.
var ErrNotFound = errors.New("supplier not found")
