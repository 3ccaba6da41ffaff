package inventory

import "errors"

// Item is the read-only view of an inventory item used to snapshot
// purchase order lines.
type Item struct {
	ID       int64  `json:"id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
}

// ErrItemNotFound indicates the item id is unknown.
var ErrItemNotFound = errors.New("inventory item not found")
