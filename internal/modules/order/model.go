package order

import "time"

// Order is a sale mirrored from the POS platform, keyed by its remote id.
type Order struct {
	RemoteID    string      `json:"remote_id"`
	LocationID  string      `json:"location_id"`
	State       string      `json:"state"`
	TotalAmount int64       `json:"total_amount"`
	Currency    string      `json:"currency"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	LineItems   []*LineItem `json:"line_items,omitempty"`
}

// LineItem is one line within an order, keyed by (order remote id, uid).
// A line item is only ever committed together with its order.
type LineItem struct {
	OrderID         string `json:"order_id"`
	UID             string `json:"uid"`
	Name            string `json:"name"`
	CatalogObjectID string `json:"catalog_object_id,omitempty"`
	Quantity        int    `json:"quantity"`
	Amount          int64  `json:"amount"`
}
