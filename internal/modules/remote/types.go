package remote

import "time"

// Location is a selling location as reported by the POS platform.
type Location struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"` // ACTIVE | INACTIVE
}

// CatalogObjectType selects which catalog objects a search returns.
type CatalogObjectType string

const (
	ObjectCategory  CatalogObjectType = "CATEGORY"
	ObjectItem      CatalogObjectType = "ITEM"
	ObjectVariation CatalogObjectType = "ITEM_VARIATION"
)

// CatalogObject is the polymorphic catalog record returned by the platform.
// Exactly one of the *Data fields is populated, matching Type.
type CatalogObject struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	IsDeleted     bool           `json:"is_deleted"`
	UpdatedAt     string         `json:"updated_at"`
	CategoryData  *CategoryData  `json:"category_data,omitempty"`
	ItemData      *ItemData      `json:"item_data,omitempty"`
	VariationData *VariationData `json:"item_variation_data,omitempty"`
}

// CategoryData holds the category-specific fields of a CatalogObject.
type CategoryData struct {
	Name string `json:"name"`
}

// ItemData holds the item-specific fields of a CatalogObject.
type ItemData struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`
}

// VariationData holds the variation-specific fields of a CatalogObject.
type VariationData struct {
	ItemID      string `json:"item_id"`
	Name        string `json:"name"`
	SKU         string `json:"sku,omitempty"`
	PriceAmount int64  `json:"price_amount"`
	Currency    string `json:"currency,omitempty"`
}

// InventoryCount is one stock observation for a variation at a location.
// Quantity is a decimal string on the wire, as the platform sends it.
type InventoryCount struct {
	CatalogObjectID string `json:"catalog_object_id"`
	LocationID      string `json:"location_id"`
	State           string `json:"state,omitempty"`
	Quantity        string `json:"quantity"`
	CalculatedAt    string `json:"calculated_at"`
}

// Vendor is a supplier record as reported by the platform.
type Vendor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"` // ACTIVE | INACTIVE
	UpdatedAt string `json:"updated_at"`
}

// Order is a completed or in-flight sale as reported by the platform.
type Order struct {
	ID          string          `json:"id"`
	LocationID  string          `json:"location_id"`
	State       string          `json:"state"`
	TotalAmount int64           `json:"total_amount"`
	Currency    string          `json:"currency"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
	LineItems   []OrderLineItem `json:"line_items,omitempty"`
}

// OrderLineItem is one line within a platform order, keyed by UID within its order.
type OrderLineItem struct {
	UID             string `json:"uid"`
	Name            string `json:"name"`
	CatalogObjectID string `json:"catalog_object_id,omitempty"`
	Quantity        string `json:"quantity"`
	Amount          int64  `json:"amount"`
}

// DateRange bounds an order search. Start is inclusive, End exclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}
