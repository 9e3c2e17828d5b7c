package catalog

import "time"

// Kind names a synced table. The string value is the table name.
type Kind string

const (
	KindLocations  Kind = "locations"
	KindCategories Kind = "catalog_categories"
	KindItems      Kind = "catalog_items"
	KindVariations Kind = "catalog_variations"
	KindVendors    Kind = "vendors"
	KindInventory  Kind = "inventory_levels"
)

// Table returns the Postgres table backing the kind.
func (k Kind) Table() string { return string(k) }

// UpsertOutcome classifies what an upsert did to the target row.
type UpsertOutcome int

const (
	Inserted UpsertOutcome = iota
	Updated
	Unchanged
)

// Location is a selling location mirrored from the POS platform.
type Location struct {
	RemoteID  string    `json:"remote_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	IsDeleted bool      `json:"is_deleted"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Category is a catalog category mirrored from the POS platform.
type Category struct {
	RemoteID  string    `json:"remote_id"`
	Name      string    `json:"name"`
	IsDeleted bool      `json:"is_deleted"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a sellable catalog item. CategoryID may be empty.
type Item struct {
	RemoteID    string    `json:"remote_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CategoryID  string    `json:"category_id,omitempty"`
	IsDeleted   bool      `json:"is_deleted"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Variation is a purchasable variation of an item. A variation row is only
// ever written when its parent item is known and non-deleted.
type Variation struct {
	RemoteID    string    `json:"remote_id"`
	ItemID      string    `json:"item_id"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku,omitempty"`
	PriceAmount int64     `json:"price_amount"`
	Currency    string    `json:"currency,omitempty"`
	IsDeleted   bool      `json:"is_deleted"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Vendor is a supplier mirrored from the POS platform.
type Vendor struct {
	RemoteID  string    `json:"remote_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	IsDeleted bool      `json:"is_deleted"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InventoryLevel is the stock quantity of one variation at one location.
// Identity is the (CatalogObjectID, LocationID) pair.
type InventoryLevel struct {
	CatalogObjectID string    `json:"catalog_object_id"`
	LocationID      string    `json:"location_id"`
	Quantity        int       `json:"quantity"`
	CalculatedAt    time.Time `json:"calculated_at"`
}
