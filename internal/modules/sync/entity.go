package sync

import (
	"fmt"

	"github.com/mkandawire/possync/internal/modules/catalog"
)

// Entity names one syncable data set.
type Entity string

const (
	EntityLocations  Entity = "locations"
	EntityCategories Entity = "categories"
	EntityItems      Entity = "items"
	EntityVariations Entity = "variations"
	EntityInventory  Entity = "inventory"
	EntityVendors    Entity = "vendors"
	EntityOrders     Entity = "orders"
)

// DefaultOrder is the dependency-safe execution order for a full run.
// Parents sync before children; vendors and orders have no catalog parents
// beyond locations.
var DefaultOrder = []Entity{
	EntityLocations,
	EntityCategories,
	EntityItems,
	EntityVariations,
	EntityInventory,
	EntityVendors,
	EntityOrders,
}

// dependencies maps an entity to the entities whose successful sync it
// requires. A failed or skipped dependency skips the dependent outright.
var dependencies = map[Entity][]Entity{
	EntityItems:      {EntityCategories},
	EntityVariations: {EntityItems},
	EntityInventory:  {EntityLocations, EntityVariations},
	EntityOrders:     {EntityLocations},
}

var tableNames = map[Entity]string{
	EntityLocations:  "locations",
	EntityCategories: "catalog_categories",
	EntityItems:      "catalog_items",
	EntityVariations: "catalog_variations",
	EntityInventory:  "inventory_levels",
	EntityVendors:    "vendors",
	EntityOrders:     "orders",
}

// TableName returns the local table the entity is stored in, which is also
// its key in sync_state.
func (e Entity) TableName() string { return tableNames[e] }

// Kind returns the catalog storage kind for catalog-side entities.
func (e Entity) Kind() catalog.Kind { return catalog.Kind(tableNames[e]) }

// ParseEntity validates an entity name from an external caller.
func ParseEntity(s string) (Entity, error) {
	e := Entity(s)
	if _, ok := tableNames[e]; !ok {
		return "", fmt.Errorf("unknown entity %q", s)
	}
	return e, nil
}

// Mode selects how an entity sync reconciles remote data against storage.
type Mode string

const (
	// ModeFullRefresh destructively replaces local rows with the remote snapshot.
	ModeFullRefresh Mode = "FULL_REFRESH"
	// ModeIncremental applies insert/update/soft-delete deltas only.
	ModeIncremental Mode = "INCREMENTAL"
)

// ParseMode validates a mode from an external caller. Empty defaults to
// incremental.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeIncremental, nil
	case ModeFullRefresh, ModeIncremental:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown sync mode %q", s)
}

// orderEntities filters DefaultOrder down to the requested set, preserving
// the dependency-safe ordering regardless of how the caller listed them.
func orderEntities(entities []Entity) []Entity {
	requested := make(map[Entity]bool, len(entities))
	for _, e := range entities {
		requested[e] = true
	}
	var ordered []Entity
	for _, e := range DefaultOrder {
		if requested[e] {
			ordered = append(ordered, e)
		}
	}
	return ordered
}
