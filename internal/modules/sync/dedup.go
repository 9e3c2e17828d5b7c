package sync

import (
	"strconv"
	"time"

	"github.com/mkandawire/possync/internal/modules/catalog"
	"github.com/mkandawire/possync/internal/modules/remote"
)

type levelKey struct {
	objectID   string
	locationID string
}

// Deduplicate collapses raw inventory counts to at most one level per
// (catalog object, location) pair. Counts whose object is not a known,
// non-deleted variation are dropped and counted as skipped. On a key
// collision the entry with the strictly newer CalculatedAt wins; equal
// timestamps keep the first entry seen. Timestamps are normalized to UTC;
// unparseable ones default to now.
func Deduplicate(counts []remote.InventoryCount, knownVariations map[string]struct{}, now time.Time) ([]*catalog.InventoryLevel, int) {
	skipped := 0
	byKey := make(map[levelKey]*catalog.InventoryLevel, len(counts))
	var order []levelKey

	for _, c := range counts {
		if _, ok := knownVariations[c.CatalogObjectID]; !ok {
			skipped++
			continue
		}
		key := levelKey{objectID: c.CatalogObjectID, locationID: c.LocationID}
		lvl := &catalog.InventoryLevel{
			CatalogObjectID: c.CatalogObjectID,
			LocationID:      c.LocationID,
			Quantity:        parseQuantity(c.Quantity),
			CalculatedAt:    parseCalculatedAt(c.CalculatedAt, now),
		}
		existing, ok := byKey[key]
		if !ok {
			byKey[key] = lvl
			order = append(order, key)
			continue
		}
		if lvl.CalculatedAt.After(existing.CalculatedAt) {
			byKey[key] = lvl
		}
	}

	levels := make([]*catalog.InventoryLevel, 0, len(byKey))
	for _, key := range order {
		levels = append(levels, byKey[key])
	}
	return levels, skipped
}

func parseQuantity(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func parseCalculatedAt(s string, now time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return now.UTC()
}
