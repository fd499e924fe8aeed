package product

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item as served by the upstream product API.
// Products are read-only once fetched.
type Product struct {
	ID          int64
	Title       string
	Category    string
	Price       decimal.Decimal
	Image       string
	Description string
}

// Source fetches the full product list from the catalog.
type Source interface {
	List(ctx context.Context) ([]Product, error)
}

// Collection is an ordered, immutable set of products in upstream response
// order. The zero value is an empty collection.
type Collection struct {
	items []Product
	byID  map[int64]int
}

// NewCollection builds a Collection over products. When an identifier repeats,
// lookups resolve to its first occurrence.
func NewCollection(products []Product) Collection {
	items := make([]Product, len(products))
	copy(items, products)

	byID := make(map[int64]int, len(items))
	for i, p := range items {
		if _, ok := byID[p.ID]; !ok {
			byID[p.ID] = i
		}
	}
	return Collection{items: items, byID: byID}
}

// Len returns the number of products.
func (c Collection) Len() int { return len(c.items) }

// All returns the products in collection order. Callers must not modify the
// returned slice.
func (c Collection) All() []Product { return c.items }

// Find looks up a product by identifier.
func (c Collection) Find(id int64) (Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.items[i], true
}

// Lookup resolves a raw identifier as received from a UI event. Anything that
// is not an integer simply does not match.
func (c Collection) Lookup(raw string) (Product, bool) {
	id, ok := ParseID(raw)
	if !ok {
		return Product{}, false
	}
	return c.Find(id)
}

// ParseID parses a product identifier from its textual form.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
