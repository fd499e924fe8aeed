package storefront

import (
	"github.com/xenking/storefront/internal/domain/product"
)

const (
	toastTitleLimit = 20
	toastSuffix     = " ditambahkan ke keranjang!"
)

// Cart is an append-only list of products added during a page session. Adding
// the same product twice yields two entries.
type Cart struct {
	entries []product.Product
}

// Add appends p.
func (c *Cart) Add(p product.Product) {
	c.entries = append(c.entries, p)
}

// Len returns the number of entries, which is the value of the cart counter.
func (c *Cart) Len() int { return len(c.entries) }

// Entries returns a copy of the cart entries in insertion order.
func (c *Cart) Entries() []product.Product {
	out := make([]product.Product, len(c.entries))
	copy(out, c.entries)
	return out
}

// addedMessage is the toast shown after a product lands in the cart.
func addedMessage(p product.Product) string {
	return truncate(p.Title, toastTitleLimit) + toastSuffix
}
