// Package cart implements the shopping cart and wishlist.
//
// Prices are in major currency units as displayed on the storefront; checkout
// converts them to minor units when talking to the payment processor.
package cart

import (
	"math"
	"slices"
)

// MaxQuantity bounds the quantity of one cart line.
const MaxQuantity = 99

// Configuration records the configurator choices behind a custom item, so
// checkout can price it again from the catalogue.
type Configuration struct {
	Fabric          string   `json:"fabric" binding:"required,max=64"`
	Embroidery      string   `json:"embroidery,omitempty" binding:"max=80"`
	EmbroideryFont  string   `json:"embroideryFont,omitempty" binding:"max=40"`
	EmbroideryColor string   `json:"embroideryColor,omitempty" binding:"max=40"`
	Accessories     []string `json:"accessories,omitempty" binding:"max=10,dive,max=64"`
}

// Item is a cart line, keyed by ID. Configured products carry an ID derived
// from their configuration so identical configurations merge.
//
// Price is informative: checkout prices every line from the catalogue.
type Item struct {
	ID        string            `json:"id" binding:"required,max=120"`
	ProductID string            `json:"productId,omitempty" binding:"max=64"`
	Slug      string            `json:"slug,omitempty" binding:"max=160"`
	Name      string            `json:"name" binding:"required,max=200"`
	Price     float64           `json:"price" binding:"gte=0"`
	Quantity  int               `json:"quantity" binding:"gte=0,lte=99"`
	Image     string            `json:"image,omitempty" binding:"omitempty,max=500"`
	Options   map[string]string `json:"options,omitempty"`

	Configuration *Configuration `json:"configuration,omitempty" binding:"omitempty"`
}

// Cart is an ordered set of items.
type Cart struct {
	Items []Item `json:"items"`
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{Items: []Item{}}
}

func (c *Cart) index(id string) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.ID == id })
}

// Add inserts item or, when an item with the same ID exists, increases its
// quantity. A non-positive quantity counts as one; quantities are capped at
// MaxQuantity.
func (c *Cart) Add(item Item) {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if i := c.index(item.ID); i >= 0 {
		c.Items[i].Quantity = min(c.Items[i].Quantity+item.Quantity, MaxQuantity)
		return
	}
	item.Quantity = min(item.Quantity, MaxQuantity)
	c.Items = append(c.Items, item)
}

// Remove deletes the item with id. Removing a missing id is a no-op.
func (c *Cart) Remove(id string) {
	if i := c.index(id); i >= 0 {
		c.Items = slices.Delete(c.Items, i, i+1)
	}
}

// SetQuantity sets the quantity of id, capped at MaxQuantity; zero or less
// removes the item.
// It reports whether the item exists.
func (c *Cart) SetQuantity(id string, qty int) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	if qty <= 0 {
		c.Items = slices.Delete(c.Items, i, i+1)
		return true
	}
	c.Items[i].Quantity = min(qty, MaxQuantity)
	return true
}

// Get returns the item with id.
func (c *Cart) Get(id string) (Item, bool) {
	if i := c.index(id); i >= 0 {
		return c.Items[i], true
	}
	return Item{}, false
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []Item{}
}

// Empty reports whether the cart has no items.
func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// Count returns the total number of units.
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Total returns the sum of price × quantity, rounded to the cent.
func (c *Cart) Total() float64 {
	var cents float64
	for _, it := range c.Items {
		cents += math.Round(it.Price*100) * float64(it.Quantity)
	}
	return cents / 100
}
