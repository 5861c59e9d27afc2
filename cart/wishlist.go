package cart

import "slices"

// WishlistItem is a saved product.
type WishlistItem struct {
	ID    string  `json:"id" binding:"required,max=120"`
	Slug  string  `json:"slug,omitempty" binding:"max=160"`
	Name  string  `json:"name" binding:"max=200"`
	Price float64 `json:"price" binding:"gte=0"`
	Image string  `json:"image,omitempty" binding:"omitempty,max=500"`
}

// Wishlist is an ordered set of saved products keyed by ID.
type Wishlist struct {
	Items []WishlistItem `json:"items"`
}

// NewWishlist returns an empty wishlist.
func NewWishlist() *Wishlist {
	return &Wishlist{Items: []WishlistItem{}}
}

func (w *Wishlist) index(id string) int {
	return slices.IndexFunc(w.Items, func(it WishlistItem) bool { return it.ID == id })
}

// Has reports whether id is saved.
func (w *Wishlist) Has(id string) bool {
	return w.index(id) >= 0
}

// Toggle saves item, or removes it when already saved. It returns true when
// the item is saved afterwards.
func (w *Wishlist) Toggle(item WishlistItem) bool {
	if i := w.index(item.ID); i >= 0 {
		w.Items = slices.Delete(w.Items, i, i+1)
		return false
	}
	w.Items = append(w.Items, item)
	return true
}

// Remove deletes id. Removing a missing id is a no-op.
func (w *Wishlist) Remove(id string) {
	if i := w.index(id); i >= 0 {
		w.Items = slices.Delete(w.Items, i, i+1)
	}
}
