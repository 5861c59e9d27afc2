package cart

import (
	"context"
	"fmt"

	"github.com/Ib-dI/ylang-creations/clientstate"
)

// Service loads and saves carts and wishlists for a visitor key.
type Service struct {
	states clientstate.Store
}

// NewService returns a Service persisting through states.
func NewService(states clientstate.Store) *Service {
	return &Service{states: states}
}

// Get returns the visitor's cart, empty when none is stored.
func (s *Service) Get(ctx context.Context, key string) (*Cart, error) {
	c := New()
	if _, err := s.states.Load(ctx, key, clientstate.KindCart, c); err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return c, nil
}

// Update loads the cart, applies fn and saves the result.
func (s *Service) Update(ctx context.Context, key string, fn func(*Cart)) (*Cart, error) {
	c, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	fn(c)
	if err := s.states.Save(ctx, key, clientstate.KindCart, c); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return c, nil
}

// Add adds item to the visitor's cart.
func (s *Service) Add(ctx context.Context, key string, item Item) (*Cart, error) {
	return s.Update(ctx, key, func(c *Cart) { c.Add(item) })
}

// Remove removes id from the visitor's cart.
func (s *Service) Remove(ctx context.Context, key, id string) (*Cart, error) {
	return s.Update(ctx, key, func(c *Cart) { c.Remove(id) })
}

// SetQuantity changes the quantity of id.
func (s *Service) SetQuantity(ctx context.Context, key, id string, qty int) (*Cart, error) {
	return s.Update(ctx, key, func(c *Cart) { c.SetQuantity(id, qty) })
}

// Clear empties the visitor's cart.
func (s *Service) Clear(ctx context.Context, key string) error {
	if err := s.states.Delete(ctx, key, clientstate.KindCart); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Wishlist returns the visitor's wishlist.
func (s *Service) Wishlist(ctx context.Context, key string) (*Wishlist, error) {
	w := NewWishlist()
	if _, err := s.states.Load(ctx, key, clientstate.KindWishlist, w); err != nil {
		return nil, fmt.Errorf("failed to load wishlist: %w", err)
	}
	if w.Items == nil {
		w.Items = []WishlistItem{}
	}
	return w, nil
}

// ToggleWishlist saves or unsaves item and reports whether it is saved afterwards.
func (s *Service) ToggleWishlist(ctx context.Context, key string, item WishlistItem) (*Wishlist, bool, error) {
	w, err := s.Wishlist(ctx, key)
	if err != nil {
		return nil, false, err
	}
	saved := w.Toggle(item)
	if err := s.states.Save(ctx, key, clientstate.KindWishlist, w); err != nil {
		return nil, false, fmt.Errorf("failed to save wishlist: %w", err)
	}
	return w, saved, nil
}

// RemoveFromWishlist removes id from the visitor's wishlist.
func (s *Service) RemoveFromWishlist(ctx context.Context, key, id string) (*Wishlist, error) {
	w, err := s.Wishlist(ctx, key)
	if err != nil {
		return nil, err
	}
	w.Remove(id)
	if err := s.states.Save(ctx, key, clientstate.KindWishlist, w); err != nil {
		return nil, fmt.Errorf("failed to save wishlist: %w", err)
	}
	return w, nil
}
