package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ib-dI/ylang-creations/cart"
)

type cartResponse struct {
	Items []cart.Item `json:"items"`
	Count int         `json:"count"`
	Total float64     `json:"total"`
}

func newCartResponse(ct *cart.Cart) cartResponse {
	return cartResponse{Items: ct.Items, Count: ct.Count(), Total: ct.Total()}
}

func (s *Server) getCart(c *gin.Context) {
	ct, err := s.deps.Cart.Get(c.Request.Context(), s.visitorKey(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(ct))
}

func (s *Server) addCartItem(c *gin.Context) {
	var item cart.Item
	if err := c.ShouldBindJSON(&item); err != nil {
		invalid(c, err)
		return
	}
	ct, err := s.deps.Cart.Add(c.Request.Context(), s.visitorKey(c), item)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(ct))
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,lte=99"`
}

// updateCartItem sets the quantity of a line; zero or less removes it.
func (s *Server) updateCartItem(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	ct, err := s.deps.Cart.SetQuantity(c.Request.Context(), s.visitorKey(c), c.Param("id"), *req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(ct))
}

func (s *Server) removeCartItem(c *gin.Context) {
	ct, err := s.deps.Cart.Remove(c.Request.Context(), s.visitorKey(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(ct))
}

func (s *Server) clearCart(c *gin.Context) {
	if err := s.deps.Cart.Clear(c.Request.Context(), s.visitorKey(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(cart.New()))
}

func (s *Server) getWishlist(c *gin.Context) {
	w, err := s.deps.Cart.Wishlist(c.Request.Context(), s.visitorKey(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

type wishlistRequest struct {
	Slug  string  `json:"slug" binding:"max=160"`
	Name  string  `json:"name" binding:"max=200"`
	Price float64 `json:"price" binding:"gte=0"`
	Image string  `json:"image" binding:"omitempty,max=500"`
}

func (s *Server) toggleWishlist(c *gin.Context) {
	var req wishlistRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			invalid(c, err)
			return
		}
	}
	item := cart.WishlistItem{
		ID:    c.Param("id"),
		Slug:  req.Slug,
		Name:  req.Name,
		Price: req.Price,
		Image: req.Image,
	}
	w, saved, err := s.deps.Cart.ToggleWishlist(c.Request.Context(), s.visitorKey(c), item)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": w.Items, "saved": saved})
}

func (s *Server) removeWishlistItem(c *gin.Context) {
	w, err := s.deps.Cart.RemoveFromWishlist(c.Request.Context(), s.visitorKey(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
