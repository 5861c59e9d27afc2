package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ib-dI/ylang-creations/configurator"
)

func (s *Server) respondView(c *gin.Context, v *configurator.View, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) getConfigurator(c *gin.Context) {
	v, err := s.deps.Configurator.Get(c.Request.Context(), s.visitorKey(c))
	s.respondView(c, v, err)
}

func (s *Server) listFabrics(c *gin.Context) {
	catalog := s.deps.Configurator.Catalog()
	c.JSON(http.StatusOK, gin.H{
		"fabrics":     catalog.Fabrics,
		"accessories": catalog.Accessories,
		"pricing":     s.deps.Configurator.Pricing(),
	})
}

type selectProductRequest struct {
	Slug string `json:"slug" binding:"required,max=160"`
}

func (s *Server) configuratorProduct(c *gin.Context) {
	var req selectProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	v, err := s.deps.Configurator.SelectProduct(c.Request.Context(), s.visitorKey(c), req.Slug)
	s.respondView(c, v, err)
}

type selectFabricRequest struct {
	FabricID string `json:"fabricId" binding:"required,max=80"`
}

func (s *Server) configuratorFabric(c *gin.Context) {
	var req selectFabricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	v, err := s.deps.Configurator.SelectFabric(c.Request.Context(), s.visitorKey(c), req.FabricID)
	s.respondView(c, v, err)
}

type embroideryRequest struct {
	Text  string `json:"text" binding:"max=200"`
	Font  string `json:"font" binding:"max=40"`
	Color string `json:"color" binding:"max=40"`
}

// configuratorEmbroidery sets the embroidery; an empty text removes it.
func (s *Server) configuratorEmbroidery(c *gin.Context) {
	var req embroideryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	v, err := s.deps.Configurator.SetEmbroidery(c.Request.Context(), s.visitorKey(c), configurator.Embroidery{
		Text:  req.Text,
		Font:  req.Font,
		Color: req.Color,
	})
	s.respondView(c, v, err)
}

type accessoriesRequest struct {
	IDs    []string `json:"ids" binding:"max=10,dive,max=80"`
	Toggle string   `json:"toggle" binding:"max=80"`
}

// configuratorAccessories toggles one accessory when "toggle" is set and
// replaces the whole list otherwise.
func (s *Server) configuratorAccessories(c *gin.Context) {
	var req accessoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	ctx, key := c.Request.Context(), s.visitorKey(c)
	if req.Toggle != "" {
		v, err := s.deps.Configurator.ToggleAccessory(ctx, key, req.Toggle)
		s.respondView(c, v, err)
		return
	}
	v, err := s.deps.Configurator.SetAccessories(ctx, key, req.IDs)
	s.respondView(c, v, err)
}

func (s *Server) configuratorNext(c *gin.Context) {
	v, err := s.deps.Configurator.Next(c.Request.Context(), s.visitorKey(c))
	s.respondView(c, v, err)
}

func (s *Server) configuratorPrev(c *gin.Context) {
	v, err := s.deps.Configurator.Prev(c.Request.Context(), s.visitorKey(c))
	s.respondView(c, v, err)
}

type goToRequest struct {
	Step int `json:"step" binding:"required,min=1,max=5"`
}

func (s *Server) configuratorGoTo(c *gin.Context) {
	var req goToRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	v, err := s.deps.Configurator.GoTo(c.Request.Context(), s.visitorKey(c), configurator.Step(req.Step))
	s.respondView(c, v, err)
}

func (s *Server) configuratorReset(c *gin.Context) {
	v, err := s.deps.Configurator.Reset(c.Request.Context(), s.visitorKey(c))
	s.respondView(c, v, err)
}

// configuratorToCart adds the finished configuration to the cart.
func (s *Server) configuratorToCart(c *gin.Context) {
	ctx, key := c.Request.Context(), s.visitorKey(c)
	item, err := s.deps.Configurator.LineItem(ctx, key)
	if err != nil {
		s.fail(c, err)
		return
	}
	ct, err := s.deps.Cart.Add(ctx, key, item)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "cart": newCartResponse(ct)})
}
