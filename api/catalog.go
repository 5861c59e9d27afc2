package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ib-dI/ylang-creations/auth"
	"github.com/Ib-dI/ylang-creations/domain"
	"github.com/Ib-dI/ylang-creations/store"
)

type productQuery struct {
	Category     string `form:"category" json:"category" binding:"max=80"`
	Search       string `form:"q" json:"q" binding:"max=100"`
	Featured     *bool  `form:"featured" json:"featured"`
	Customizable *bool  `form:"customizable" json:"customizable"`
	InStock      bool   `form:"in_stock" json:"in_stock"`
	Sort         string `form:"sort" json:"sort" binding:"omitempty,oneof=newest price_asc price_desc name"`
	Limit        int    `form:"limit" json:"limit" binding:"min=0,max=100"`
	Offset       int    `form:"offset" json:"offset" binding:"min=0"`
}

func (q productQuery) filter() store.ProductFilter {
	return store.ProductFilter{
		Category:     q.Category,
		Search:       q.Search,
		Featured:     q.Featured,
		Customizable: q.Customizable,
		InStock:      q.InStock,
		Sort:         store.ProductSort(q.Sort),
		Page:         store.Page{Limit: q.Limit, Offset: q.Offset},
	}
}

func (s *Server) listProducts(c *gin.Context) {
	var q productQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalid(c, err)
		return
	}
	list, err := s.deps.Products.List(c.Request.Context(), q.filter())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) listCategories(c *gin.Context) {
	categories, err := s.deps.Products.Categories(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (s *Server) getProduct(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := s.deps.Products.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	rating, err := s.deps.Reviews.Summary(ctx, p.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p, "rating": rating})
}

func (s *Server) listReviews(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := s.deps.Products.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	reviews, err := s.deps.Reviews.ListForProduct(ctx, p.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	rating, err := s.deps.Reviews.Summary(ctx, p.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "rating": rating})
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

// upsertReview stores the caller's review of the product, replacing their
// earlier one.
func (s *Server) upsertReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	sess, _ := auth.SessionFrom(c)
	ctx := c.Request.Context()

	p, err := s.deps.Products.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.deps.Users.Upsert(ctx, sess.User()); err != nil {
		s.fail(c, err)
		return
	}

	rv := &domain.Review{
		ProductID: p.ID,
		UserID:    sess.UserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	created, err := s.deps.Reviews.Upsert(ctx, rv)
	if err != nil {
		s.fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, rv)
}

func (s *Server) publicSettings(c *gin.Context) {
	settings, err := s.deps.Settings.Get(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings.Public())
}
