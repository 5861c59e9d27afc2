package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"path"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/auth"
	"github.com/Ib-dI/ylang-creations/domain"
	"github.com/Ib-dI/ylang-creations/i18n"
	"github.com/Ib-dI/ylang-creations/storage"
	"github.com/Ib-dI/ylang-creations/store"
)

const productImagePrefix = "products"

func (s *Server) adminStats(c *gin.Context) {
	stats, err := s.deps.Orders.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Products

type productRequest struct {
	Slug         string         `json:"slug" binding:"required,max=160"`
	Name         string         `json:"name" binding:"required,max=200"`
	Description  string         `json:"description" binding:"max=5000"`
	Category     string         `json:"category" binding:"max=80"`
	Price        int64          `json:"price" binding:"gte=0"`
	Stock        int            `json:"stock" binding:"gte=0"`
	Images       []string       `json:"images" binding:"max=20,dive,url"`
	Options      map[string]any `json:"options"`
	Featured     bool           `json:"featured"`
	Customizable bool           `json:"customizable"`
}

func (r productRequest) apply(p *domain.Product) {
	p.Slug = r.Slug
	p.Name = r.Name
	p.Description = r.Description
	p.Category = r.Category
	p.Price = r.Price
	p.Stock = r.Stock
	p.Images = r.Images
	p.Options = r.Options
	p.Featured = r.Featured
	p.Customizable = r.Customizable
}

func (s *Server) adminListProducts(c *gin.Context) {
	s.listProducts(c)
}

func (s *Server) adminGetProduct(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := s.deps.Products.GetByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) adminCreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	p := &domain.Product{}
	req.apply(p)
	if err := s.deps.Products.Create(c.Request.Context(), p); err != nil {
		s.failSlug(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// adminUpdateProduct replaces a product. Images dropped from the list are
// removed from storage.
func (s *Server) adminUpdateProduct(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	ctx := c.Request.Context()

	p, err := s.deps.Products.GetByID(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	previous := p.Images
	req.apply(p)
	if err := s.deps.Products.Update(ctx, p); err != nil {
		s.failSlug(c, err)
		return
	}

	var dropped []string
	for _, img := range previous {
		if !slices.Contains(p.Images, img) {
			dropped = append(dropped, img)
		}
	}
	s.deleteMedia(ctx, dropped...)
	c.JSON(http.StatusOK, p)
}

// adminDeleteProduct removes the product, its reviews and its images.
func (s *Server) adminDeleteProduct(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := s.deps.Products.Delete(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.deleteMedia(ctx, p.Images...)
	c.Status(http.StatusNoContent)
}

// adminAddProductImages uploads the "files" parts and appends them to the
// product's images.
func (s *Server) adminAddProductImages(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		invalid(c, err)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		invalidField(c, "files", i18n.FieldRequired)
		return
	}
	ctx := c.Request.Context()

	p, err := s.deps.Products.GetByID(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}

	var uploaded []string
	for _, fh := range files {
		obj, err := s.upload(ctx, path.Join(productImagePrefix, id.String()), fh)
		if err != nil {
			s.deleteMedia(ctx, uploaded...)
			s.fail(c, err)
			return
		}
		uploaded = append(uploaded, obj.URL)
	}

	p, err = s.deps.Products.SetImages(ctx, id, append(p.Images, uploaded...))
	if err != nil {
		s.deleteMedia(ctx, uploaded...)
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type imageRequest struct {
	URL string `json:"url" binding:"required,url"`
}

func (s *Server) adminRemoveProductImage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	ctx := c.Request.Context()

	p, err := s.deps.Products.GetByID(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !slices.Contains(p.Images, req.URL) {
		abort(c, http.StatusNotFound, i18n.ErrNotFound)
		return
	}
	images := slices.DeleteFunc(slices.Clone(p.Images), func(img string) bool { return img == req.URL })
	p, err = s.deps.Products.SetImages(ctx, id, images)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.deleteMedia(ctx, req.URL)
	c.JSON(http.StatusOK, p)
}

func (s *Server) failSlug(c *gin.Context, err error) {
	if errors.Is(err, store.ErrConflict) {
		_ = c.Error(err)
		tag := lang(c)
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{
			Error:  i18n.T(tag, i18n.ErrConflict),
			Fields: map[string]string{"slug": i18n.T(tag, i18n.ErrSlugTaken)},
		})
		return
	}
	s.fail(c, err)
}

// Orders

type orderQuery struct {
	Status string `form:"status" json:"status" binding:"omitempty,oneof=pending confirmed in_production shipped delivered cancelled"`
	Email  string `form:"email" json:"email" binding:"max=200"`
	Limit  int    `form:"limit" json:"limit" binding:"min=0,max=100"`
	Offset int    `form:"offset" json:"offset" binding:"min=0"`
}

func (s *Server) adminListOrders(c *gin.Context) {
	var q orderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalid(c, err)
		return
	}
	list, err := s.deps.Orders.List(c.Request.Context(), store.OrderFilter{
		Status: domain.OrderStatus(q.Status),
		Email:  q.Email,
		Page:   store.Page{Limit: q.Limit, Offset: q.Offset},
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) adminGetOrder(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := s.deps.Orders.GetByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed in_production shipped delivered cancelled"`
}

// adminUpdateOrderStatus applies an allowed status transition and tells the
// customer when the order ships.
func (s *Server) adminUpdateOrderStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	next, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		invalidField(c, "status", i18n.FieldOneOf)
		return
	}
	ctx := c.Request.Context()

	order, err := s.deps.Orders.UpdateStatus(ctx, id, next)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("Order status changed", "orderId", order.ID, "status", order.Status)
	if order.Status == domain.OrderShipped && s.deps.Shipping != nil {
		if err := s.deps.Shipping.OrderShipped(ctx, order); err != nil {
			s.logger.Error("Failed to send shipping email", "orderId", order.ID, "error", err)
		}
	}
	c.JSON(http.StatusOK, order)
}

// Users

type userQuery struct {
	Role   string `form:"role" json:"role" binding:"omitempty,oneof=admin customer"`
	Search string `form:"q" json:"q" binding:"max=100"`
	Limit  int    `form:"limit" json:"limit" binding:"min=0,max=100"`
	Offset int    `form:"offset" json:"offset" binding:"min=0"`
}

func (s *Server) adminListUsers(c *gin.Context) {
	var q userQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalid(c, err)
		return
	}
	list, err := s.deps.Users.List(c.Request.Context(), store.UserFilter{
		Role:   domain.Role(q.Role),
		Search: q.Search,
		Page:   store.Page{Limit: q.Limit, Offset: q.Offset},
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type roleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin customer"`
}

// notSelf rejects admin actions targeting the caller's own account.
func notSelf(c *gin.Context, id uuid.UUID) bool {
	if sess, _ := auth.SessionFrom(c); sess != nil && sess.UserID == id {
		abort(c, http.StatusForbidden, i18n.ErrForbidden)
		return false
	}
	return true
}

func (s *Server) adminUpdateUserRole(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	if !notSelf(c, id) {
		return
	}
	user, err := s.deps.Users.UpdateRole(c.Request.Context(), id, domain.Role(req.Role))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) adminDeleteUser(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok || !notSelf(c, id) {
		return
	}
	if err := s.deps.Users.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Settings

func (s *Server) adminGetSettings(c *gin.Context) {
	settings, err := s.deps.Settings.Get(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) adminSaveSettings(c *gin.Context) {
	var settings domain.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		invalid(c, err)
		return
	}
	if err := validate.Struct(&settings); err != nil {
		invalid(c, err)
		return
	}
	if err := s.deps.Settings.Save(c.Request.Context(), &settings); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &settings)
}

func (s *Server) adminResetSettings(c *gin.Context) {
	settings, err := s.deps.Settings.Reset(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// Media

type mediaQuery struct {
	Prefix string `form:"prefix" json:"prefix" binding:"max=200"`
}

func (s *Server) adminListMedia(c *gin.Context) {
	var q mediaQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalid(c, err)
		return
	}
	objects, err := s.deps.Media.List(c.Request.Context(), q.Prefix)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"objects": objects})
}

func (s *Server) adminUploadMedia(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		invalidField(c, "file", i18n.FieldRequired)
		return
	}
	prefix := c.DefaultPostForm("prefix", "media")
	obj, err := s.upload(c.Request.Context(), prefix, fh)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, obj)
}

type deleteMediaRequest struct {
	URLs []string `json:"urls" binding:"required,min=1,max=100,dive,url"`
}

func (s *Server) adminDeleteMedia(c *gin.Context) {
	var req deleteMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	if err := s.deps.Media.Delete(c.Request.Context(), req.URLs...); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) upload(ctx context.Context, prefix string, fh *multipart.FileHeader) (*storage.Object, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.deps.Media.Upload(ctx, prefix, f)
}

// deleteMedia removes stored files, logging failures: the database change
// they follow has already been committed.
func (s *Server) deleteMedia(ctx context.Context, urls ...string) {
	if len(urls) == 0 {
		return
	}
	if err := s.deps.Media.Delete(ctx, urls...); err != nil {
		s.logger.Error("Failed to delete media", "urls", urls, "error", err)
	}
}

// Reviews

type pageQuery struct {
	Limit  int `form:"limit" json:"limit" binding:"min=0,max=100"`
	Offset int `form:"offset" json:"offset" binding:"min=0"`
}

func (s *Server) adminListReviews(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalid(c, err)
		return
	}
	reviews, err := s.deps.Reviews.List(c.Request.Context(), store.Page{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func (s *Server) adminDeleteReview(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := s.deps.Reviews.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
