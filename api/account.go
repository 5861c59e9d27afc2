package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/auth"
	"github.com/Ib-dI/ylang-creations/i18n"
	"github.com/Ib-dI/ylang-creations/store"
)

// me returns the session and, once synced, the stored user.
func (s *Server) me(c *gin.Context) {
	sess, _ := auth.SessionFrom(c)
	user, err := s.deps.Users.GetByID(c.Request.Context(), sess.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		user = sess.User()
	case err != nil:
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess, "user": user, "isAdmin": sess.IsAdmin()})
}

// syncUser mirrors the authenticated user into the local users table.
func (s *Server) syncUser(c *gin.Context) {
	sess, _ := auth.SessionFrom(c)
	user := sess.User()
	if err := s.deps.Users.Upsert(c.Request.Context(), user); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) listMyOrders(c *gin.Context) {
	sess, _ := auth.SessionFrom(c)
	list, err := s.deps.Orders.ListForUser(c.Request.Context(), sess.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// getMyOrder answers 404 for orders of other customers.
func (s *Server) getMyOrder(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	sess, _ := auth.SessionFrom(c)
	ctx := c.Request.Context()

	order, err := s.deps.Orders.GetByID(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	mine, err := s.owns(ctx, sess, order)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !mine {
		abort(c, http.StatusNotFound, i18n.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, order)
}

// pathUUID parses a uuid path parameter, answering 404 when malformed.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		abort(c, http.StatusNotFound, i18n.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}
