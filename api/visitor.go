package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// visitorCookie holds the opaque key of the visitor's cart, wishlist and
// configurator documents.
const (
	visitorCookie = "ylang_cart"
	visitorMaxAge = 60 * 60 * 24 * 30
)

// visitorKey returns the visitor key, issuing a new cookie when the request
// carries none. Keys are random uuids so they cannot be guessed.
func (s *Server) visitorKey(c *gin.Context) string {
	if raw, err := c.Cookie(visitorCookie); err == nil {
		if id, err := uuid.Parse(raw); err == nil {
			return id.String()
		}
	}
	key := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(visitorCookie, key, visitorMaxAge, "/", "", s.cfg.CookieSecure, true)
	return key
}
