package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/domain"
	"github.com/Ib-dI/ylang-creations/i18n"
)

const sessionKey = "auth.session"

// DenyFunc writes the response for a rejected request.
type DenyFunc func(c *gin.Context, status int, key i18n.Key)

func defaultDeny(c *gin.Context, status int, key i18n.Key) {
	c.AbortWithStatusJSON(status, gin.H{"error": i18n.T(i18n.FromRequest(c.Request), key)})
}

// RoleSource reports the role recorded locally for a user. ok is false when
// the user has no local record.
type RoleSource interface {
	RoleOf(ctx context.Context, id uuid.UUID) (role domain.Role, ok bool, err error)
}

// Middleware attaches sessions to gin requests.
type Middleware struct {
	verifier   *Verifier
	cookieName string
	roles      RoleSource
	deny       DenyFunc
	logger     *slog.Logger
}

// NewMiddleware creates the gin middleware set. Tokens are read from the
// Authorization header or from cookieName.
func NewMiddleware(v *Verifier, cookieName string) *Middleware {
	return &Middleware{
		verifier:   v,
		cookieName: cookieName,
		deny:       defaultDeny,
		logger:     slog.Default(),
	}
}

// WithDeny sets how rejected requests are answered.
func (m *Middleware) WithDeny(fn DenyFunc) *Middleware {
	tmp := *m
	tmp.deny = fn
	return &tmp
}

// WithRoles makes the role recorded in src authoritative over the token
// claim. The claim still applies to users src does not know.
func (m *Middleware) WithRoles(src RoleSource) *Middleware {
	tmp := *m
	tmp.roles = src
	return &tmp
}

// WithLogger sets the logger for the middleware.
func (m *Middleware) WithLogger(l *slog.Logger) *Middleware {
	tmp := *m
	tmp.logger = l
	return &tmp
}

// Optional attaches the session when a valid token is present and lets
// anonymous requests through.
func (m *Middleware) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request, m.cookieName)
		if token != "" {
			s, err := m.verifier.Verify(token)
			if err != nil {
				m.logger.Debug("Ignoring invalid session token", "error", err)
			} else if !m.attach(c, s) {
				return
			}
		}
		c.Next()
	}
}

// RequireUser rejects requests without a valid session with 401.
func (m *Middleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SessionFrom(c); !ok {
			if !m.authenticate(c) {
				return
			}
		}
		c.Next()
	}
}

// RequireAdmin rejects anonymous requests with 401 and non-admin sessions with 403.
func (m *Middleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := SessionFrom(c)
		if !ok {
			if !m.authenticate(c) {
				return
			}
			s, _ = SessionFrom(c)
		}
		if !s.IsAdmin() {
			m.deny(c, http.StatusForbidden, i18n.ErrForbidden)
			return
		}
		c.Next()
	}
}

func (m *Middleware) authenticate(c *gin.Context) bool {
	token := TokenFromRequest(c.Request, m.cookieName)
	if token == "" {
		m.deny(c, http.StatusUnauthorized, i18n.ErrUnauthorized)
		return false
	}
	s, err := m.verifier.Verify(token)
	if err != nil {
		m.logger.Info("Rejected session token", "error", err, "path", c.Request.URL.Path)
		m.deny(c, http.StatusUnauthorized, i18n.ErrUnauthorized)
		return false
	}
	return m.attach(c, s)
}

// attach applies the recorded role to s and stores it on the request.
func (m *Middleware) attach(c *gin.Context, s *Session) bool {
	if m.roles != nil {
		role, ok, err := m.roles.RoleOf(c.Request.Context(), s.UserID)
		if err != nil {
			m.logger.Error("Failed to load user role", "userId", s.UserID, "error", err)
			m.deny(c, http.StatusInternalServerError, i18n.ErrInternal)
			return false
		}
		if ok {
			s.Role = role
		}
	}
	c.Set(sessionKey, s)
	return true
}

// SessionFrom returns the session attached by the middleware.
func SessionFrom(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Session)
	return s, ok && s != nil
}
