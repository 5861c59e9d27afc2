// Package auth verifies the auth provider's session tokens and gates routes
// on the role claim.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/config"
	"github.com/Ib-dI/ylang-creations/domain"
)

var (
	// ErrNoSession is returned when the request carries no token.
	ErrNoSession = errors.New("no session")
	// ErrInvalidToken is returned for tokens failing verification.
	ErrInvalidToken = errors.New("invalid session token")
)

// Session is the authenticated caller.
type Session struct {
	UserID   uuid.UUID   `json:"userId"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	FullName string      `json:"fullName,omitempty"`
	Avatar   string      `json:"avatarUrl,omitempty"`
}

// IsAdmin reports whether the session carries the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == domain.RoleAdmin
}

// User returns the local mirror record for s.
func (s *Session) User() *domain.User {
	return &domain.User{
		ID:        s.UserID,
		Email:     s.Email,
		Role:      s.Role,
		FullName:  s.FullName,
		AvatarURL: s.Avatar,
	}
}

// Claims are the provider's JWT claims.
type Claims struct {
	Email        string         `json:"email"`
	AppMetadata  map[string]any `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

func (c *Claims) metadataString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Verifier checks HS256 tokens signed with the provider's secret.
type Verifier struct {
	secret    []byte
	adminRole string
	parser    *jwt.Parser
}

// NewVerifier creates a Verifier from cfg.
func NewVerifier(cfg config.AuthConfig) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	adminRole := cfg.AdminRole
	if adminRole == "" {
		adminRole = string(domain.RoleAdmin)
	}
	return &Verifier{
		secret:    []byte(cfg.JWTSecret),
		adminRole: adminRole,
		parser:    jwt.NewParser(opts...),
	}
}

// Verify parses token and builds the session it describes.
func (v *Verifier) Verify(token string) (*Session, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	role := domain.RoleCustomer
	if claims.metadataString(claims.AppMetadata, "role") == v.adminRole {
		role = domain.RoleAdmin
	}

	return &Session{
		UserID:   userID,
		Email:    claims.Email,
		Role:     role,
		FullName: claims.metadataString(claims.UserMetadata, "full_name"),
		Avatar:   claims.metadataString(claims.UserMetadata, "avatar_url"),
	}, nil
}

// TokenFromRequest returns the bearer token, or the session cookie value.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}
