package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"forumpipe/internal/config"
	"forumpipe/internal/logger"
	"forumpipe/pkg/errors"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUsername = "X-Username"
	HeaderRoles    = "X-User-Roles"

	RoleModerator = "MODERATOR"
)

type Identity struct {
	UserID   string
	Username string
	Roles    []string
}

func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if strings.EqualFold(strings.TrimPrefix(r, "ROLE_"), role) {
			return true
		}
	}
	return false
}

type RealmAccess struct {
	Roles []string `json:"roles,omitempty"`
}

// Claims covers the subset of an OpenID access token the services read.
type Claims struct {
	PreferredUsername string      `json:"preferred_username,omitempty"`
	Username          string      `json:"username,omitempty"`
	RealmAccess       RealmAccess `json:"realm_access,omitempty"`
	jwt.RegisteredClaims
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("token has no subject")
	}

	username := claims.PreferredUsername
	if username == "" {
		username = claims.Username
	}

	return Identity{
		UserID:   claims.Subject,
		Username: username,
		Roles:    claims.RealmAccess.Roles,
	}, nil
}

// Issue signs an HS256 token for id. Used by tests and local tooling; production tokens come from
// the identity provider.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		PreferredUsername: id.Username,
		RealmAccess:       RealmAccess{Roles: id.Roles},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// TokenFromRequest reads the bearer token, falling back to the token query parameter that
// browsers use for WebSocket upgrades.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// Middleware attaches the caller identity to the request context when one is presented. An
// invalid token is rejected; an absent one is left for RequireIdentity to decide.
func Middleware(cfg config.AuthConfig, log logger.Logger) gin.HandlerFunc {
	verifier := NewVerifier(cfg.JWTSecret)

	return func(c *gin.Context) {
		var id Identity
		if cfg.Enabled {
			token := TokenFromRequest(c.Request)
			if token == "" {
				c.Next()
				return
			}
			verified, err := verifier.Verify(token)
			if err != nil {
				log.WarnwCtx(c.Request.Context(), "Rejected bearer token", "error", err)
				c.AbortWithStatusJSON(http.StatusUnauthorized, errors.ToErrorResponse(errors.ErrUnauthorized.WithCause(err)))
				return
			}
			id = verified
		} else {
			id = Identity{
				UserID:   c.GetHeader(HeaderUserID),
				Username: c.GetHeader(HeaderUsername),
				Roles:    splitRoles(c.GetHeader(HeaderRoles)),
			}
			if id.UserID == "" {
				c.Next()
				return
			}
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := FromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errors.ToErrorResponse(errors.ErrUnauthorized))
			return
		}
		c.Next()
	}
}

func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := FromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errors.ToErrorResponse(errors.ErrUnauthorized))
			return
		}
		if !id.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, errors.ToErrorResponse(errors.ErrForbidden.WithMessage("role %s required", role)))
			return
		}
		c.Next()
	}
}

func splitRoles(header string) []string {
	if header == "" {
		return nil
	}
	var roles []string
	for _, r := range strings.Split(header, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
