package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	ctxUserIDKey   = "auth_user_id"
	ctxTenantIDKey = "auth_tenant_id"
	ctxRolesKey    = "auth_roles"

	// RoleAdmin may act on any tenant and on process-wide state.
	RoleAdmin = "admin"
)

// NewJWT returns an Echo middleware that validates HS256 access JWTs and
// stores user id, tenant id and roles in the context.
// Expected claims: sub (user id), ten (tenant id), roles ([]string, optional).
func NewJWT(signingKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			tokStr := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(tokStr, func(token *jwt.Token) (any, error) {
				return []byte(signingKey), nil
			}, jwt.WithLeeway(30*time.Second), jwt.WithIssuedAt(), jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid claims"})
			}
			sub, _ := claims["sub"].(string)
			ten, _ := claims["ten"].(string)
			uid, err1 := uuid.Parse(sub)
			tid, err2 := uuid.Parse(ten)
			if err1 != nil || err2 != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid subject or tenant"})
			}

			var roles []string
			if raw, ok := claims["roles"].([]any); ok {
				for _, r := range raw {
					if s, ok := r.(string); ok && s != "" {
						roles = append(roles, s)
					}
				}
			}

			c.Set(ctxUserIDKey, uid)
			c.Set(ctxTenantIDKey, tid)
			c.Set(ctxRolesKey, roles)
			return next(c)
		}
	}
}

// UserID returns the authenticated user's ID from context.
func UserID(c echo.Context) (uuid.UUID, bool) {
	v := c.Get(ctxUserIDKey)
	if v == nil {
		return uuid.UUID{}, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// TenantID returns the authenticated tenant's ID from context.
func TenantID(c echo.Context) (uuid.UUID, bool) {
	v := c.Get(ctxTenantIDKey)
	if v == nil {
		return uuid.UUID{}, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// HasRole reports whether the token carried the given role.
func HasRole(c echo.Context, role string) bool {
	roles, _ := c.Get(ctxRolesKey).([]string)
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// RequireRole rejects requests whose token lacks role. Use after NewJWT.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !HasRole(c, role) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireTenantParam checks that the path parameter name matches the token's
// tenant. Admins may address any tenant. Use after NewJWT.
func RequireTenantParam(name string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := uuid.Parse(c.Param(name))
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid tenant id"})
			}
			if HasRole(c, RoleAdmin) {
				return next(c)
			}
			tid, ok := TenantID(c)
			if !ok || tid != id {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "tenant mismatch"})
			}
			return next(c)
		}
	}
}
