package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amw "github.com/corvusHold/shopmail/internal/auth/middleware"
)

func TestParseRoles(t *testing.T) {
	assert.Equal(t, []string{"admin", "member"}, parseRoles("Admin, member,ADMIN,,member "))
	assert.Nil(t, parseRoles(""))
}

func TestMintToken_AcceptedByMiddleware(t *testing.T) {
	tenant := uuid.New()
	now := time.Now()
	tok, err := mintToken("test-key", bootstrapResult{
		TenantID:  tenant,
		UserID:    tenant,
		Roles:     []string{"admin"},
		ExpiresAt: now.Add(time.Minute),
	}, now)
	require.NoError(t, err)

	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		tid, _ := amw.TenantID(c)
		return c.JSON(http.StatusOK, map[string]any{"tenant": tid.String(), "admin": amw.HasRole(c, amw.RoleAdmin)})
	}, amw.NewJWT("test-key"))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), tenant.String())
	assert.Contains(t, rec.Body.String(), `"admin":true`)
}
