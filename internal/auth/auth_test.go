package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUser, "alice")
	req.Header.Set(HeaderRoles, "USER, ADMIN")

	p, ok := FromRequest(req)
	require.True(t, ok)
	assert.Equal(t, "alice", p.Name)
	assert.Equal(t, []string{"USER", "ADMIN"}, p.Roles)
	assert.True(t, p.HasRole(RoleAdmin))
	assert.False(t, p.HasRole("OTHER"))
}

func TestFromRequestMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := FromRequest(req)
	assert.False(t, ok)
}

func TestRequireRole(t *testing.T) {
	r := chi.NewRouter()
	r.With(RequireRole(RoleAdmin)).Get("/admin", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// No principal
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong role
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(HeaderUser, "alice")
	req.Header.Set(HeaderRoles, RoleUser)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Right role
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(HeaderUser, "alice")
	req.Header.Set(HeaderRoles, RoleUser+","+RoleAdmin)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireOwner(t *testing.T) {
	r := chi.NewRouter()
	r.With(RequireOwner("id")).Delete("/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Principal is not the owner
	req := httptest.NewRequest(http.MethodDelete, "/alice", nil)
	req.Header.Set(HeaderUser, "mallory")
	req.Header.Set(HeaderRoles, RoleUser)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Principal is the owner
	req = httptest.NewRequest(http.MethodDelete, "/alice", nil)
	req.Header.Set(HeaderUser, "alice")
	req.Header.Set(HeaderRoles, RoleUser)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
