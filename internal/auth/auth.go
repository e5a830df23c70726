// Package auth carries the authenticated principal between the gateway and
// the downstream services and provides the role and ownership checks that
// mutation endpoints run before their handlers.
package auth

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Headers the gateway sets on proxied requests. Downstream services trust
// them; they are only reachable through the gateway in a deployment.
const (
	HeaderUser  = "X-Auth-User"
	HeaderRoles = "X-Auth-Roles"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Principal is the authenticated caller.
type Principal struct {
	Name  string
	Roles []string
}

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// FromRequest extracts the principal forwarded by the gateway.
func FromRequest(r *http.Request) (Principal, bool) {
	name := r.Header.Get(HeaderUser)
	if name == "" {
		return Principal{}, false
	}

	var roles []string
	for _, role := range strings.Split(r.Header.Get(HeaderRoles), ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}

	return Principal{Name: name, Roles: roles}, true
}

// RequireRole rejects requests whose principal is missing (401) or does not
// carry the role (403).
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromRequest(r)
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if !p.HasRole(role) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner rejects requests whose principal name differs from the given
// path parameter. The check is a pure predicate with no side effects.
func RequireOwner(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromRequest(r)
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if p.Name != chi.URLParam(r, param) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
