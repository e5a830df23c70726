package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"github.com/stellaselena/PG6100-bookexam/internal/auth"
)

// proxy forwards authenticated requests to one downstream service, with the
// mount prefix stripped and the principal injected as trusted headers. The
// downstream services never see the session or Basic credentials.
func (h *Handler) proxy(target, prefix string) http.Handler {
	remote, err := url.Parse(target)
	if err != nil {
		h.log.Fatal("Invalid downstream URL", zap.String("target", target), zap.Error(err))
	}

	rp := httputil.NewSingleHostReverseProxy(remote)
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		h.log.Warn("Proxy error", zap.String("target", target), zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
	}

	forward := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := h.authenticate(r)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		r.Header.Del("Authorization")
		r.Header.Del("Cookie")
		r.Header.Set(auth.HeaderUser, account.Username)
		r.Header.Set(auth.HeaderRoles, rolesHeader(account.Roles))

		rp.ServeHTTP(w, r)
	})

	return http.StripPrefix(prefix, forward)
}
