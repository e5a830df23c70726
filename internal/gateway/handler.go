package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stellaselena/PG6100-bookexam/internal/schema"
	"github.com/stellaselena/PG6100-bookexam/internal/web"
)

// Publisher is the messaging seam; satisfied by *events.Publisher.
type Publisher interface {
	Publish(ctx context.Context, v interface{}) error
}

// Handler exposes registration, the current-user endpoint and the reverse
// proxy to the downstream services.
type Handler struct {
	svc       *Service
	sessions  *SessionStore
	publisher Publisher
	limiter   *rate.Limiter
	log       *zap.Logger
}

// NewHandler creates a new gateway handler
func NewHandler(svc *Service, sessions *SessionStore, publisher Publisher, log *zap.Logger) *Handler {
	return &Handler{
		svc:       svc,
		sessions:  sessions,
		publisher: publisher,
		limiter:   rate.NewLimiter(rate.Limit(5), 10),
		log:       log,
	}
}

// Routes builds the gateway router. Registration and the user endpoint live
// at the root; everything the downstream services expose is proxied under
// /api/v1.
func (h *Handler) Routes(bookURL, memberURL, storeURL string) chi.Router {
	r := chi.NewRouter()

	r.Post("/signIn", h.signIn)
	r.Get("/user", h.user)
	r.Post("/logout", h.logout)

	r.Mount("/api/v1/book-server", h.proxy(bookURL, "/api/v1/book-server"))
	r.Mount("/api/v1/member-server", h.proxy(memberURL, "/api/v1/member-server"))
	r.Mount("/api/v1/store-server", h.proxy(storeURL, "/api/v1/store-server"))

	return r
}

// signIn registers a new account and opens a session. Registration is
// rate-limited to slow down scripted account creation.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("the_user")
	password := r.PostFormValue("the_password")
	role := r.PostFormValue("the_role")

	user, err := h.svc.Register(r.Context(), username, password, role)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Fire-and-forget: the member service materializes the member from the
	// fanout. A failed publish is logged and the registration still counts.
	dto := schema.MemberDto{
		Username: &user.Username,
		Books:    map[string]int{},
		ID:       &user.Username,
	}
	if err := h.publisher.Publish(r.Context(), dto); err != nil {
		h.log.Warn("Failed to publish member-created", zap.String("username", user.Username), zap.Error(err))
	}

	SetCookie(w, h.sessions.Start(user.Username))
	w.WriteHeader(http.StatusNoContent)
}

// user answers the authenticated principal's name and roles.
func (h *Handler) user(w http.ResponseWriter, r *http.Request) {
	account, ok := h.authenticate(r)
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	web.JSON(w, http.StatusOK, map[string]interface{}{
		"name":  account.Username,
		"roles": account.Roles,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		h.sessions.End(cookie.Value)
	}
	w.WriteHeader(http.StatusNoContent)
}

// authenticate resolves the caller from the session cookie, falling back to
// HTTP Basic against the users table.
func (h *Handler) authenticate(r *http.Request) (*User, bool) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if username, ok := h.sessions.Lookup(cookie.Value); ok {
			if user, err := h.svc.repo.Get(r.Context(), username); err == nil && user.Enabled {
				return user, true
			}
		}
	}

	if username, password, ok := r.BasicAuth(); ok {
		if user, err := h.svc.Authenticate(r.Context(), username, password); err == nil {
			return user, true
		}
	}

	return nil, false
}

func rolesHeader(roles RoleList) string {
	return strings.Join(roles, ",")
}
