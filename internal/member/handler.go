package member

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stellaselena/PG6100-bookexam/internal/auth"
	"github.com/stellaselena/PG6100-bookexam/internal/mergepatch"
	"github.com/stellaselena/PG6100-bookexam/internal/schema"
	"github.com/stellaselena/PG6100-bookexam/internal/web"
)

// BookService is the synchronous dependency on the book service; satisfied
// by *clients.BookClient. Both calls sit behind circuit breakers and answer
// an error for any timeout, open circuit or non-200 response.
type BookService interface {
	GetBookByName(ctx context.Context, name string) (*schema.BookDto, error)
	PostBookForSale(ctx context.Context, dto schema.BookForSaleDto) error
}

// Merge-patch policy for members: both fields are mandatory. A null book
// map keeps the stored map; a present map merges additively in the handler.
var patchFields = []mergepatch.Field{
	{Name: "username", Kind: mergepatch.String, OnNull: mergepatch.KeepOnNull},
	{Name: "books", Kind: mergepatch.IntMap, OnNull: mergepatch.KeepOnNull},
}

// Handler exposes the member REST API.
type Handler struct {
	repo  *Repository
	books BookService
	log   *zap.Logger
}

// NewHandler creates a new member handler
func NewHandler(repo *Repository, books BookService, log *zap.Logger) *Handler {
	return &Handler{
		repo:  repo,
		books: books,
		log:   log,
	}
}

// Routes builds the router to be mounted at /members. Reads are public;
// creation needs the USER role and per-member mutation needs ownership.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Get("/{id}", h.get)

	r.With(auth.RequireRole(auth.RoleUser)).Post("/", h.create)

	owner := r.With(auth.RequireRole(auth.RoleUser), auth.RequireOwner("id"))
	owner.Put("/{id}", h.update)
	owner.Patch("/{id}/username", h.patchUsername)
	owner.Patch("/{id}", h.mergePatch)
	owner.Delete("/{id}", h.delete)
	owner.Post("/{id}/books", h.addBook)

	return r
}

// HandleMemberCreated consumes a member-created event from the gateway.
// Failures (malformed payloads, duplicate ids from redelivery) are logged
// and discarded; the channel is at-most-once by contract.
func (h *Handler) HandleMemberCreated(body []byte) {
	var dto schema.MemberDto
	if err := json.Unmarshal(body, &dto); err != nil {
		h.log.Warn("Discarding malformed member-created event", zap.Error(err))
		return
	}
	if dto.Username == nil || dto.ID == nil {
		h.log.Warn("Discarding incomplete member-created event")
		return
	}

	username := strings.ToLower(*dto.Username)
	if err := h.repo.Create(context.Background(), *dto.ID, username, BookMap{}); err != nil {
		h.log.Warn("Discarding member-created event", zap.String("id", *dto.ID), zap.Error(err))
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		members []Member
		err     error
	)
	if username := r.URL.Query().Get("username"); username != "" {
		members, err = h.repo.ListByUsername(r.Context(), strings.ToLower(username))
	} else {
		members, err = h.repo.List(r.Context())
	}
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	web.JSON(w, http.StatusOK, ToDtos(members))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	member, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	web.JSON(w, http.StatusOK, ToDto(*member))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var dto schema.MemberDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if !validCreateDto(dto) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	username := strings.ToLower(*dto.Username)

	taken, err := h.repo.ExistsByUsername(r.Context(), username)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if taken {
		w.WriteHeader(http.StatusConflict)
		return
	}

	if err := h.repo.Create(r.Context(), *dto.ID, username, BookMap{}); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	pathID := chi.URLParam(r, "id")

	var dto schema.MemberDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Identity is immutable: the body must repeat the path id.
	if dto.ID == nil || *dto.ID != pathID {
		w.WriteHeader(http.StatusConflict)
		return
	}

	if _, err := h.repo.Get(r.Context(), pathID); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !validCreateDto(dto) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.repo.Update(r.Context(), pathID, *dto.Username, BookMap(dto.Books)); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) patchUsername(w http.ResponseWriter, r *http.Request) {
	pathID := chi.URLParam(r, "id")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(string(body))

	switch err := h.repo.UpdateUsername(r.Context(), pathID, username); {
	case errors.Is(err, ErrMemberNotFound):
		w.WriteHeader(http.StatusNotFound)
	case err != nil:
		w.WriteHeader(http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) mergePatch(w http.ResponseWriter, r *http.Request) {
	member, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	changes, err := mergepatch.Apply(body, patchFields)
	if err != nil {
		if errors.Is(err, mergepatch.ErrImmutableID) {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	username := member.Username
	books := member.Books
	if books == nil {
		books = BookMap{}
	}

	for name, ch := range changes {
		switch name {
		case "username":
			username = ch.Str
		case "books":
			// Additive merge: incoming entries overwrite, keys not
			// mentioned in the patch are preserved.
			for k, v := range ch.Map {
				books[k] = v
			}
		}
	}

	if err := h.repo.Update(r.Context(), member.ID, username, books); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	switch err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); {
	case errors.Is(err, ErrMemberNotFound):
		w.WriteHeader(http.StatusNotFound)
	case err != nil:
		w.WriteHeader(http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// addBook validates a sale posting against the book service before
// recording it on the member. A downstream timeout, open circuit or
// non-200 answer fails the whole operation locally; nothing is retried.
func (h *Handler) addBook(w http.ResponseWriter, r *http.Request) {
	pathID := chi.URLParam(r, "id")

	member, err := h.repo.Get(r.Context(), pathID)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var dto schema.BookForSaleDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if dto.Name == nil || dto.Price == nil || dto.SoldBy == nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if _, selling := member.Books[*dto.Name]; selling {
		w.WriteHeader(http.StatusConflict)
		return
	}
	if *dto.Price <= 0 || *dto.SoldBy != member.Username || strings.TrimSpace(*dto.Name) == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if _, err := h.books.GetBookByName(r.Context(), *dto.Name); err != nil {
		h.log.Info("Book lookup failed", zap.String("name", *dto.Name), zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.books.PostBookForSale(r.Context(), dto); err != nil {
		h.log.Info("Posting book for sale failed", zap.String("name", *dto.Name), zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.repo.AddBook(r.Context(), pathID, *dto.Name, *dto.Price); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func validCreateDto(dto schema.MemberDto) bool {
	if dto.Username == nil || strings.TrimSpace(*dto.Username) == "" {
		return false
	}
	if dto.ID == nil || strings.TrimSpace(*dto.ID) == "" {
		return false
	}
	return dto.Books != nil
}
