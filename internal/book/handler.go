package book

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stellaselena/PG6100-bookexam/internal/auth"
	"github.com/stellaselena/PG6100-bookexam/internal/mergepatch"
	"github.com/stellaselena/PG6100-bookexam/internal/schema"
	"github.com/stellaselena/PG6100-bookexam/internal/web"
)

// Publisher is the messaging seam; satisfied by *events.Publisher.
type Publisher interface {
	Publish(ctx context.Context, v interface{}) error
}

// Merge-patch policy for books: name is mandatory and survives an explicit
// null, every other field is nullable.
var patchFields = []mergepatch.Field{
	{Name: "name", Kind: mergepatch.String, OnNull: mergepatch.KeepOnNull},
	{Name: "description", Kind: mergepatch.String, OnNull: mergepatch.ClearOnNull},
	{Name: "genre", Kind: mergepatch.String, OnNull: mergepatch.ClearOnNull},
	{Name: "author", Kind: mergepatch.String, OnNull: mergepatch.ClearOnNull},
	{Name: "price", Kind: mergepatch.Int, OnNull: mergepatch.ClearOnNull},
	{Name: "rating", Kind: mergepatch.Int, OnNull: mergepatch.ClearOnNull},
}

// Handler exposes the book REST API.
type Handler struct {
	repo      *Repository
	publisher Publisher
	log       *zap.Logger
}

// NewHandler creates a new book handler
func NewHandler(repo *Repository, publisher Publisher, log *zap.Logger) *Handler {
	return &Handler{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// Routes builds the router to be mounted at /books. Reads are public,
// mutations require the ADMIN role.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Get("/name/{name}", h.getByName)
	r.Get("/{id}", h.get)

	// The sale hand-off is called service-to-service by memberd and carries
	// no principal; it only forwards to the fanout.
	r.Post("/store", h.postForSale)

	admin := r.With(auth.RequireRole(auth.RoleAdmin))
	admin.Post("/", h.create)
	admin.Put("/{id}", h.update)
	admin.Patch("/{id}/price", h.patchPrice)
	admin.Patch("/{id}", h.mergePatch)
	admin.Delete("/{id}", h.delete)

	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		books []Book
		err   error
	)
	if name := r.URL.Query().Get("name"); name != "" {
		books, err = h.repo.ListByName(r.Context(), name)
	} else {
		books, err = h.repo.List(r.Context())
	}
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	web.JSON(w, http.StatusOK, ToDtos(books))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	book, err := h.repo.Get(r.Context(), id)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	web.JSON(w, http.StatusOK, ToDto(*book))
}

func (h *Handler) getByName(w http.ResponseWriter, r *http.Request) {
	book, err := h.repo.FirstByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	web.JSON(w, http.StatusOK, ToDto(*book))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var dto schema.BookDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// The id is server-assigned; a create body must not carry one.
	if dto.ID != nil && *dto.ID != "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !validCreateDto(dto) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	book := &Book{
		Name:        *dto.Name,
		Description: dto.Description,
		Genre:       dto.Genre,
		Author:      dto.Author,
		Price:       dto.Price,
		Rating:      dto.Rating,
	}

	id, err := h.repo.Create(r.Context(), book)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	web.JSON(w, http.StatusCreated, id)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	pathID := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(pathID, 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var dto schema.BookDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Identity is immutable: the body must repeat the path id.
	if dto.ID == nil || *dto.ID != pathID {
		w.WriteHeader(http.StatusConflict)
		return
	}

	if _, err := h.repo.Get(r.Context(), id); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !validCreateDto(dto) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	book := &Book{
		ID:          id,
		Name:        *dto.Name,
		Description: dto.Description,
		Genre:       dto.Genre,
		Author:      dto.Author,
		Price:       dto.Price,
		Rating:      dto.Rating,
	}

	if err := h.repo.Update(r.Context(), book); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) patchPrice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Unparsable bodies fall through as 0, which the bounds check accepts.
	price, _ := strconv.Atoi(strings.TrimSpace(string(body)))

	switch err := h.repo.UpdatePrice(r.Context(), id, price); {
	case errors.Is(err, ErrBookNotFound):
		w.WriteHeader(http.StatusNotFound)
	case err != nil:
		w.WriteHeader(http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) mergePatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	book, err := h.repo.Get(r.Context(), id)
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

	for name, ch := range changes {
		switch name {
		case "name":
			book.Name = ch.Str
		case "description":
			book.Description = strPtr(ch)
		case "genre":
			book.Genre = strPtr(ch)
		case "author":
			book.Author = strPtr(ch)
		case "price":
			book.Price = intPtr(ch)
		case "rating":
			book.Rating = intPtr(ch)
		}
	}

	if err := h.repo.Update(r.Context(), book); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch err := h.repo.Delete(r.Context(), id); {
	case errors.Is(err, ErrBookNotFound):
		w.WriteHeader(http.StatusNotFound)
	case err != nil:
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// postForSale hands the sale posting to the store fanout. The publish is
// fire-and-forget; a failed hand-off answers conflict without touching any
// book state.
func (h *Handler) postForSale(w http.ResponseWriter, r *http.Request) {
	var dto schema.BookForSaleDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.publisher.Publish(r.Context(), dto); err != nil {
		h.log.Warn("Failed to publish book for sale", zap.Error(err))
		w.WriteHeader(http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func validCreateDto(dto schema.BookDto) bool {
	if blank(dto.Name) || blank(dto.Description) || blank(dto.Genre) || blank(dto.Author) {
		return false
	}
	if dto.Price == nil || *dto.Price == 0 {
		return false
	}
	if dto.Rating == nil || *dto.Rating == 0 || *dto.Rating > 5 {
		return false
	}
	return true
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func strPtr(ch mergepatch.Change) *string {
	if ch.Clear {
		return nil
	}
	v := ch.Str
	return &v
}

func intPtr(ch mergepatch.Change) *int {
	if ch.Clear {
		return nil
	}
	v := ch.Num
	return &v
}
