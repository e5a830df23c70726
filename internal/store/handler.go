package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stellaselena/PG6100-bookexam/internal/auth"
	"github.com/stellaselena/PG6100-bookexam/internal/mergepatch"
	"github.com/stellaselena/PG6100-bookexam/internal/schema"
	"github.com/stellaselena/PG6100-bookexam/internal/web"
)

// Merge-patch policy for listings: all three fields are mandatory. Name and
// seller survive an explicit null; a null price rejects the patch.
var patchFields = []mergepatch.Field{
	{Name: "name", Kind: mergepatch.String, OnNull: mergepatch.KeepOnNull},
	{Name: "soldBy", Kind: mergepatch.String, OnNull: mergepatch.KeepOnNull},
	{Name: "price", Kind: mergepatch.Int, OnNull: mergepatch.RejectNull},
}

// Handler exposes the store REST API.
type Handler struct {
	repo *Repository
	log  *zap.Logger
}

// NewHandler creates a new store handler
func NewHandler(repo *Repository, log *zap.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log,
	}
}

// Routes builds the router to be mounted at /store. The router allows a
// single wildcard name per segment, so the first path parameter is {soldBy}
// even on the lookup-by-id route.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Get("/last", h.lastPosted)
	r.Post("/", h.create)

	r.Route("/{soldBy}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Get("/books", h.listBySeller)

		owner := r.With(auth.RequireRole(auth.RoleUser), auth.RequireOwner("soldBy"))
		owner.Delete("/book/{id}", h.delete)
		owner.Patch("/book/{id}", h.mergePatch)
	})

	return r
}

// HandleBookForSaleCreated consumes a bookforsale-created event published by
// the book service. Invalid payloads are logged and discarded.
func (h *Handler) HandleBookForSaleCreated(body []byte) {
	var dto schema.BookForSaleDto
	if err := json.Unmarshal(body, &dto); err != nil {
		h.log.Warn("Discarding malformed bookforsale-created event", zap.Error(err))
		return
	}
	if dto.Name == nil || dto.SoldBy == nil || dto.Price == nil {
		h.log.Warn("Discarding incomplete bookforsale-created event")
		return
	}

	ctx := context.Background()
	if _, err := h.repo.Create(ctx, *dto.Name, *dto.SoldBy, *dto.Price); err != nil {
		h.log.Warn("Discarding bookforsale-created event", zap.String("name", *dto.Name), zap.Error(err))
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		listings []BookForSale
		err      error
	)
	if name := r.URL.Query().Get("name"); name != "" {
		listings, err = h.repo.ListByName(r.Context(), name)
	} else {
		listings, err = h.repo.List(r.Context())
	}
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	web.JSON(w, http.StatusOK, ToDtos(listings))
}

func (h *Handler) lastPosted(w http.ResponseWriter, r *http.Request) {
	listings, err := h.repo.LastPosted(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	web.JSON(w, http.StatusOK, ToDtos(listings))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "soldBy"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	listing, err := h.repo.Get(r.Context(), id)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	web.JSON(w, http.StatusOK, ToDto(*listing))
}

func (h *Handler) listBySeller(w http.ResponseWriter, r *http.Request) {
	listings, err := h.repo.ListBySoldBy(r.Context(), chi.URLParam(r, "soldBy"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	web.JSON(w, http.StatusOK, ToDtos(listings))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var dto schema.BookForSaleDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// The id is server-assigned; a create body must not carry one.
	if dto.ID != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if dto.Name == nil || dto.SoldBy == nil || dto.Price == nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	id, err := h.repo.Create(r.Context(), *dto.Name, *dto.SoldBy, *dto.Price)
	if err != nil {
		if errors.Is(err, ErrInvalidListing) {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	web.JSON(w, http.StatusCreated, id)
}

func (h *Handler) mergePatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	listing, err := h.repo.Get(r.Context(), id)
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
			listing.Name = ch.Str
		case "soldBy":
			listing.SoldBy = ch.Str
		case "price":
			listing.Price = ch.Num
		}
	}

	if err := h.repo.Update(r.Context(), listing); err != nil {
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
	case errors.Is(err, ErrListingNotFound):
		w.WriteHeader(http.StatusNotFound)
	case err != nil:
		w.WriteHeader(http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
