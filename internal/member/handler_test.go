package member

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellaselena/PG6100-bookexam/internal/auth"
	"github.com/stellaselena/PG6100-bookexam/internal/schema"
	"github.com/stellaselena/PG6100-bookexam/pkg/logger"
)

// fakeBookService answers GetBookByName and PostBookForSale from canned
// state, standing in for the circuit-broken HTTP client.
type fakeBookService struct {
	knownBooks map[string]bool
	postFails  bool
	posted     []schema.BookForSaleDto
}

func (f *fakeBookService) GetBookByName(_ context.Context, name string) (*schema.BookDto, error) {
	if !f.knownBooks[name] {
		return nil, errors.New("book service answered 404")
	}
	return &schema.BookDto{Name: &name}, nil
}

func (f *fakeBookService) PostBookForSale(_ context.Context, dto schema.BookForSaleDto) error {
	if f.postFails {
		return errors.New("book service unavailable")
	}
	f.posted = append(f.posted, dto)
	return nil
}

func setupHandler(t *testing.T) (*Handler, *fakeBookService, chi.Router) {
	repo := testRepo(t)
	books := &fakeBookService{knownBooks: map[string]bool{}}
	handler := NewHandler(repo, books, logger.NewLogger("test", "error"))

	r := chi.NewRouter()
	r.Mount("/members", handler.Routes())
	return handler, books, r
}

func doRequest(r chi.Router, method, path, body, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(auth.HeaderUser, user)
		req.Header.Set(auth.HeaderRoles, auth.RoleUser)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateMemberEndpoint(t *testing.T) {
	_, _, r := setupHandler(t)

	rec := doRequest(r, http.MethodPost, "/members", `{"id": "Alice", "username": "Alice", "books": {}}`, "Alice")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Body.String())

	// Username is stored lowercased
	rec = doRequest(r, http.MethodGet, "/members?username=alice", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alice"`)
}

func TestCreateMemberEndpointRejects(t *testing.T) {
	_, _, r := setupHandler(t)

	rec := doRequest(r, http.MethodPost, "/members", `{"id": "a", "username": "alice", "books": {}}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cases := map[string]string{
		"missing username": `{"id": "a", "books": {}}`,
		"missing id":       `{"username": "a", "books": {}}`,
		"missing books":    `{"id": "a", "username": "a"}`,
		"not json":         `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(r, http.MethodPost, "/members", body, "a")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateMemberEndpointDuplicate(t *testing.T) {
	_, _, r := setupHandler(t)

	rec := doRequest(r, http.MethodPost, "/members", `{"id": "a", "username": "alice", "books": {}}`, "a")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(r, http.MethodPost, "/members", `{"id": "b", "username": "ALICE", "books": {}}`, "b")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetMemberEndpoint(t *testing.T) {
	handler, _, r := setupHandler(t)
	require.NoError(t, handler.repo.Create(context.Background(), "alice", "alice", nil))

	rec := doRequest(r, http.MethodGet, "/members/alice", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(r, http.MethodGet, "/members/ghost", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateMemberEndpoint(t *testing.T) {
	handler, _, r := setupHandler(t)
	require.NoError(t, handler.repo.Create(context.Background(), "alice", "alice", nil))

	rec := doRequest(r, http.MethodPut, "/members/alice", `{"id": "alice", "username": "alice2", "books": {"dune": 3}}`, "alice")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	member, err := handler.repo.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice2", member.Username)
	assert.Equal(t, BookMap{"dune": 3}, member.Books)

	// Body id must repeat the path id
	rec = doRequest(r, http.MethodPut, "/members/alice", `{"id": "bob", "username": "x", "books": {}}`, "alice")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Only the owner may update
	rec = doRequest(r, http.MethodPut, "/members/alice", `{"id": "alice", "username": "x", "books": {}}`, "mallory")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPatchUsernameEndpoint(t *testing.T) {
	handler, _, r := setupHandler(t)
	require.NoError(t, handler.repo.Create(context.Background(), "alice", "alice", nil))

	rec := doRequest(r, http.MethodPatch, "/members/alice/username", "wonderland", "alice")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	member, err := handler.repo.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "wonderland", member.Username)

	rec = doRequest(r, http.MethodPatch, "/members/alice/username", " ", "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(r, http.MethodPatch, "/members/ghost/username", "x", "ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMergePatchMemberEndpoint(t *testing.T) {
	handler, _, r := setupHandler(t)
	require.NoError(t, handler.repo.Create(context.Background(), "alice", "alice", BookMap{"dune": 10, "emma": 5}))

	// Null keeps both fields; a present map merges additively.
	rec := doRequest(r, http.MethodPatch, "/members/alice", `{"username": null, "books": {"dune": 20, "ubik": 7}}`, "alice")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	member, err := handler.repo.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", member.Username)
	assert.Equal(t, BookMap{"dune": 20, "emma": 5, "ubik": 7}, member.Books)

	rec = doRequest(r, http.MethodPatch, "/members/alice", `{"books": null}`, "alice")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	member, err = handler.repo.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, member.Books, 3)

	// A whitespace-only username never makes it into storage
	rec = doRequest(r, http.MethodPatch, "/members/alice", `{"username": " "}`, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	member, err = handler.repo.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", member.Username)

	rec = doRequest(r, http.MethodPatch, "/members/alice", `{"id": "other"}`, "alice")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteMemberEndpoint(t *testing.T) {
	handler, _, r := setupHandler(t)
	require.NoError(t, handler.repo.Create(context.Background(), "alice", "alice", nil))

	rec := doRequest(r, http.MethodDelete, "/members/alice", "", "alice")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(r, http.MethodDelete, "/members/alice", "", "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddBookEndpoint(t *testing.T) {
	handler, books, r := setupHandler(t)
	require.NoError(t, handler.repo.Create(context.Background(), "alice", "alice", nil))
	books.knownBooks["dune"] = true

	rec := doRequest(r, http.MethodPost, "/members/alice/books", `{"name": "dune", "soldBy": "alice", "price": 10}`, "alice")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, books.posted, 1)

	member, err := handler.repo.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, BookMap{"dune": 10}, member.Books)

	// Already selling that name
	rec = doRequest(r, http.MethodPost, "/members/alice/books", `{"name": "dune", "soldBy": "alice", "price": 10}`, "alice")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddBookEndpointRejects(t *testing.T) {
	handler, books, r := setupHandler(t)
	require.NoError(t, handler.repo.Create(context.Background(), "alice", "alice", nil))
	books.knownBooks["dune"] = true

	cases := map[string]string{
		"price not positive": `{"name": "dune", "soldBy": "alice", "price": 0}`,
		"wrong seller":       `{"name": "dune", "soldBy": "bob", "price": 10}`,
		"blank name":         `{"name": " ", "soldBy": "alice", "price": 10}`,
		"unknown book":       `{"name": "ghostbook", "soldBy": "alice", "price": 10}`,
		"missing fields":     `{"name": "dune"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(r, http.MethodPost, "/members/alice/books", body, "alice")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	rec := doRequest(r, http.MethodPost, "/members/ghost/books", `{"name": "dune", "soldBy": "ghost", "price": 10}`, "ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A failed downstream hand-off fails the whole operation
	books.postFails = true
	rec = doRequest(r, http.MethodPost, "/members/alice/books", `{"name": "dune", "soldBy": "alice", "price": 10}`, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	member, err := handler.repo.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, member.Books)
}

func TestHandleMemberCreated(t *testing.T) {
	handler, _, _ := setupHandler(t)

	handler.HandleMemberCreated([]byte(`{"id": "Bob", "username": "Bob", "books": {}}`))

	member, err := handler.repo.Get(context.Background(), "Bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", member.Username)

	// Malformed and duplicate events are swallowed
	handler.HandleMemberCreated([]byte(`not json`))
	handler.HandleMemberCreated([]byte(`{"id": "Bob", "username": "Bob"}`))

	members, err := handler.repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, members, 1)
}
