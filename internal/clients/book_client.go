// Package clients holds the synchronous HTTP clients the services use to
// call each other. Every remote call runs behind a circuit breaker so that
// a dead peer fails fast instead of tying up request handlers.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/stellaselena/PG6100-bookexam/internal/schema"
)

// BookClient calls the book service. It satisfies member.BookService.
type BookClient struct {
	baseURL string
	client  *http.Client
	getCB   *gobreaker.CircuitBreaker
	postCB  *gobreaker.CircuitBreaker
	log     *zap.Logger
}

// NewBookClient creates a client for the book service at baseURL.
func NewBookClient(baseURL string, log *zap.Logger) *BookClient {
	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:    name,
			Timeout: 10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("Circuit breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}
	}

	return &BookClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		getCB:   gobreaker.NewCircuitBreaker(settings("get-book-by-name")),
		postCB:  gobreaker.NewCircuitBreaker(settings("post-book-for-sale")),
		log:     log,
	}
}

// GetBookByName fetches a book by its exact name. A missing book, transport
// failure or open circuit all come back as an error.
func (c *BookClient) GetBookByName(ctx context.Context, name string) (*schema.BookDto, error) {
	result, err := c.getCB.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.baseURL+"/books/name/"+url.PathEscape(name), nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("book service answered %d for book %q", resp.StatusCode, name)
		}

		var dto schema.BookDto
		if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
			return nil, err
		}
		return &dto, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*schema.BookDto), nil
}

// PostBookForSale asks the book service to announce a sale posting.
func (c *BookClient) PostBookForSale(ctx context.Context, dto schema.BookForSaleDto) error {
	_, err := c.postCB.Execute(func() (interface{}, error) {
		body, err := json.Marshal(dto)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/books/store", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("book service answered %d for the sale posting", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}
