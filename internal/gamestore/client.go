// Package gamestore is the REST client for game-store-api.
package gamestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodySize = 8 << 20

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Transport defaults to http.DefaultTransport; it is always wrapped with otelhttp.
	Transport http.RoundTripper
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout == 0 {
		openTimeout = 30 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "game-store-api",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		breaker: breaker,
	}
}

// countsAsSuccess keeps client-side problems (4xx, cancellation) from
// tripping the breaker; only transport failures and 5xx count.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindStatus {
		return apiErr.Status < 500
	}
	return false
}

func (c *Client) Wishlist(ctx context.Context, token string) ([]domain.WishlistItem, error) {
	var entries []WishlistEntry
	if err := c.do(ctx, http.MethodGet, "/customers/me/wishlist", token, nil, &entries); err != nil {
		return nil, err
	}

	items := make([]domain.WishlistItem, 0, len(entries))
	for _, e := range entries {
		item, err := e.ToDomain()
		if err != nil {
			slog.WarnContext(ctx, "skipping wishlist entry without identity", "name", e.Name)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Client) AddWishlist(ctx context.Context, token string, item domain.WishlistItem) error {
	return c.do(ctx, http.MethodPost, "/customers/me/wishlist", token, EntryFromDomain(item), nil)
}

// RemoveWishlist treats a 404 as already removed.
func (c *Client) RemoveWishlist(ctx context.Context, token string, id domain.Identity) error {
	path := "/customers/me/wishlist/" + url.PathEscape(id.Key())
	err := c.do(ctx, http.MethodDelete, path, token, nil, nil)
	if IsStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

func (c *Client) SearchGames(ctx context.Context, query string, limit int) ([]Game, error) {
	q := url.Values{}
	q.Set("search", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var games []Game
	if err := c.do(ctx, http.MethodGet, "/games?"+q.Encode(), "", nil, &games); err != nil {
		return nil, err
	}
	return games, nil
}

func (c *Client) Game(ctx context.Context, id string) (*Game, error) {
	var game Game
	if err := c.do(ctx, http.MethodGet, "/games/"+url.PathEscape(id), "", nil, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

func (c *Client) ActivePromotions(ctx context.Context) ([]domain.Promotion, error) {
	var promos []domain.Promotion
	if err := c.do(ctx, http.MethodGet, "/promotions/store/active", "", nil, &promos); err != nil {
		return nil, err
	}
	return promos, nil
}

func (c *Client) SubmitReport(ctx context.Context, token string, report Report) error {
	return c.do(ctx, http.MethodPost, "/customers/me/reports", token, report, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, token, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &Error{Kind: KindUnavailable, Err: err}
	}
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := decodeEnvelope(raw, out); err != nil {
		return &Error{Kind: KindDecode, Err: err}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindNetwork, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Kind: KindStatus, Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Message = strings.TrimSpace(eb.Message)
		}
		if apiErr.Message == "" {
			apiErr.Err = errors.New(http.StatusText(resp.StatusCode))
		}
		return nil, apiErr
	}

	return data, nil
}

// decodeEnvelope accepts either the bare payload or one wrapped in
// {"data": ...} / {"items": ...}, both of which the backend uses.
func decodeEnvelope(raw []byte, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env struct {
			Data  json.RawMessage `json:"data"`
			Items json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &env); err == nil {
			switch {
			case len(env.Data) > 0 && string(env.Data) != "null":
				return json.Unmarshal(env.Data, out)
			case len(env.Items) > 0 && string(env.Items) != "null":
				return json.Unmarshal(env.Items, out)
			}
		}
	}
	return json.Unmarshal(trimmed, out)
}
