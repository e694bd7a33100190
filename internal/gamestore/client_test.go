package gamestore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second, FailureThreshold: 2, OpenTimeout: time.Minute})
}

func TestWishlist_SendsBearerAndDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers/me/wishlist", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"steamAppId":1145360,"name":"Hades","price":"$24.99"},
			{"slug":"celeste","name":"Celeste"},
			{"name":"no identity"}
		]}`))
	})

	items, err := client.Wishlist(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "steam:1145360", items[0].Identity.Key())
	assert.Equal(t, "$24.99", items[0].PriceLabel)
	assert.Equal(t, "slug:celeste", items[1].Identity.Key())
}

func TestWishlist_BareArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"gameId":"42","name":"Answer"}]`))
	})

	items, err := client.Wishlist(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(42), items[0].Identity.SteamAppID)
}

func TestStatusError_CarriesBackendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Token expired"}`))
	})

	_, err := client.Wishlist(context.Background(), "tok")
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindStatus, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Token expired", UserMessage(err))
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestStatusError_WithoutBodyUsesDefaultMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Game(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "The requested item was not found.", UserMessage(err))
	assert.Contains(t, err.Error(), "Not Found")
}

func TestMalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":`))
	})

	_, err := client.ActivePromotions(context.Background())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindDecode, apiErr.Kind)
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(Config{BaseURL: srv.URL})

	_, err := client.SearchGames(context.Background(), "hades", 5)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindNetwork, apiErr.Kind)
	assert.Contains(t, UserMessage(err), "Unable to reach the store")
}

func TestBreakerOpensAfterServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.ActivePromotions(ctx)
		assert.True(t, IsStatus(err, http.StatusBadGateway))
	}

	_, err := client.ActivePromotions(ctx)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindUnavailable, apiErr.Kind)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientErrorsDoNotOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	for i := 0; i < 5; i++ {
		err := client.SubmitReport(context.Background(), "tok", Report{Title: "t"})
		assert.True(t, IsStatus(err, http.StatusBadRequest))
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestRemoveWishlist_NotFoundIsNoop(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/customers/me/wishlist/slug:celeste", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})

	assert.NoError(t, client.RemoveWishlist(context.Background(), "tok", domain.SlugIdentity("celeste")))
}

func TestAddWishlist_PostsEntry(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var got WishlistEntry
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, int64(10), got.SteamAppID)
		assert.Equal(t, "Counter-Strike", got.Name)
		w.WriteHeader(http.StatusCreated)
	})

	err := client.AddWishlist(context.Background(), "tok", domain.WishlistItem{
		Identity: domain.SteamIdentity(10),
		Name:     "Counter-Strike",
	})
	assert.NoError(t, err)
}

func TestSearchGames_QueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/games", r.URL.Path)
		assert.Equal(t, "dead cells", r.URL.Query().Get("search"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[{"id":"588650","name":"Dead Cells","price":24.99}]}`))
	})

	games, err := client.SearchGames(context.Background(), "dead cells", 3)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "Dead Cells", games[0].Name)
	assert.InDelta(t, 24.99, games[0].Price, 0.001)
}

func TestCancelledContext(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Wishlist(ctx, "tok")
	assert.ErrorIs(t, err, context.Canceled)
}
