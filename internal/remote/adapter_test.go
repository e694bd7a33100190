package remote

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/draft"
	"github.com/fjod/go_cart/storefront/internal/gamestore"
	"github.com/fjod/go_cart/storefront/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBackend answers Wishlist calls from a queue of scripted responses.
// Each response waits for its release channel, ignoring cancellation, so
// tests can deliver a stale answer after a newer one.
type mockBackend struct {
	m         sync.Mutex
	responses []*scripted
	calls     int
	added     []domain.WishlistItem
	removed   []domain.Identity
	pushErr   error
}

type scripted struct {
	items   []domain.WishlistItem
	err     error
	release chan struct{}
}

func (m *mockBackend) script(items []domain.WishlistItem, err error) *scripted {
	m.m.Lock()
	defer m.m.Unlock()
	s := &scripted{items: items, err: err, release: make(chan struct{})}
	m.responses = append(m.responses, s)
	return s
}

func (m *mockBackend) Wishlist(context.Context, string) ([]domain.WishlistItem, error) {
	m.m.Lock()
	s := m.responses[m.calls]
	m.calls++
	m.m.Unlock()

	<-s.release
	return s.items, s.err
}

func (m *mockBackend) AddWishlist(_ context.Context, _ string, item domain.WishlistItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.added = append(m.added, item)
	return m.pushErr
}

func (m *mockBackend) RemoveWishlist(_ context.Context, _ string, id domain.Identity) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.removed = append(m.removed, id)
	return m.pushErr
}

func (m *mockBackend) callCount() int {
	m.m.Lock()
	defer m.m.Unlock()
	return m.calls
}

func (m *mockBackend) pushed() []domain.WishlistItem {
	m.m.Lock()
	defer m.m.Unlock()
	return append([]domain.WishlistItem(nil), m.added...)
}

func item(key string) domain.WishlistItem {
	id, _ := domain.ParseIdentity(key)
	return domain.WishlistItem{Identity: id, Name: key}
}

func keys(items []domain.WishlistItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Identity.Key()
	}
	return out
}

func waitFetch(t *testing.T, a *Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Wait(ctx))
}

func newLocal() *draft.Wishlist {
	return draft.NewWishlist(kv.NewMemoryStore(), "s1")
}

func TestSetToken_HydratesFromServer(t *testing.T) {
	backend := &mockBackend{}
	resp := backend.script([]domain.WishlistItem{item("steam:10"), item("slug:celeste")}, nil)
	local := newLocal()
	a := NewAdapter(backend, local, ServerWins, time.Second)

	assert.Equal(t, StateIdle, a.State())
	a.SetToken("tok")
	assert.Equal(t, StateLoading, a.State())
	assert.False(t, a.Hydrated())

	close(resp.release)
	waitFetch(t, a)

	assert.True(t, a.Hydrated())
	assert.Empty(t, a.Error())
	assert.Equal(t, []string{"steam:10", "slug:celeste"}, keys(local.Items(context.Background())))
}

func TestSetToken_SameTokenDoesNotRefetch(t *testing.T) {
	backend := &mockBackend{}
	close(backend.script(nil, nil).release)
	a := NewAdapter(backend, newLocal(), MergeLocal, time.Second)

	a.SetToken("tok")
	waitFetch(t, a)
	a.SetToken("tok")
	waitFetch(t, a)

	assert.Equal(t, 1, backend.callCount())
}

func TestFetchError_KeepsLocalState(t *testing.T) {
	backend := &mockBackend{}
	close(backend.script(nil, &gamestore.Error{Kind: gamestore.KindStatus, Status: http.StatusInternalServerError, Message: "Database offline"}).release)

	local := newLocal()
	local.Replace(context.Background(), []domain.WishlistItem{item("steam:7")})
	a := NewAdapter(backend, local, ServerWins, time.Second)

	a.SetToken("tok")
	waitFetch(t, a)

	assert.Equal(t, StateError, a.State())
	assert.Equal(t, "Database offline", a.Error())
	assert.Equal(t, []string{"steam:7"}, keys(local.Items(context.Background())))
}

func TestErrorIsRecoverable(t *testing.T) {
	backend := &mockBackend{}
	close(backend.script(nil, errors.New("boom")).release)
	close(backend.script([]domain.WishlistItem{item("steam:1")}, nil).release)
	a := NewAdapter(backend, newLocal(), ServerWins, time.Second)

	a.SetToken("tok")
	waitFetch(t, a)
	require.Equal(t, StateError, a.State())
	assert.NotEmpty(t, a.Error())

	require.NoError(t, a.Refresh())
	waitFetch(t, a)
	assert.Equal(t, StateHydrated, a.State())
	assert.Empty(t, a.Error())
}

func TestStaleResponseNeverOverwritesNewer(t *testing.T) {
	backend := &mockBackend{}
	stale := backend.script([]domain.WishlistItem{item("slug:stale")}, nil)
	fresh := backend.script([]domain.WishlistItem{item("slug:fresh")}, nil)
	local := newLocal()
	a := NewAdapter(backend, local, ServerWins, time.Second)

	a.SetToken("tok")
	require.Eventually(t, func() bool { return backend.callCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, a.Refresh())
	require.Eventually(t, func() bool { return backend.callCount() == 2 }, time.Second, 5*time.Millisecond)

	close(fresh.release)
	waitFetch(t, a)
	require.True(t, a.Hydrated())

	// the superseded request answers last
	close(stale.release)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, []string{"slug:fresh"}, keys(local.Items(context.Background())))
	assert.Equal(t, StateHydrated, a.State())
}

func TestClearToken_DiscardsInFlightResult(t *testing.T) {
	backend := &mockBackend{}
	resp := backend.script([]domain.WishlistItem{item("slug:server")}, nil)
	local := newLocal()
	local.Replace(context.Background(), []domain.WishlistItem{item("slug:draft")})
	a := NewAdapter(backend, local, ServerWins, time.Second)

	a.SetToken("tok")
	require.Eventually(t, func() bool { return backend.callCount() == 1 }, time.Second, 5*time.Millisecond)
	a.ClearToken()
	close(resp.release)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, StateIdle, a.State())
	assert.Empty(t, a.Token())
	assert.Equal(t, []string{"slug:draft"}, keys(local.Items(context.Background())))
}

func TestMergePolicy_KeepsAndPushesDrafts(t *testing.T) {
	backend := &mockBackend{}
	close(backend.script([]domain.WishlistItem{item("steam:1"), item("steam:2")}, nil).release)
	local := newLocal()
	local.Replace(context.Background(), []domain.WishlistItem{item("steam:2"), item("slug:draft")})
	a := NewAdapter(backend, local, MergeLocal, time.Second)

	a.SetToken("tok")
	waitFetch(t, a)

	assert.Equal(t, []string{"steam:1", "steam:2", "slug:draft"}, keys(local.Items(context.Background())))
	require.Eventually(t, func() bool { return len(backend.pushed()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "slug:draft", backend.pushed()[0].Identity.Key())
}

func TestRefresh_WithoutToken(t *testing.T) {
	a := NewAdapter(&mockBackend{}, newLocal(), MergeLocal, time.Second)
	assert.ErrorIs(t, a.Refresh(), ErrNoToken)
}

func TestPush_AnonymousIsDraftOnly(t *testing.T) {
	backend := &mockBackend{}
	a := NewAdapter(backend, newLocal(), MergeLocal, time.Second)

	require.NoError(t, a.PushAdd(context.Background(), item("steam:1")))
	require.NoError(t, a.PushRemove(context.Background(), domain.SteamIdentity(1)))
	assert.Empty(t, backend.pushed())
}

func TestClose_IgnoresLaterLogin(t *testing.T) {
	backend := &mockBackend{}
	a := NewAdapter(backend, newLocal(), MergeLocal, time.Second)
	a.Close()
	a.SetToken("tok")

	assert.Equal(t, StateIdle, a.State())
	assert.Zero(t, backend.callCount())
}

func TestMergePolicy_LocalChangesDuringFetchWin(t *testing.T) {
	ctx := context.Background()
	backend := &mockBackend{}
	resp := backend.script([]domain.WishlistItem{item("steam:1145360")}, nil)
	local := newLocal()
	a := NewAdapter(backend, local, MergeLocal, time.Second)

	a.SetToken("tok")
	require.Eventually(t, func() bool { return backend.callCount() == 1 }, time.Second, 5*time.Millisecond)

	hades := domain.StoreItemInput{SteamAppID: 1145360, Name: "Hades"}
	_, added, err := local.Toggle(ctx, hades)
	require.NoError(t, err)
	require.True(t, added)
	_, added, err = local.Toggle(ctx, hades)
	require.NoError(t, err)
	require.False(t, added)
	_, _, err = local.Toggle(ctx, domain.StoreItemInput{Slug: "celeste", Name: "Celeste"})
	require.NoError(t, err)

	close(resp.release)
	waitFetch(t, a)

	require.True(t, a.Hydrated())
	assert.Equal(t, []string{"slug:celeste"}, keys(local.Items(ctx)))
	assert.Empty(t, backend.pushed())
}

func TestServerWins_AddDuringFetchIsKept(t *testing.T) {
	ctx := context.Background()
	backend := &mockBackend{}
	resp := backend.script([]domain.WishlistItem{item("steam:10")}, nil)
	local := newLocal()
	local.Replace(ctx, []domain.WishlistItem{item("slug:draft")})
	a := NewAdapter(backend, local, ServerWins, time.Second)

	a.SetToken("tok")
	require.Eventually(t, func() bool { return backend.callCount() == 1 }, time.Second, 5*time.Millisecond)

	_, _, err := local.Toggle(ctx, domain.StoreItemInput{Slug: "celeste", Name: "Celeste"})
	require.NoError(t, err)

	close(resp.release)
	waitFetch(t, a)

	assert.Equal(t, []string{"steam:10", "slug:celeste"}, keys(local.Items(ctx)))
}

func TestFetchError_StopsTrackingLocalChanges(t *testing.T) {
	ctx := context.Background()
	backend := &mockBackend{}
	failed := backend.script(nil, errors.New("boom"))
	close(backend.script([]domain.WishlistItem{item("steam:5")}, nil).release)
	local := newLocal()
	a := NewAdapter(backend, local, ServerWins, time.Second)

	a.SetToken("tok")
	require.Eventually(t, func() bool { return backend.callCount() == 1 }, time.Second, 5*time.Millisecond)
	close(failed.release)
	waitFetch(t, a)
	require.Equal(t, StateError, a.State())

	// removed after the failure, before the retry is issued
	_, _, err := local.Toggle(ctx, domain.StoreItemInput{SteamAppID: 5})
	require.NoError(t, err)
	_, _, err = local.Toggle(ctx, domain.StoreItemInput{SteamAppID: 5})
	require.NoError(t, err)

	require.NoError(t, a.Refresh())
	waitFetch(t, a)
	assert.Equal(t, []string{"steam:5"}, keys(local.Items(ctx)))
}
