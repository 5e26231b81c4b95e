package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumiere-shop/storefront/api"
	"github.com/lumiere-shop/storefront/core"
)

type staticTokens struct{ token string }

func (s *staticTokens) Token() string { return s.token }

type fixture struct {
	store   *Store
	tokens  *staticTokens
	durable *core.MemoryStore
}

func newFixture(t *testing.T, handler http.Handler) *fixture {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := &staticTokens{}
	durable := core.NewMemoryStore()
	client := api.NewClient(api.Options{BaseURL: server.URL})

	return &fixture{
		store:   NewStore(client, tokens, durable, nil),
		tokens:  tokens,
		durable: durable,
	}
}

func cartJSON(quantities ...int) string {
	items := make([]map[string]interface{}, len(quantities))
	for i, q := range quantities {
		items[i] = map[string]interface{}{
			"_id":       "line-" + string(rune('a'+i)),
			"variantId": map[string]interface{}{"_id": "v-1"},
			"quantity":  q,
		}
	}
	data, _ := json.Marshal(map[string]interface{}{"items": items})
	return string(data)
}

func TestStore_SnapshotAlwaysReplaced(t *testing.T) {
	// Each response is a distinct full snapshot; the store must hold
	// exactly the last one returned, never a local merge.
	responses := []string{
		`{"data":` + cartJSON(1) + `}`,
		`{"data":` + cartJSON(5, 2) + `}`,
		`{"data":` + cartJSON(2) + `}`,
	}
	var call int
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(responses[call]))
		call++
	}))
	ctx := context.Background()

	c, err := f.store.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)

	c, err = f.store.Add(ctx, "v-1", 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.Equal(t, 5, c.Items[0].Quantity)

	c, err = f.store.Update(ctx, "line-a", 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Same(t, c, f.store.Cart())
}

func TestStore_AddRequiresVariant(t *testing.T) {
	called := false
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	_, err := f.store.Add(context.Background(), "", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingVariant))
	assert.False(t, called, "no round trip for an unresolvable variant")
}

func TestStore_UpdateToZeroIssuesDelete(t *testing.T) {
	var methods []string
	var paths []string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"data":` + cartJSON() + `}`))
	}))
	ctx := context.Background()

	_, err := f.store.Update(ctx, "line-a", 0)
	require.NoError(t, err)
	_, err = f.store.Update(ctx, "line-a", -3)
	require.NoError(t, err)

	require.Equal(t, []string{http.MethodDelete, http.MethodDelete}, methods)
	assert.Equal(t, "/api/cart/items/line-a", paths[0])
}

func TestStore_GuestKeyLifecycle(t *testing.T) {
	var mu sync.Mutex
	var guestHeaders []string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		guestHeaders = append(guestHeaders, r.Header.Get(api.GuestKeyHeader))
		mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/cart/items":
			// First guest mutation mints the key
			_, _ = w.Write([]byte(`{"data":` + cartJSON(1) + `,"guestKey":"gk-77"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/cart/merge":
			_, _ = w.Write([]byte(`{"data":` + cartJSON(1) + `}`))
		default:
			_, _ = w.Write([]byte(`{"data":` + cartJSON(1) + `}`))
		}
	}))
	ctx := context.Background()

	// Guest adds an item: no key sent, key adopted from the envelope
	_, err := f.store.Add(ctx, "v-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "gk-77", f.store.GuestKey())

	persisted, err := f.durable.Get(ctx, guestKeyStorageKey)
	require.NoError(t, err)
	assert.Equal(t, "gk-77", persisted)

	// Subsequent fetch resends the key
	_, err = f.store.Fetch(ctx)
	require.NoError(t, err)

	// User logs in, merge destroys the guest identity
	f.tokens.token = "tok-abc"
	_, err = f.store.MergeGuestCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, f.store.GuestKey())

	persisted, err = f.durable.Get(ctx, guestKeyStorageKey)
	require.NoError(t, err)
	assert.Empty(t, persisted, "cleared key must be persisted")

	// Post-merge fetch never resends the pre-merge identity
	_, err = f.store.Fetch(ctx)
	require.NoError(t, err)

	require.Equal(t, []string{"", "gk-77", "gk-77", ""}, guestHeaders)
}

func TestStore_RestoreLoadsPersistedGuestKey(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	}))
	ctx := context.Background()

	require.NoError(t, f.durable.Set(ctx, guestKeyStorageKey, "gk-old", 0))
	require.NoError(t, f.store.Restore(ctx))
	assert.Equal(t, "gk-old", f.store.GuestKey())
}

func TestStore_ErrorLeavesStateIntact(t *testing.T) {
	var call int
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call++
		if call == 1 {
			_, _ = w.Write([]byte(`{"data":` + cartJSON(2) + `}`))
			return
		}
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"variant out of stock"}`))
	}))
	ctx := context.Background()

	c, err := f.store.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)

	_, err = f.store.Add(ctx, "v-1", 1)
	require.Error(t, err)

	assert.Equal(t, "variant out of stock", f.store.Err())
	assert.Same(t, c, f.store.Cart(), "failed mutation must not touch the snapshot")
}

func TestStore_SequenceGuardDiscardsSupersededResponse(t *testing.T) {
	release := make(chan struct{})
	firstArrived := make(chan struct{})
	var call int
	var mu sync.Mutex

	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		call++
		n := call
		mu.Unlock()

		if n == 1 {
			close(firstArrived)
			<-release // hold the first response until the second has settled
			_, _ = w.Write([]byte(`{"data":` + cartJSON(1) + `}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":` + cartJSON(9) + `}`))
	}))
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = f.store.Add(ctx, "v-1", 1)
	}()

	<-firstArrived
	c, err := f.store.Add(ctx, "v-1", 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 9, c.Items[0].Quantity)

	close(release)
	wg.Wait()

	require.Error(t, firstErr)
	assert.True(t, errors.Is(firstErr, core.ErrStaleResponse))

	// The newer snapshot survived the late arrival
	assert.Equal(t, 9, f.store.Cart().Items[0].Quantity)
}

func TestStore_LoadingDuringFlight(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		_, _ = w.Write([]byte(`{"data":null}`))
	}))

	assert.False(t, f.store.Loading())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.store.Fetch(context.Background())
	}()

	<-arrived
	assert.True(t, f.store.Loading())
	close(release)
	<-done
	assert.False(t, f.store.Loading())
}

func TestStore_BearerTokenAttached(t *testing.T) {
	var gotAuth string
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":null}`))
	}))

	f.tokens.token = "tok-xyz"
	_, err := f.store.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-xyz", gotAuth)
}
