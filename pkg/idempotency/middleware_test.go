package idempotency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/logging"
)

type fakeBackend struct {
	mu      sync.Mutex
	pending map[string]bool
	done    map[string]Record
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{pending: map[string]bool{}, done: map[string]Record{}}
}

func (f *fakeBackend) Begin(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.done[key]; ok || f.pending[key] {
		return false, nil
	}
	f.pending[key] = true
	return true, nil
}

func (f *fakeBackend) Load(_ context.Context, key string) (Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.done[key]
	return rec, ok, nil
}

func (f *fakeBackend) Complete(_ context.Context, key string, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, key)
	f.done[key] = rec
	return nil
}

func (f *fakeBackend) Abandon(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, key)
	return nil
}

func counting(status int, calls *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"call":` + strconv.Itoa(int(n)) + `}`))
	})
}

func post(t *testing.T, h http.Handler, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	if key != "" {
		req.Header.Set(HeaderKey, key)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddlewareReplaysFirstResponse(t *testing.T) {
	var calls atomic.Int32
	h := Middleware(logging.Discard(), newFakeBackend())(counting(http.StatusCreated, &calls))

	first := post(t, h, "k-1")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(HeaderReplayed))

	second := post(t, h, "k-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.EqualValues(t, 1, calls.Load())

	post(t, h, "k-2")
	assert.EqualValues(t, 2, calls.Load())
}

func TestMiddlewareWithoutKeyPassesThrough(t *testing.T) {
	var calls atomic.Int32
	h := Middleware(logging.Discard(), newFakeBackend())(counting(http.StatusCreated, &calls))

	post(t, h, "")
	post(t, h, "")
	assert.EqualValues(t, 2, calls.Load())
}

func TestMiddlewareForgetsServerErrors(t *testing.T) {
	var calls atomic.Int32
	h := Middleware(logging.Discard(), newFakeBackend())(counting(http.StatusInternalServerError, &calls))

	post(t, h, "k-1")
	post(t, h, "k-1")
	assert.EqualValues(t, 2, calls.Load())
}

func TestMiddlewareInFlightConflict(t *testing.T) {
	backend := newFakeBackend()
	_, err := backend.Begin(context.Background(), "idem:anonymous:POST:/api/orders:k-1")
	require.NoError(t, err)

	var calls atomic.Int32
	h := Middleware(logging.Discard(), backend)(counting(http.StatusCreated, &calls))

	rr := post(t, h, "k-1")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Zero(t, calls.Load())
}

func TestMiddlewareReleasesKeyAfterPanic(t *testing.T) {
	backend := newFakeBackend()
	var calls atomic.Int32
	flaky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			panic("nil customer")
		}
		w.WriteHeader(http.StatusCreated)
	})
	h := middleware.Recoverer(Middleware(logging.Discard(), backend)(flaky))

	assert.Equal(t, http.StatusInternalServerError, post(t, h, "k-panic").Code)
	assert.Equal(t, http.StatusCreated, post(t, h, "k-panic").Code)
	assert.EqualValues(t, 2, calls.Load())
}
