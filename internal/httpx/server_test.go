package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/app"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/session"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a tiny in-memory storefront REST backend.
type fakeBackend struct {
	mu        sync.Mutex
	role      string
	qty       int
	increases []int
	payments  int
	txStatus  orders.PaymentStatus
	txFail    bool
	txCalls   int
}

func (b *fakeBackend) item() orders.CartItem {
	price := decimal.NewFromInt(10000)
	return orders.CartItem{
		ID:       "ci1",
		Product:  orders.CartProduct{ID: "p1", Title: "Kopi Gayo"},
		Price:    price,
		Quantity: b.qty,
		MaxStock: 5,
		Subtotal: price.Mul(decimal.NewFromInt(int64(b.qty))),
	}
}

func (b *fakeBackend) routes() http.Handler {
	mux := http.NewServeMux()
	data := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
	}
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var cred api.Credentials
		_ = json.NewDecoder(r.Body).Decode(&cred)
		if cred.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.mu.Lock()
		role := b.role
		b.mu.Unlock()
		data(w, api.AuthResponse{AccessToken: "tok", RefreshToken: "r1", Role: role, Username: cred.Username})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var items []orders.CartItem
		if b.qty > 0 {
			items = append(items, b.item())
		}
		data(w, []orders.Cart{{ID: "c1", Items: items}})
	})
	mux.HandleFunc("PATCH /cart/items/{id}/increase", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		n, _ := strconv.Atoi(r.URL.Query().Get("amount"))
		b.increases = append(b.increases, n)
		b.qty += n
		data(w, b.item())
	})
	mux.HandleFunc("GET /addresses", func(w http.ResponseWriter, r *http.Request) {
		data(w, []orders.Address{{ID: "a1", Name: "Rumah", IsDefaultShipping: true}})
	})
	mux.HandleFunc("POST /payments/{channel}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.payments++
		data(w, orders.PaymentResponse{
			ID: "p1", ReferenceID: "tx_1", Status: orders.PaymentPending, ChannelCode: r.PathValue("channel"),
			Actions: []orders.Action{{Type: "PRESENT_TO_CUSTOMER", Descriptor: orders.DescriptorQRString, Value: "000201"}},
		})
	})
	mux.HandleFunc("GET /transaction/{ref}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.txCalls++
		if b.txFail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		data(w, orders.Transaction{ReferenceID: r.PathValue("ref"), Status: b.txStatus, ChannelCode: orders.ChannelQRIS})
	})
	return mux
}

type memAttempts struct {
	mu sync.Mutex
	m  map[string]orders.Attempt
}

func (s *memAttempts) FindByExternalID(_ context.Context, username, id string) (orders.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.m[username+"/"+id]
	if !ok {
		return orders.Attempt{}, orders.ErrAttemptNotFound
	}
	return a, nil
}

func (s *memAttempts) Save(_ context.Context, a orders.Attempt) (orders.Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := a.Username + "/" + a.ExternalID
	if prev, ok := s.m[k]; ok {
		return prev, true, nil
	}
	s.m[k] = a
	return a, false, nil
}

type memCache struct {
	mu    sync.Mutex
	tx    map[string]orders.Transaction
	owner map[string]string
}

func newMemCache() *memCache {
	return &memCache{tx: map[string]orders.Transaction{}, owner: map[string]string{}}
}

func (c *memCache) Get(_ context.Context, ref string) (orders.Transaction, string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.tx[ref]
	return tx, c.owner[ref], ok, nil
}

func (c *memCache) Put(_ context.Context, owner string, tx orders.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tx[tx.ReferenceID] = tx
	c.owner[tx.ReferenceID] = owner
	return nil
}

type memEvents struct {
	mu   sync.Mutex
	sent []orders.Envelope
}

func (e *memEvents) Publish(_, value []byte, _ ...kafkago.Header) error {
	var env orders.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return err
	}
	e.mu.Lock()
	e.sent = append(e.sent, env)
	e.mu.Unlock()
	return nil
}

type harness struct {
	t       *testing.T
	backend *fakeBackend
	cache   *memCache
	events  *memEvents
	srv     *httptest.Server
	client  *http.Client
}

func newHarness(t *testing.T, role string) *harness {
	t.Helper()
	fb := &fakeBackend{role: role, qty: 2, txStatus: orders.PaymentPending}
	backendSrv := httptest.NewServer(fb.routes())
	t.Cleanup(backendSrv.Close)

	base, err := api.New(backendSrv.URL)
	require.NoError(t, err)
	reg := app.NewRegistry(base, session.NewMemoryStore(), app.WithCartWindow(time.Hour))
	t.Cleanup(func() { reg.Close(context.Background()) })

	h := &harness{t: t, backend: fb, cache: newMemCache(), events: &memEvents{}}
	handler := &Handler{
		Registry: reg,
		Attempts: &memAttempts{m: map[string]orders.Attempt{}},
		Status:   h.cache,
		Events:   h.events,
		AdminFee: decimal.NewFromInt(2500),
		Service:  "storefront-bff",
	}
	r := NewRouter(nil)
	handler.Register(r)
	h.srv = httptest.NewServer(r)
	t.Cleanup(h.srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	h.client = &http.Client{Jar: jar}
	return h
}

func (h *harness) do(method, path string, body any, headers ...string) (int, map[string]any) {
	h.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	require.NoError(h.t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (h *harness) login() {
	h.t.Helper()
	code, body := h.do(http.MethodPost, "/auth/login", api.Credentials{Username: "budi", Password: "secret"})
	require.Equal(h.t, http.StatusOK, code, body)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, "USER")
	resp, err := h.client.Get(h.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCart_RequiresLogin(t *testing.T) {
	h := newHarness(t, "USER")
	code, _ := h.do(http.MethodGet, "/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := h.do(http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["authenticated"])
}

func TestLogin_FailurePushesAlert(t *testing.T) {
	h := newHarness(t, "USER")
	code, _ := h.do(http.MethodPost, "/auth/login", api.Credentials{Username: "budi", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	resp, err := h.client.Get(h.srv.URL + "/alerts")
	require.NoError(t, err)
	defer resp.Body.Close()
	var alerts []session.Alert
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, "Login failed", alerts[0].Message)
}

func TestCartToCheckoutFlow(t *testing.T) {
	h := newHarness(t, "USER")
	h.login()

	code, body := h.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, code, body)

	code, body = h.do(http.MethodPost, "/cart/items/ci1/increase", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["pending"])
	assert.Equal(t, float64(3), body["item"].(map[string]any)["quantity"])
	assert.Empty(t, h.backend.increases, "debounced until flush")

	code, _ = h.do(http.MethodPost, "/cart/flush", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []int{1}, h.backend.increases)

	req := map[string]any{"item_ids": []string{"ci1"}, "tab": "qris"}
	code, body = h.do(http.MethodPost, "/checkout/preview", req)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "a1", body["address_id"])
	assert.Equal(t, "QRIS", body["channel_code"])
	assert.Equal(t, "42500", body["summary"].(map[string]any)["total"])

	code, body = h.do(http.MethodPost, "/checkout/submit", req, IdempotencyHeader, "key-1")
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "qris", body["navigation"])
	assert.Equal(t, "tx_1", body["reference_id"])
	assert.Equal(t, false, body["idempotent"])

	code, body = h.do(http.MethodPost, "/checkout/submit", req, IdempotencyHeader, "key-1")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["idempotent"])
	assert.Equal(t, "qris", body["navigation"])
	assert.Equal(t, 1, h.backend.payments)

	require.Len(t, h.events.sent, 1)
	assert.Equal(t, orders.EventPaymentCreated, h.events.sent[0].EventType)
	assert.Equal(t, "tx_1", h.events.sent[0].CorrelationID)

	_, owner, ok, _ := h.cache.Get(context.Background(), "tx_1")
	assert.True(t, ok)
	assert.Equal(t, "budi", owner)
}

func TestCheckout_NoChannelIsBadRequest(t *testing.T) {
	h := newHarness(t, "USER")
	h.login()
	code, body := h.do(http.MethodPost, "/checkout/submit", map[string]any{"item_ids": []string{"ci1"}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "no payment channel")
	assert.Zero(t, h.backend.payments)
}

func TestPaymentStatus_CacheIsOwnerScoped(t *testing.T) {
	h := newHarness(t, "USER")
	h.login()
	require.NoError(t, h.cache.Put(context.Background(), "budi", orders.Transaction{ReferenceID: "tx_mine", Status: orders.PaymentSucceeded}))
	require.NoError(t, h.cache.Put(context.Background(), "sari", orders.Transaction{ReferenceID: "tx_other", Status: orders.PaymentSucceeded}))

	code, body := h.do(http.MethodGet, "/payments/tx_mine", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "SUCCEEDED", body["phase"])
	assert.Zero(t, h.backend.txCalls)

	code, body = h.do(http.MethodGet, "/payments/tx_other", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "AWAITING", body["phase"])
	assert.Equal(t, 1, h.backend.txCalls)
}

func TestCheckPayment_FailureKeepsPhase(t *testing.T) {
	h := newHarness(t, "USER")
	h.login()
	require.NoError(t, h.cache.Put(context.Background(), "budi", orders.Transaction{ReferenceID: "tx_1", Status: orders.PaymentPending}))
	h.backend.mu.Lock()
	h.backend.txFail = true
	h.backend.mu.Unlock()

	code, body := h.do(http.MethodPost, "/payments/tx_1/check", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "AWAITING", body["phase"])
	assert.Equal(t, "failed to check payment status", body["message"])
}

func TestPaymentStatus_InvalidReference(t *testing.T) {
	h := newHarness(t, "USER")
	h.login()
	code, _ := h.do(http.MethodGet, "/payments/bad%20ref", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdmin_ForbiddenForBuyer(t *testing.T) {
	h := newHarness(t, "USER")
	h.login()
	code, _ := h.do(http.MethodGet, "/admin/users", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestLogout_ClearsSession(t *testing.T) {
	h := newHarness(t, "USER")
	h.login()
	code, _ := h.do(http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = h.do(http.MethodGet, "/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func firstQuantity(t *testing.T, body map[string]any) any {
	t.Helper()
	carts, ok := body["carts"].([]any)
	require.True(t, ok, body)
	require.NotEmpty(t, carts)
	items, ok := carts[0].(map[string]any)["items"].([]any)
	require.True(t, ok, body)
	require.NotEmpty(t, items)
	return items[0].(map[string]any)["quantity"]
}

func TestCheckout_SendsPendingQuantityFirst(t *testing.T) {
	h := newHarness(t, "USER")
	h.login()

	code, body := h.do(http.MethodPut, "/cart/items/ci1/selected", map[string]any{"selected": true})
	require.Equal(t, http.StatusOK, code, body)
	code, body = h.do(http.MethodPost, "/cart/items/ci1/increase", nil)
	require.Equal(t, http.StatusOK, code, body)
	require.Empty(t, h.backend.increases)

	req := map[string]any{"tab": "qris"}
	code, body = h.do(http.MethodPost, "/checkout/preview", req)
	require.Equal(t, http.StatusOK, code, body)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, "30000", summary["subtotal"])
	assert.Equal(t, "42500", summary["total"])
	assert.Equal(t, []int{1}, h.backend.increases)

	code, body = h.do(http.MethodPost, "/checkout/submit", req, IdempotencyHeader, "key-9")
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, []int{1}, h.backend.increases, "nothing left to send")
}

func TestCheckout_IdempotencyKeyIsPerUser(t *testing.T) {
	h := newHarness(t, "USER")
	req := map[string]any{"item_ids": []string{"ci1"}, "tab": "qris"}

	h.login()
	code, body := h.do(http.MethodPost, "/checkout/submit", req, IdempotencyHeader, "k1")
	require.Equal(t, http.StatusCreated, code, body)

	code, body = h.do(http.MethodPost, "/auth/login", api.Credentials{Username: "sari", Password: "secret"})
	require.Equal(t, http.StatusOK, code, body)
	code, body = h.do(http.MethodPost, "/checkout/submit", req, IdempotencyHeader, "k1")
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, false, body["idempotent"])
	assert.Equal(t, 2, h.backend.payments)
}

func TestLogin_OnExistingSessionStartsFreshCart(t *testing.T) {
	h := newHarness(t, "USER")
	h.login()

	code, body := h.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(2), firstQuantity(t, body))
	code, body = h.do(http.MethodPost, "/cart/items/ci1/increase", nil)
	require.Equal(t, http.StatusOK, code, body)

	code, body = h.do(http.MethodPost, "/auth/login", api.Credentials{Username: "sari", Password: "secret"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "sari", body["username"])
	assert.Equal(t, []int{1}, h.backend.increases, "budi's pending change went out before the switch")

	h.backend.mu.Lock()
	h.backend.qty = 4
	h.backend.mu.Unlock()

	code, body = h.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(4), firstQuantity(t, body))
	assert.Empty(t, body["selected"])
}
