package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/domain/auth"
	"stockledger/internal/domain/catalogs/product"
	"stockledger/internal/domain/catalogs/supplier"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/storage/memory"
	"stockledger/internal/infrastructure/storage/postgres"
)

type testAPI struct {
	router   http.Handler
	store    *memory.Store
	supplier id.ID
	widget   id.ID
}

func newTestAPI(t *testing.T, configure ...func(*RouterConfig, *ledger.Deps)) *testAPI {
	t.Helper()

	store := memory.New()
	api := &testAPI{store: store, supplier: id.New(), widget: id.New()}
	minimum := int64(5)
	store.AddSupplier(supplier.Supplier{ID: api.supplier, Name: "Acme Wholesale"})
	store.AddProduct(product.Product{ID: api.widget, SKU: "W-001", Name: "Widget", Unit: "pcs", MinimumStock: &minimum})

	deps := ledger.Deps{
		TxManager:    store,
		Transactions: store,
		Movements:    store,
		Products:     store,
		Suppliers:    store,
		Numerator:    store,
		Events:       store,
	}
	cfg := RouterConfig{Driver: "memory", Version: "test"}
	for _, fn := range configure {
		fn(&cfg, &deps)
	}
	cfg.Ledger = ledger.NewService(deps, ledger.Config{RetryBackoff: time.Millisecond})
	cfg.Stock = stock.NewService(store, store)

	api.router = NewRouter(cfg)
	return api
}

type apiResponse struct {
	Status int
	Body   map[string]any
	Raw    []byte
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers ...string) apiResponse {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	resp := apiResponse{Status: rec.Code, Raw: rec.Body.Bytes()}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp.Body), rec.Body.String())
	}
	return resp
}

func (a *testAPI) receipt(qty int64) map[string]any {
	return map[string]any{
		"type":       "IN",
		"supplierId": a.supplier.String(),
		"items": []map[string]any{
			{"productId": a.widget.String(), "quantity": qty, "unitCost": "2.50"},
		},
	}
}

func (a *testAPI) issue(qty int64) map[string]any {
	return map[string]any{
		"type": "OUT",
		"items": []map[string]any{
			{"productId": a.widget.String(), "quantity": qty, "unitPrice": "4.00"},
		},
	}
}

func data(t *testing.T, r apiResponse) map[string]any {
	t.Helper()
	d, ok := r.Body["data"].(map[string]any)
	require.True(t, ok, string(r.Raw))
	return d
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/health/live", nil).Status)

	ready := api.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, ready.Status)
	assert.Equal(t, "memory", ready.Body["checks"].(map[string]any)["storage"])
}

func TestCreateTransaction_Created(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/v1/transactions", api.receipt(20))
	require.Equal(t, http.StatusCreated, resp.Status, string(resp.Raw))

	txn := data(t, resp)
	assert.Regexp(t, `^IN-\d{8}-00001$`, txn["referenceNumber"])
	assert.Equal(t, "system", txn["createdBy"])

	movements := txn["movements"].([]any)
	require.Len(t, movements, 1)
	m := movements[0].(map[string]any)
	assert.EqualValues(t, 0, m["quantityBefore"])
	assert.EqualValues(t, 20, m["quantityAfter"])

	current := api.do(t, http.MethodGet, "/api/v1/stock/products/"+api.widget.String()+"/current", nil)
	require.Equal(t, http.StatusOK, current.Status)
	assert.EqualValues(t, 20, data(t, current)["currentStock"])

	got := api.do(t, http.MethodGet, "/api/v1/transactions/"+txn["id"].(string), nil)
	require.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, txn["referenceNumber"], data(t, got)["referenceNumber"])
}

func TestCreateTransaction_Errors(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/transactions", api.receipt(5)).Status)

	t.Run("insufficient stock", func(t *testing.T) {
		resp := api.do(t, http.MethodPost, "/api/v1/transactions", api.issue(10))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
		assert.Equal(t, "INSUFFICIENT_STOCK", resp.Body["code"])
		assert.Equal(t, "Insufficient stock. Available: 5, Requested: 10", resp.Body["message"])
		details := resp.Body["details"].(map[string]any)
		assert.EqualValues(t, 5, details["available"])
		assert.EqualValues(t, 10, details["requested"])
	})

	t.Run("missing price names the field", func(t *testing.T) {
		body := map[string]any{
			"type":  "OUT",
			"items": []map[string]any{{"productId": api.widget.String(), "quantity": 1}},
		}
		resp := api.do(t, http.MethodPost, "/api/v1/transactions", body)
		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.Equal(t, "items[0].unitPrice", resp.Body["details"].(map[string]any)["field"])
	})

	t.Run("unknown product", func(t *testing.T) {
		body := map[string]any{
			"type":  "ADJUST",
			"items": []map[string]any{{"productId": id.New().String(), "quantity": 3}},
		}
		resp := api.do(t, http.MethodPost, "/api/v1/transactions", body)
		assert.Equal(t, http.StatusNotFound, resp.Status)
		assert.Equal(t, "PRODUCT_NOT_FOUND", resp.Body["code"])
	})

	t.Run("malformed product id", func(t *testing.T) {
		body := map[string]any{
			"type":  "ADJUST",
			"items": []map[string]any{{"productId": "nope", "quantity": 3}},
		}
		resp := api.do(t, http.MethodPost, "/api/v1/transactions", body)
		assert.Equal(t, http.StatusBadRequest, resp.Status)
		assert.Equal(t, "items[0].productId", resp.Body["details"].(map[string]any)["field"])
	})

	t.Run("not json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	current := api.do(t, http.MethodGet, "/api/v1/stock/products/"+api.widget.String()+"/current", nil)
	assert.EqualValues(t, 5, data(t, current)["currentStock"])
}

func TestCreateTransaction_HidesInternalErrors(t *testing.T) {
	api := newTestAPI(t, func(_ *RouterConfig, deps *ledger.Deps) {
		deps.Numerator = &numerator.MockGenerator{
			GetNextNumberFunc: func(context.Context, numerator.Config, *numerator.Options, time.Time) (string, error) {
				return "", errors.New("sequence table is gone")
			},
		}
	})

	resp := api.do(t, http.MethodPost, "/api/v1/transactions", api.receipt(1))
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "INTERNAL_ERROR", resp.Body["code"])
	assert.Equal(t, "Internal server error", resp.Body["message"])
	assert.NotContains(t, string(resp.Raw), "sequence table")
}

func TestListTransactions(t *testing.T) {
	api := newTestAPI(t)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/transactions", api.receipt(4)).Status)
	}
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/transactions", api.issue(1)).Status)

	resp := api.do(t, http.MethodGet, "/api/v1/transactions?type=in&page=1&limit=2", nil)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Raw))
	assert.Len(t, resp.Body["data"], 2)
	pagination := resp.Body["pagination"].(map[string]any)
	assert.EqualValues(t, 3, pagination["totalItems"])
	assert.EqualValues(t, 2, pagination["totalPages"])

	bad := api.do(t, http.MethodGet, "/api/v1/transactions?type=LOAN", nil)
	assert.Equal(t, http.StatusBadRequest, bad.Status)
}

func TestStockCard(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/transactions", api.receipt(10)).Status)
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/transactions", api.issue(3)).Status)

	resp := api.do(t, http.MethodGet, "/api/v1/stock/products/"+api.widget.String()+"/card?limit=1", nil)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Raw))
	card := data(t, resp)
	assert.EqualValues(t, 7, card["currentStock"])
	movements := card["movements"].([]any)
	require.Len(t, movements, 1)
	assert.Equal(t, "OUT", movements[0].(map[string]any)["movementType"])
	assert.EqualValues(t, 2, card["pagination"].(map[string]any)["totalPages"])

	bad := api.do(t, http.MethodGet, "/api/v1/stock/products/"+api.widget.String()+"/card?order=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, bad.Status)

	badID := api.do(t, http.MethodGet, "/api/v1/stock/products/not-a-uuid/card", nil)
	assert.Equal(t, http.StatusBadRequest, badID.Status)
	assert.Equal(t, "productId", badID.Body["details"].(map[string]any)["field"])
}

func TestIntegrityAndLevels(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/transactions", api.receipt(10)).Status)
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/transactions", api.issue(3)).Status)

	integrity := api.do(t, http.MethodGet, "/api/v1/stock/products/"+api.widget.String()+"/integrity", nil)
	require.Equal(t, http.StatusOK, integrity.Status)
	report := data(t, integrity)
	assert.Equal(t, true, report["valid"])
	assert.EqualValues(t, 2, report["totalMovements"])
	assert.EqualValues(t, 7, report["finalBalance"])
	assert.Empty(t, report["errors"])

	levels := api.do(t, http.MethodGet, "/api/v1/stock/levels", nil)
	require.Equal(t, http.StatusOK, levels.Status)
	assert.Len(t, levels.Body["data"], 1)

	summary := api.do(t, http.MethodGet, "/api/v1/stock/summary?onlyLowStock=true", nil)
	require.Equal(t, http.StatusOK, summary.Status)
	assert.Empty(t, summary.Body["data"])

	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/v1/stock/levels?scope=some", nil).Status)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/v1/stock/summary?onlyLowStock=maybe", nil).Status)
}

func TestAdjustments(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/transactions", api.receipt(15)).Status)

	single := api.do(t, http.MethodPost, "/api/v1/stock/products/"+api.widget.String()+"/adjustment", map[string]any{"actualStock": 18})
	require.Equal(t, http.StatusOK, single.Status, string(single.Raw))
	plan := data(t, single)
	assert.Equal(t, "INCREASE", plan["adjustmentType"])
	assert.EqualValues(t, 3, plan["adjustmentQuantity"])

	missing := api.do(t, http.MethodPost, "/api/v1/stock/products/"+api.widget.String()+"/adjustment", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, missing.Status)

	counts := map[string]any{"adjustments": []map[string]any{{"productId": api.widget.String(), "actualStock": 12}}}

	batch := api.do(t, http.MethodPost, "/api/v1/stock/adjustments/batch", counts)
	require.Equal(t, http.StatusOK, batch.Status, string(batch.Raw))
	summary := data(t, batch)["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["decreases"])
	assert.EqualValues(t, 3, summary["totalDecreaseQuantity"])

	commit := api.do(t, http.MethodPost, "/api/v1/stock/adjustments/commit", counts)
	require.Equal(t, http.StatusCreated, commit.Status, string(commit.Raw))
	txn := data(t, commit)["transaction"].(map[string]any)
	assert.Regexp(t, `^ADJ-\d{8}-\d{5}$`, txn["referenceNumber"])

	current := api.do(t, http.MethodGet, "/api/v1/stock/products/"+api.widget.String()+"/current", nil)
	assert.EqualValues(t, 12, data(t, current)["currentStock"])

	again := api.do(t, http.MethodPost, "/api/v1/stock/adjustments/commit", counts)
	require.Equal(t, http.StatusOK, again.Status)
	assert.Nil(t, data(t, again)["transaction"])
}

func TestAuth(t *testing.T) {
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig("secret", "stockledger"))
	api := newTestAPI(t, func(cfg *RouterConfig, _ *ledger.Deps) {
		cfg.JWTValidator = jwtService
		cfg.AuthRequired = true
	})

	anonymous := api.do(t, http.MethodPost, "/api/v1/transactions", api.receipt(1))
	assert.Equal(t, http.StatusUnauthorized, anonymous.Status)

	forged := api.do(t, http.MethodPost, "/api/v1/transactions", api.receipt(1), "Authorization", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, forged.Status)

	token, _, err := jwtService.GenerateAccessToken("clerk-7", "", nil)
	require.NoError(t, err)
	resp := api.do(t, http.MethodPost, "/api/v1/transactions", api.receipt(1), "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusCreated, resp.Status, string(resp.Raw))
	assert.Equal(t, "clerk-7", data(t, resp)["createdBy"])

	assert.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/health/live", nil).Status)
}

// memoryIdempotency keeps completed responses in a map.
type memoryIdempotency struct {
	mu      sync.Mutex
	replays map[string]*postgres.IdempotencyReplay
}

func (m *memoryIdempotency) AcquireKey(_ context.Context, key, _, _, _ string) (*postgres.IdempotencyReplay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replays[key], nil
}

func (m *memoryIdempotency) CompleteKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return m.store(key, statusCode, contentType, response)
}

func (m *memoryIdempotency) FailKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return m.store(key, statusCode, contentType, response)
}

func (m *memoryIdempotency) store(key string, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replays[key] = &postgres.IdempotencyReplay{StatusCode: statusCode, ContentType: contentType, Body: body}
	return nil
}

func TestIdempotentCreate(t *testing.T) {
	store := &memoryIdempotency{replays: make(map[string]*postgres.IdempotencyReplay)}
	api := newTestAPI(t, func(cfg *RouterConfig, _ *ledger.Deps) {
		cfg.Idempotency = store
	})

	first := api.do(t, http.MethodPost, "/api/v1/transactions", api.receipt(6), "X-Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Status)

	replayed := api.do(t, http.MethodPost, "/api/v1/transactions", api.receipt(6), "X-Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, replayed.Status)
	assert.Equal(t, data(t, first)["referenceNumber"], data(t, replayed)["referenceNumber"])

	current := api.do(t, http.MethodGet, "/api/v1/stock/products/"+api.widget.String()+"/current", nil)
	assert.EqualValues(t, 6, data(t, current)["currentStock"])

	failed := api.do(t, http.MethodPost, "/api/v1/transactions", api.issue(100), "X-Idempotency-Key", "k-2")
	require.Equal(t, http.StatusUnprocessableEntity, failed.Status)
	replayedFailure := api.do(t, http.MethodPost, "/api/v1/transactions", api.issue(100), "X-Idempotency-Key", "k-2")
	assert.Equal(t, http.StatusUnprocessableEntity, replayedFailure.Status)
	assert.Equal(t, "INSUFFICIENT_STOCK", replayedFailure.Body["code"])
}
