package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/app"
	"ledgercore/internal/config"
	"ledgercore/internal/infrastructure/metrics"
	"ledgercore/pkg/logger"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App:        config.AppConfig{Env: config.EnvDevelopment},
		Storage:    config.StorageConfig{Backend: config.BackendMemory},
		Ledger:     config.LedgerConfig{SequenceBase: 1},
		Settlement: config.SettlementConfig{Tolerance: "0.01", ReceivableAccount: "1200", PayableAccount: "2100"},
		Inventory: config.InventoryConfig{
			ClearingAccount:  "2150",
			VarianceAccount:  "5900",
			ValuationAccount: "1300",
			COGSAccount:      "5000",
		},
		Outbox:      config.OutboxConfig{PollInterval: time.Second},
		Idempotency: config.IdempotencyConfig{Enabled: true, TTL: time.Hour},
	}
	a, err := app.Build(cfg, app.NewMemoryStorage(), metrics.New())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return NewRouter(RouterConfig{App: a, Logger: logger.NewNop()})
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return doWithHeaders(t, r, method, path, body, nil)
}

func doWithHeaders(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "tester")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/health/info", nil)
	assert.Equal(t, "memory", decode(t, w)["backend"])
}

func TestReceiveAndShip(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/items", map[string]any{
		"code": "FG-1", "name": "Widget", "kind": "finished", "standardCost": "10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	itemID := decode(t, w)["id"].(string)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(t, r, http.MethodPost, "/api/v1/goods-receipts", map[string]any{
		"date":  "2026-03-01T00:00:00Z",
		"lines": []map[string]any{{"itemId": itemID, "quantity": 4}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["posted"])

	w = do(t, r, http.MethodPost, "/api/v1/goods-issues", map[string]any{
		"lines": []map[string]any{{"itemId": itemID, "quantity": 9}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode(t, w)["code"])

	w = do(t, r, http.MethodGet, "/api/v1/items/"+itemID+"/movements", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)

	w = do(t, r, http.MethodGet, "/api/v1/ledger/entries?sourceModule=inventory", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)
}

func TestLedgerEntries(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/ledger/entries", map[string]any{
		"description": "opening balance",
		"lines": []map[string]any{
			{"accountCode": "1000", "debit": "50"},
			{"accountCode": "3000", "credit": "40"},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "UNBALANCED_ENTRY", decode(t, w)["code"])

	w = do(t, r, http.MethodPost, "/api/v1/ledger/entries", map[string]any{
		"description": "opening balance",
		"lines": []map[string]any{
			{"accountCode": "1000", "debit": "50"},
			{"accountCode": "3000", "credit": "50"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["sequence"])

	w = do(t, r, http.MethodPost, "/api/v1/ledger/entries/1/reverse", map[string]any{"reason": "typo"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["sequence"])

	w = do(t, r, http.MethodGet, "/api/v1/ledger/entries/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reversed", decode(t, w)["status"])

	w = do(t, r, http.MethodPost, "/api/v1/ledger/entries/1/reverse", nil)
	assert.Equal(t, "INVALID_LEDGER_STATE", decode(t, w)["code"])
}

func TestBadRequests(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/invoices/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["code"])

	w = do(t, r, http.MethodGet, "/api/v1/ledger/entries/0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/invoices", map[string]any{"kind": "barter"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodGet, "/health/live", nil)

	w := do(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `ledgercore_http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}

func TestIdempotentReplay(t *testing.T) {
	r := newTestRouter(t)
	body := map[string]any{
		"description": "accrual",
		"lines": []map[string]any{
			{"accountCode": "6000", "debit": "12.5"},
			{"accountCode": "2400", "credit": "12.5"},
		},
	}
	key := map[string]string{"X-Idempotency-Key": "accrual-1"}

	first := doWithHeaders(t, r, http.MethodPost, "/api/v1/ledger/entries", body, key)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := doWithHeaders(t, r, http.MethodPost, "/api/v1/ledger/entries", body, key)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	w := do(t, r, http.MethodGet, "/api/v1/ledger/entries", nil)
	assert.Len(t, decode(t, w)["items"], 1, "replay does not append twice")

	body["description"] = "different"
	w = doWithHeaders(t, r, http.MethodPost, "/api/v1/ledger/entries", body, key)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "IDEMPOTENCY_CONFLICT", decode(t, w)["code"])
}

func TestIdempotentReplay_StoresBusinessErrors(t *testing.T) {
	r := newTestRouter(t)
	body := map[string]any{
		"lines": []map[string]any{
			{"accountCode": "6000", "debit": "1"},
			{"accountCode": "2400", "credit": "2"},
		},
	}
	key := map[string]string{"X-Idempotency-Key": "bad-1"}

	first := doWithHeaders(t, r, http.MethodPost, "/api/v1/ledger/entries", body, key)
	require.Equal(t, http.StatusUnprocessableEntity, first.Code)

	second := doWithHeaders(t, r, http.MethodPost, "/api/v1/ledger/entries", body, key)
	assert.Equal(t, http.StatusUnprocessableEntity, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, "UNBALANCED_ENTRY", decode(t, second)["code"])
}
