//go:build integration

package router_test

// End-to-end tests against real Postgres and Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/apierror"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/config"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/infra"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/router"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/worker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

// fire is do for use off the test goroutine: it reports failures as errors
// instead of stopping the test.
func fire(srv *httptest.Server, method, path string, body []byte, token string) (int, []byte, error) {
	req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, err
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	token  string // admin JWT
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("kasir_test"),
		tcPostgres.WithUsername("kasir"),
		tcPostgres.WithPassword("kasir"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                 8000,
		Env:                  "test",
		JWTSecret:            "test-secret-key",
		JWTExpirationHours:   8,
		JWTRefreshHours:      24,
		DatabaseURL:          pgURL,
		RedisURL:             rdURL,
		PriceCacheTTLMinutes: 5,
		RateLimit:            10000,
		WorkerPoolSize:       1,
		PDFStoragePath:       t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.User{
		Name:         "Admin E2E",
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}).Error)

	r := router.New(cfg, router.Deps{DB: db, Redis: rdb, Dispatcher: worker.NewDispatcher(rdb)})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, token: login(t, srv, "admin", "admin123")}
}

func login(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	resp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": username, "password": password}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body dto.LoginResponse
	decodeJSON(t, resp, &body)
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

func (e *testEnv) createItem(t *testing.T, sku string, stock int, price int64) dto.ItemResponse {
	t.Helper()
	resp := do(t, e.server, "POST", "/v1/inventory", jsonBody(t, map[string]any{
		"sku":            sku,
		"name":           "Item " + sku,
		"category":       "Sparepart",
		"purchase_price": decimal.NewFromInt(price / 2),
		"selling_price":  decimal.NewFromInt(price),
		"stock":          stock,
	}), e.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var item dto.ItemResponse
	decodeJSON(t, resp, &item)
	return item
}

func (e *testEnv) stockOf(t *testing.T, id string) int {
	t.Helper()
	resp := do(t, e.server, "GET", "/v1/inventory/"+id, nil, e.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var item dto.ItemResponse
	decodeJSON(t, resp, &item)
	return item.Stock
}

func cart(itemID string, qty int, paid int64) map[string]any {
	return map[string]any{
		"lines":          []map[string]any{{"item_id": itemID, "qty": qty}},
		"payment_method": "Cash",
		"amount_paid":    decimal.NewFromInt(paid),
	}
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_RetailSaleAndRefund(t *testing.T) {
	env := setupTestEnv(t)
	item := env.createItem(t, "LCD-14", 5, 100000)

	resp := do(t, env.server, "POST", "/v1/transactions", jsonBody(t, cart(item.ID, 3, 500000)), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sale dto.SaleResponse
	decodeJSON(t, resp, &sale)
	assert.True(t, strings.HasPrefix(sale.InvoiceNo, "INV-"))
	assert.True(t, strings.HasSuffix(sale.InvoiceNo, "-0001"))
	assert.True(t, decimal.NewFromInt(200000).Equal(sale.ChangeDue))
	assert.Equal(t, 2, env.stockOf(t, item.ID))

	// oversell rejected with the deficit
	resp = do(t, env.server, "POST", "/v1/transactions", jsonBody(t, cart(item.ID, 3, 500000)), env.token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var stockErr apierror.StockError
	decodeJSON(t, resp, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 1, stockErr.Deficit)

	// delete restores the sold units
	resp = do(t, env.server, "DELETE", "/v1/transactions/"+sale.ID, nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var refund dto.DeleteSaleResponse
	decodeJSON(t, resp, &refund)
	require.Len(t, refund.Credited, 1)
	assert.Empty(t, refund.Failed)
	assert.Equal(t, 5, env.stockOf(t, item.ID))

	resp = do(t, env.server, "GET", "/v1/transactions/"+sale.ID, nil, env.token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "GET", "/v1/inventory/movements?item_id="+item.ID, nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mvs dto.MovementListResponse
	decodeJSON(t, resp, &mvs)
	assert.Equal(t, int64(3), mvs.Total) // opening restock, sale, refund
}

// parallel sends the same request n times at once and returns the status
// codes and bodies in call order.
func parallel(t *testing.T, env *testEnv, n int, method, path string, body []byte) ([]int, [][]byte) {
	t.Helper()
	codes := make([]int, n)
	bodies := make([][]byte, n)
	start := make(chan struct{})
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			<-start
			var err error
			codes[i], bodies[i], err = fire(env.server, method, path, body, env.token)
			return err
		})
	}
	close(start)
	require.NoError(t, g.Wait())
	return codes, bodies
}

func TestE2E_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	env := setupTestEnv(t)
	item := env.createItem(t, "RAM-8", 5, 300000)

	body, err := json.Marshal(cart(item.ID, 3, 900000))
	require.NoError(t, err)
	codes, _ := parallel(t, env, 2, "POST", "/v1/transactions", body)

	created := 0
	for _, c := range codes {
		if c == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusBadRequest, c)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 2, env.stockOf(t, item.ID))
}

func TestE2E_ConcurrentCheckoutsGetDistinctInvoices(t *testing.T) {
	env := setupTestEnv(t)
	item := env.createItem(t, "USB-C", 100, 25000)

	const n = 12
	body, err := json.Marshal(cart(item.ID, 1, 25000))
	require.NoError(t, err)
	codes, bodies := parallel(t, env, n, "POST", "/v1/transactions", body)

	seqs := make([]int, 0, n)
	seen := map[string]bool{}
	for i, c := range codes {
		require.Equal(t, http.StatusCreated, c, string(bodies[i]))
		var sale dto.SaleResponse
		require.NoError(t, json.Unmarshal(bodies[i], &sale))
		assert.False(t, seen[sale.InvoiceNo], "duplicate invoice %s", sale.InvoiceNo)
		seen[sale.InvoiceNo] = true

		parts := strings.Split(sale.InvoiceNo, "-")
		require.Len(t, parts, 3, sale.InvoiceNo)
		assert.Equal(t, "INV", parts[0])
		assert.Len(t, parts[1], 6)
		require.Len(t, parts[2], 4)
		seq, err := strconv.Atoi(parts[2])
		require.NoError(t, err)
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)
	for i, seq := range seqs {
		assert.Equal(t, i+1, seq)
	}
	assert.Equal(t, 100-n, env.stockOf(t, item.ID))
}

func TestE2E_ConcurrentDeletesCreditOnce(t *testing.T) {
	env := setupTestEnv(t)
	item := env.createItem(t, "HDD-1T", 10, 700000)

	resp := do(t, env.server, "POST", "/v1/transactions", jsonBody(t, cart(item.ID, 3, 2100000)), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sale dto.SaleResponse
	decodeJSON(t, resp, &sale)
	require.Equal(t, 7, env.stockOf(t, item.ID))

	codes, _ := parallel(t, env, 4, "DELETE", "/v1/transactions/"+sale.ID, nil)

	deleted := 0
	for _, c := range codes {
		if c == http.StatusOK {
			deleted++
		} else {
			assert.Equal(t, http.StatusNotFound, c)
		}
	}
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 10, env.stockOf(t, item.ID))

	resp = do(t, env.server, "GET", "/v1/inventory/movements?item_id="+item.ID+"&type=refund", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mvs dto.MovementListResponse
	decodeJSON(t, resp, &mvs)
	assert.Equal(t, int64(1), mvs.Total)
}

func TestE2E_FailedCartLeavesStockUntouched(t *testing.T) {
	env := setupTestEnv(t)
	x := env.createItem(t, "KB-01", 10, 100000)
	y := env.createItem(t, "CAM-01", 1, 200000)

	resp := do(t, env.server, "POST", "/v1/transactions", jsonBody(t, map[string]any{
		"lines": []map[string]any{
			{"item_id": x.ID, "qty": 2},
			{"item_id": y.ID, "qty": 5},
		},
		"payment_method": "Transfer",
	}), env.token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 10, env.stockOf(t, x.ID))
	assert.Equal(t, 1, env.stockOf(t, y.ID))
}

func TestE2E_ServiceTicketLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	part := env.createItem(t, "FAN-01", 4, 90000)

	resp := do(t, env.server, "POST", "/v1/users", jsonBody(t, map[string]any{
		"name": "Budi Teknisi", "username": "budi", "password": "budi1234", "role": "teknisi",
	}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tech dto.UserResponse
	decodeJSON(t, resp, &tech)
	techToken := login(t, env.server, "budi", "budi1234")

	resp = do(t, env.server, "POST", "/v1/services", jsonBody(t, map[string]any{
		"customer":      map[string]any{"name": "Rina", "phone": "08123456789", "type": "Mahasiswa"},
		"device":        map[string]any{"type": "Laptop", "brand": "Asus", "model": "X441", "symptoms": "overheating"},
		"technician_id": tech.ID,
		"service_fee":   decimal.NewFromInt(50000),
	}), techToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var ticket dto.TicketResponse
	decodeJSON(t, resp, &ticket)
	assert.Equal(t, "Queue", ticket.Status)

	status := func(to string) int {
		resp := do(t, env.server, "PATCH", "/v1/services/"+ticket.ID+"/status", jsonBody(t, map[string]string{"status": to}), techToken)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusBadRequest, status("Completed"))
	assert.Equal(t, http.StatusOK, status("Diagnosing"))

	resp = do(t, env.server, "POST", "/v1/services/"+ticket.ID+"/parts",
		jsonBody(t, map[string]any{"item_id": part.ID, "quantity": 1}), techToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &ticket)
	require.Len(t, ticket.PartsUsed, 1)
	assert.True(t, decimal.NewFromInt(140000).Equal(ticket.TotalCost))
	assert.Equal(t, 3, env.stockOf(t, part.ID))

	assert.Equal(t, http.StatusOK, status("In_Progress"))
	assert.Equal(t, http.StatusOK, status("Completed"))

	resp = do(t, env.server, "POST", "/v1/services/"+ticket.ID+"/parts",
		jsonBody(t, map[string]any{"item_id": part.ID, "quantity": 1}), techToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 3, env.stockOf(t, part.ID))

	assert.Equal(t, http.StatusOK, status("Picked_Up"))
	assert.Equal(t, http.StatusBadRequest, status("Diagnosing"))

	resp = do(t, env.server, "GET", "/v1/services/number/"+ticket.TicketNumber, nil, techToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &ticket)
	assert.Equal(t, "Picked_Up", ticket.Status)
	assert.NotNil(t, ticket.Timestamps.DiagnosedAt)
	assert.NotNil(t, ticket.Timestamps.CompletedAt)
	assert.NotNil(t, ticket.Timestamps.PickedUpAt)
	require.NotNil(t, ticket.DurationDays)
	assert.Equal(t, 1, *ticket.DurationDays)

	// cashiers cannot move tickets
	resp = do(t, env.server, "POST", "/v1/users", jsonBody(t, map[string]any{
		"name": "Sari Kasir", "username": "sari", "password": "sari1234", "role": "kasir",
	}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	cashierToken := login(t, env.server, "sari", "sari1234")
	resp = do(t, env.server, "PATCH", "/v1/services/"+ticket.ID+"/status", jsonBody(t, map[string]string{"status": "Diagnosing"}), cashierToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestE2E_PublicPriceCheckIsCached(t *testing.T) {
	env := setupTestEnv(t)
	item := env.createItem(t, "SSD-256", 3, 400000)

	resp := do(t, env.server, "GET", "/v1/price/ssd-256", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	resp.Body.Close()

	resp = do(t, env.server, "GET", "/v1/price/SSD-256", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	resp.Body.Close()

	// a price edit invalidates the cached answer
	resp = do(t, env.server, "PUT", "/v1/inventory/"+item.ID,
		jsonBody(t, map[string]any{"selling_price": decimal.NewFromInt(450000)}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "GET", "/v1/price/SSD-256", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	var price dto.PriceCheckResponse
	decodeJSON(t, resp, &price)
	assert.True(t, decimal.NewFromInt(450000).Equal(price.SellingPrice))
}
