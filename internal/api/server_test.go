package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/garment-order-tracker/internal/auth"
	"github.com/vaidashi/garment-order-tracker/internal/clients"
	"github.com/vaidashi/garment-order-tracker/internal/config"
	"github.com/vaidashi/garment-order-tracker/internal/inventory"
	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/outbox"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	"github.com/vaidashi/garment-order-tracker/internal/service"
	"github.com/vaidashi/garment-order-tracker/internal/tracking"
	"github.com/vaidashi/garment-order-tracker/pkg/circuitbreaker"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
	"github.com/vaidashi/garment-order-tracker/pkg/retry"
)

const (
	adminEmail    = "admin@garments.test"
	adminPassword = "admin-password"
)

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ApiError       `json:"error"`
}

type testAPI struct {
	t        *testing.T
	server   *Server
	store    *repository.MemoryStore
	payments *circuitbreaker.CircuitBreaker
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	log := logger.NewNopLogger()
	store := repository.NewMemoryStore()
	ledger := inventory.NewLedger(log)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	users := service.NewUserService(store, tokens, log)
	require.NoError(t, users.EnsureAdmin(context.Background(), "Admin", adminEmail, adminPassword))

	dlq := outbox.NewDeadLetterProcessor(store.DeadLetters(), log, &outbox.DeadLetterProcessorConfig{
		PollingInterval: time.Second,
		BatchSize:       10,
		MaxRetries:      1,
		BackoffStrategy: &retry.ConstantBackoff{Interval: time.Millisecond},
	})
	for _, eventType := range models.EventTypes {
		dlq.RegisterHandler(eventType, outbox.NewLoggingHandler(log))
	}

	payments := circuitbreaker.NewCircuitBreaker(circuitbreaker.CircuitBreakerConfig{
		Name:             "payments",
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
		HalfOpenMaxCalls: 1,
	})

	cfg := &config.Config{
		Port: 0,
		RateLimit: config.RateLimitConfig{
			GlobalMaxTokens:   10000,
			GlobalMaxRate:     10000,
			GlobalMinRate:     1000,
			LoadThreshold:     0.9,
			IPMaxTokens:       10000,
			IPRefillRate:      10000,
			EndpointMaxTokens: 10000,
			EndpointRate:      10000,
		},
	}

	server := NewServer(cfg, Deps{
		Users:       users,
		Products:    service.NewProductService(store, ledger, log),
		Orders:      service.NewOrderService(store, ledger, tracking.NewLog(store, log), clients.DisabledPaymentGateway{}, "usd", log),
		DeadLetters: dlq,
		DLQStore:    store.DeadLetters(),
		Outbox:      store.Outbox(),
		Breakers:    []*circuitbreaker.CircuitBreaker{payments},
	}, log)
	t.Cleanup(func() { _ = server.Shutdown(context.Background()) })

	return &testAPI{t: t, server: server, store: store, payments: payments}
}

func (a *testAPI) do(method, path, token string, body interface{}) (int, response) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, req)

	var resp response
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func (a *testAPI) decode(resp response, into interface{}) {
	a.t.Helper()
	require.NoError(a.t, json.Unmarshal(resp.Data, into))
}

func (a *testAPI) login(email, password string) string {
	a.t.Helper()

	code, resp := a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, code, resp.Error)

	var result struct {
		Token string `json:"token"`
	}
	a.decode(resp, &result)
	return result.Token
}

func (a *testAPI) register(name, email, role string) string {
	a.t.Helper()

	code, resp := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "password123",
		"role":     role,
	})
	require.Equal(a.t, http.StatusCreated, code, resp.Error)

	var user models.User
	a.decode(resp, &user)
	assert.Equal(a.t, models.AccountStatusPending, user.Status)
	return user.ID
}

type actors struct {
	admin, manager, buyer string
	buyerID, managerID    string
	productID             string
}

// setup registers and approves a manager and a buyer, and lists one product
func (a *testAPI) setup() actors {
	a.t.Helper()

	var act actors
	act.admin = a.login(adminEmail, adminPassword)
	act.managerID = a.register("Mina Manager", "mina@garments.test", "manager")
	act.buyerID = a.register("Bob Buyer", "bob@garments.test", "buyer")

	for _, id := range []string{act.managerID, act.buyerID} {
		code, resp := a.do(http.MethodPut, "/api/v1/admin/users/"+id+"/status", act.admin, map[string]string{"status": "approved"})
		require.Equal(a.t, http.StatusOK, code, resp.Error)
	}

	act.manager = a.login("mina@garments.test", "password123")
	act.buyer = a.login("bob@garments.test", "password123")

	code, resp := a.do(http.MethodPost, "/api/v1/products", act.manager, map[string]interface{}{
		"name":                 "Oxford Shirt",
		"category":             "shirt",
		"price":                "12.50",
		"availableQuantity":    100,
		"minimumOrderQuantity": 10,
	})
	require.Equal(a.t, http.StatusCreated, code, resp.Error)

	var product models.Product
	a.decode(resp, &product)
	assert.Equal(a.t, "oxford-shirt", product.Slug)
	act.productID = product.ID
	return act
}

func orderBody(productID string, qty int) map[string]interface{} {
	return map[string]interface{}{
		"productId":     productID,
		"quantity":      qty,
		"paymentMethod": "cod",
		"shipping": map[string]interface{}{
			"address": map[string]string{"street": "1 Mill Road", "city": "Dhaka", "country": "BD"},
			"contact": map[string]string{"name": "Bob Buyer", "phone": "+880100000"},
		},
	}
}

func (a *testAPI) availableQuantity(productID string) int {
	a.t.Helper()

	code, resp := a.do(http.MethodGet, "/api/v1/products/"+productID, "", nil)
	require.Equal(a.t, http.StatusOK, code)

	var product models.Product
	a.decode(resp, &product)
	return product.AvailableQuantity
}

func TestHealthCheck(t *testing.T) {
	a := newTestAPI(t)

	code, resp := a.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)

	var health Health
	a.decode(resp, &health)
	assert.Equal(t, "ok", health.Status)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	code, resp := a.do(http.MethodPost, "/api/v1/orders", act.buyer, orderBody(act.productID, 20))
	require.Equal(t, http.StatusCreated, code, resp.Error)

	var order models.Order
	a.decode(resp, &order)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "250", order.TotalAmount.String())
	assert.Equal(t, 80, a.availableQuantity(act.productID))

	code, resp = a.do(http.MethodPut, "/api/v1/orders/"+order.ID+"/approve", act.buyer, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "unauthorized", resp.Error.Code)

	code, resp = a.do(http.MethodPut, "/api/v1/orders/"+order.ID+"/approve", act.manager, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)

	var result service.TransitionResult
	a.decode(resp, &result)
	assert.Equal(t, models.OrderStatusApproved, result.Order.Status)
	assert.Equal(t, models.OrderStatusPending, result.From)

	code, resp = a.do(http.MethodPost, "/api/v1/tracking/order/"+order.ID, act.manager, map[string]string{"stage": "sewing", "location": "Line 3"})
	require.Equal(t, http.StatusCreated, code, resp.Error)

	code, resp = a.do(http.MethodPut, "/api/v1/orders/"+order.ID+"/status", act.manager, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	a.decode(resp, &result)
	assert.Equal(t, models.OrderStatusDelivered, result.Order.Status)

	code, resp = a.do(http.MethodPut, "/api/v1/orders/"+order.ID+"/cancel", act.buyer, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "order_already_final", resp.Error.Code)
	assert.Equal(t, 80, a.availableQuantity(act.productID))

	code, resp = a.do(http.MethodGet, "/api/v1/tracking/order/"+order.ID, act.buyer, nil)
	require.Equal(t, http.StatusOK, code)

	var events []models.TrackingEvent
	a.decode(resp, &events)
	stages := make([]models.TrackingStage, len(events))
	for i, e := range events {
		stages[i] = e.Stage
	}
	assert.Equal(t, []models.TrackingStage{
		models.StageOrderPlaced,
		models.StageApproved,
		models.StageSewing,
		models.StageDelivered,
	}, stages)
}

func TestCancelRestoresStockOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	code, resp := a.do(http.MethodPost, "/api/v1/orders", act.buyer, orderBody(act.productID, 30))
	require.Equal(t, http.StatusCreated, code, resp.Error)

	var order models.Order
	a.decode(resp, &order)

	code, resp = a.do(http.MethodPut, "/api/v1/orders/"+order.ID+"/cancel", act.buyer, map[string]string{"reason": "changed my mind"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, 100, a.availableQuantity(act.productID))
}

func TestOrderValidationErrors(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	code, resp := a.do(http.MethodPost, "/api/v1/orders", act.buyer, orderBody(act.productID, 5))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "below_minimum_order", resp.Error.Code)

	code, resp = a.do(http.MethodPost, "/api/v1/orders", act.buyer, orderBody(act.productID, 500))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "insufficient_stock", resp.Error.Code)

	body := orderBody(act.productID, 20)
	body["paymentMethod"] = "barter"
	code, resp = a.do(http.MethodPost, "/api/v1/orders", act.buyer, body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", resp.Error.Code)

	code, resp = a.do(http.MethodPost, "/api/v1/orders", act.manager, orderBody(act.productID, 20))
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = a.do(http.MethodPut, "/api/v1/orders/ord-missing/approve", act.manager, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", resp.Error.Code)

	code, resp = a.do(http.MethodPut, "/api/v1/orders/ord-missing/status", act.manager, map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, code)

	assert.Equal(t, 100, a.availableQuantity(act.productID))
}

func TestOnlinePaymentDisabled(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	code, resp := a.do(http.MethodPost, "/api/v1/payments/create-checkout-session", act.buyer, map[string]interface{}{
		"productId": act.productID,
		"quantity":  20,
	})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "service_unavailable", resp.Error.Code)
}

func TestPendingBuyerCannotOrder(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	a.register("Pat Pending", "pat@garments.test", "buyer")
	pending := a.login("pat@garments.test", "password123")

	code, resp := a.do(http.MethodPost, "/api/v1/orders", pending, orderBody(act.productID, 20))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "account_not_approved", resp.Error.Code)
}

func TestListingsAreRoleScoped(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	for i := 0; i < 2; i++ {
		code, resp := a.do(http.MethodPost, "/api/v1/orders", act.buyer, orderBody(act.productID, 10))
		require.Equal(t, http.StatusCreated, code, resp.Error)
	}

	type page struct {
		Items      []models.Order `json:"items"`
		Count      int            `json:"count"`
		TotalCount *int           `json:"total_count"`
	}

	code, resp := a.do(http.MethodGet, "/api/v1/orders/my-orders", act.buyer, nil)
	require.Equal(t, http.StatusOK, code)
	var mine page
	a.decode(resp, &mine)
	assert.Len(t, mine.Items, 2)
	assert.Equal(t, 2, mine.Count)
	assert.Nil(t, mine.TotalCount)

	code, resp = a.do(http.MethodGet, "/api/v1/orders/pending", act.manager, nil)
	require.Equal(t, http.StatusOK, code)
	var pending page
	a.decode(resp, &pending)
	assert.Len(t, pending.Items, 2)

	code, _ = a.do(http.MethodGet, "/api/v1/orders/pending", act.buyer, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodGet, "/api/v1/orders/admin", act.manager, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = a.do(http.MethodGet, "/api/v1/orders/admin?status=pending&pageSize=1", act.admin, nil)
	require.Equal(t, http.StatusOK, code)
	var all page
	a.decode(resp, &all)
	assert.Len(t, all.Items, 1)
	assert.Equal(t, 1, all.Count)
}

func TestListingPageOutOfRange(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	code, resp := a.do(http.MethodPost, "/api/v1/orders", act.buyer, orderBody(act.productID, 10))
	require.Equal(t, http.StatusCreated, code, resp.Error)

	var listed struct {
		Items    []models.Order `json:"items"`
		Count    int            `json:"count"`
		Page     int            `json:"page"`
		PageSize int            `json:"page_size"`
	}

	tests := []struct {
		path  string
		token string
	}{
		{"/api/v1/orders/my-orders?page=4611686018427387904", act.buyer},
		{"/api/v1/orders/my-orders?page=9223372036854775807&pageSize=100", act.buyer},
		{"/api/v1/orders/admin?page=4611686018427387904", act.admin},
		{"/api/v1/admin/dead-letters?page=4611686018427387904", act.admin},
	}

	for _, tt := range tests {
		code, resp := a.do(http.MethodGet, tt.path, tt.token, nil)
		require.Equal(t, http.StatusOK, code, tt.path)
		a.decode(resp, &listed)
		assert.Empty(t, listed.Items, tt.path)
		assert.Equal(t, 0, listed.Count, tt.path)
		assert.Equal(t, maxPage, listed.Page, tt.path)
	}

	code, resp = a.do(http.MethodGet, "/api/v1/orders/my-orders?page=1", act.buyer, nil)
	require.Equal(t, http.StatusOK, code)
	a.decode(resp, &listed)
	assert.Len(t, listed.Items, 1)
}

func TestAuthentication(t *testing.T) {
	a := newTestAPI(t)

	code, resp := a.do(http.MethodGet, "/api/v1/orders/my-orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthenticated", resp.Error.Code)

	code, _ = a.do(http.MethodGet, "/api/v1/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": adminEmail, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, resp = a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Eve", "email": "eve@garments.test", "password": "password123", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", resp.Error.Code)
}

func TestSuspensionTakesEffectImmediately(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	code, _ := a.do(http.MethodGet, "/api/v1/users/me", act.buyer, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp := a.do(http.MethodPut, "/api/v1/admin/users/"+act.buyerID+"/status", act.admin, map[string]string{"status": "suspended"})
	assert.Equal(t, http.StatusBadRequest, code, "suspension requires a reason")

	code, resp = a.do(http.MethodPut, "/api/v1/admin/users/"+act.buyerID+"/status", act.admin, map[string]string{
		"status": "suspended",
		"reason": "chargebacks",
	})
	require.Equal(t, http.StatusOK, code, resp.Error)

	code, resp = a.do(http.MethodGet, "/api/v1/users/me", act.buyer, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "account_suspended", resp.Error.Code)
}

func TestProfileUpdate(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	code, resp := a.do(http.MethodPut, "/api/v1/users/me", act.buyer, map[string]string{"phone": "+880199999"})
	require.Equal(t, http.StatusOK, code, resp.Error)

	var user models.User
	a.decode(resp, &user)
	require.NotNil(t, user.Phone)
	assert.Equal(t, "+880199999", *user.Phone)
}

func TestProductAdministration(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	code, resp := a.do(http.MethodPut, "/api/v1/products/"+act.productID+"/inventory", act.manager, map[string]int{"delta": -30})
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, 70, a.availableQuantity(act.productID))

	code, resp = a.do(http.MethodPut, "/api/v1/products/"+act.productID+"/inventory", act.manager, map[string]int{"delta": -500})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = a.do(http.MethodPut, "/api/v1/products/"+act.productID, act.buyer, map[string]string{"name": "Stolen"})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = a.do(http.MethodPut, "/api/v1/products/"+act.productID, act.manager, map[string]interface{}{"featured": true, "price": "15"})
	require.Equal(t, http.StatusOK, code, resp.Error)

	code, resp = a.do(http.MethodGet, "/api/v1/products?featured=true", "", nil)
	require.Equal(t, http.StatusOK, code)
	var listed struct {
		Items []models.Product `json:"items"`
	}
	a.decode(resp, &listed)
	require.Len(t, listed.Items, 1)
	assert.Equal(t, "15", listed.Items[0].Price.String())

	code, _ = a.do(http.MethodGet, "/api/v1/products?category=spacesuit", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = a.do(http.MethodPost, "/api/v1/orders", act.buyer, orderBody(act.productID, 10))
	require.Equal(t, http.StatusCreated, code, resp.Error)

	code, resp = a.do(http.MethodDelete, "/api/v1/products/"+act.productID, act.manager, nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	for _, path := range []string{
		"/api/v1/admin/users",
		"/api/v1/admin/dead-letters",
		"/api/v1/admin/rate-limits",
		"/api/v1/admin/circuit-breakers",
		"/api/v1/admin/outbox",
	} {
		code, _ := a.do(http.MethodGet, path, act.manager, nil)
		assert.Equal(t, http.StatusForbidden, code, path)

		code, resp := a.do(http.MethodGet, path, act.admin, nil)
		assert.Equal(t, http.StatusOK, code, path)
		assert.True(t, resp.Success, path)
	}
}

func TestDeadLetterEndpoints(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	letter := models.NewDeadLetterMessage(&models.OutboxMessage{
		ID:            1,
		AggregateType: "order",
		AggregateID:   "ord-1",
		EventType:     models.EventOrderCreated,
		Payload:       []byte(`{"event_id":"evt-1"}`),
	}, "broker unavailable", "max retries exceeded")
	require.NoError(t, a.store.DeadLetters().Create(context.Background(), letter))

	code, resp := a.do(http.MethodGet, "/api/v1/admin/dead-letters?status=pending", act.admin, nil)
	require.Equal(t, http.StatusOK, code)
	var listed struct {
		Items      []models.DeadLetterMessage `json:"items"`
		Count      int                        `json:"count"`
		TotalCount *int                       `json:"total_count"`
	}
	a.decode(resp, &listed)
	assert.Equal(t, 1, listed.Count)
	require.NotNil(t, listed.TotalCount)
	assert.Equal(t, 1, *listed.TotalCount)

	code, _ = a.do(http.MethodGet, "/api/v1/admin/dead-letters?status=lost", act.admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = a.do(http.MethodPost, "/api/v1/admin/dead-letters/1/discard", act.admin, map[string]string{"reason": "duplicate"})
	require.Equal(t, http.StatusOK, code, resp.Error)

	code, resp = a.do(http.MethodPost, "/api/v1/admin/dead-letters/1/retry", act.admin, nil)
	require.Equal(t, http.StatusOK, code, resp.Error)
	var retried models.DeadLetterMessage
	a.decode(resp, &retried)
	assert.Equal(t, models.DeadLetterStatusResolved, retried.Status)

	code, _ = a.do(http.MethodPost, "/api/v1/admin/dead-letters/abc/retry", act.admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodPost, "/api/v1/admin/dead-letters/42/retry", act.admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCircuitBreakerEndpoints(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	a.payments.Failure()
	require.Equal(t, circuitbreaker.StateOpen, a.payments.GetState())

	code, resp := a.do(http.MethodGet, "/api/v1/admin/circuit-breakers", act.admin, nil)
	require.Equal(t, http.StatusOK, code)
	var metrics map[string]map[string]interface{}
	a.decode(resp, &metrics)
	assert.Equal(t, "open", metrics["payments"]["state"])
	assert.Contains(t, metrics, "api")

	code, _ = a.do(http.MethodPost, "/api/v1/admin/circuit-breakers/payments/reset", act.admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, circuitbreaker.StateClosed, a.payments.GetState())

	code, _ = a.do(http.MethodPost, "/api/v1/admin/circuit-breakers/warehouse/reset", act.admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSetEndpointRateLimit(t *testing.T) {
	a := newTestAPI(t)
	act := a.setup()

	code, _ := a.do(http.MethodPut, "/api/v1/admin/rate-limits", act.admin, map[string]interface{}{
		"endpoint":    "GET:/api/v1/products",
		"max_tokens":  1,
		"refill_rate": 0.001,
	})
	require.Equal(t, http.StatusOK, code)

	code, _ = a.do(http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp := a.do(http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate_limited", resp.Error.Code)

	code, _ = a.do(http.MethodPut, "/api/v1/admin/rate-limits", act.admin, map[string]interface{}{"endpoint": ""})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUnknownRoute(t *testing.T) {
	a := newTestAPI(t)

	code, resp := a.do(http.MethodGet, "/api/v1/warehouses", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", resp.Error.Code)
}
