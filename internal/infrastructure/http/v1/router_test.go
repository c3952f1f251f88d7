package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "backoffice/internal/core/context"
	"backoffice/internal/core/id"
	corenumerator "backoffice/internal/core/numerator"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/catalog"
	"backoffice/internal/domain/order"
	"backoffice/internal/domain/reports"
	"backoffice/internal/domain/stock"
	v1 "backoffice/internal/infrastructure/http/v1"
	"backoffice/internal/infrastructure/http/v1/dto"
	"backoffice/internal/infrastructure/http/v1/middleware"
	"backoffice/internal/infrastructure/storage/memory"
	"backoffice/pkg/logger"
)

type testAPI struct {
	router    *gin.Engine
	stockRepo *memory.StockRepo
	product   catalog.Product
	warehouse id.ID
}

type apiOpts struct {
	validator   middleware.JWTValidator
	idempotency bool
}

func newTestAPI(t *testing.T, opts apiOpts) *testAPI {
	t.Helper()

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	orders := memory.NewOrderRepo(store)
	stockRepo := memory.NewStockRepo(store)
	catalogRepo := memory.NewCatalogRepo(store)
	outbox := memory.NewOutboxPublisher(store)

	ledger := stock.NewLedger(stockRepo, stock.PolicyReject)
	engine := order.NewEngine(txm, orders, ledger, order.WithPublisher(outbox))
	orderService := order.NewService(orders, engine, catalogRepo, corenumerator.NewInMemory(), txm,
		order.Defaults{Currency: "USD"},
		order.WithServicePublisher(outbox),
	)

	api := &testAPI{
		stockRepo: stockRepo,
		warehouse: id.New(),
		product: catalog.Product{
			ID:       id.New(),
			SKU:      "MUG-01",
			Name:     "Mug",
			Price:    types.MustMoney("20.00"),
			Cost:     types.MustMoney("8.00"),
			IsActive: true,
		},
	}
	catalogRepo.SaveProduct(context.Background(), api.product)

	cfg := v1.RouterConfig{
		Orders:       orderService,
		Stock:        stock.NewService(stockRepo, ledger, txm),
		Reports:      reports.NewService(memory.NewReportRepo(store), reports.WithReadOnly(txm)),
		Health:       store,
		Backend:      "memory",
		Version:      "test",
		Logger:       logger.Default(),
		JWTValidator: opts.validator,
	}
	if opts.idempotency {
		cfg.Idempotency = memory.NewIdempotencyStore(time.Hour)
	}
	api.router = v1.NewRouter(cfg)
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testAPI) receive(t *testing.T, qty int64) {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/stock/adjustments", map[string]any{
		"productId":   a.product.ID.String(),
		"warehouseId": a.warehouse.String(),
		"quantity":    qty,
		"unitCost":    "8.00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func (a *testAPI) createOrder(t *testing.T, qty int64) dto.OrderResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"guestEmail": "ann@example.com",
		"guestName":  "Ann",
		"items": []map[string]any{{
			"productId":   a.product.ID.String(),
			"warehouseId": a.warehouse.String(),
			"quantity":    qty,
		}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.OrderResponse](t, w)
}

func (a *testAPI) onHand(t *testing.T) int64 {
	t.Helper()
	level, err := a.stockRepo.GetLevel(context.Background(), stock.Key{ProductID: a.product.ID, WarehouseID: a.warehouse})
	require.NoError(t, err)
	return level.Quantity
}

func TestOrders_LifecycleDeductsAndRestoresStock(t *testing.T) {
	api := newTestAPI(t, apiOpts{})
	api.receive(t, 10)

	created := api.createOrder(t, 3)
	assert.Equal(t, "retail", created.Kind)
	assert.True(t, types.MustMoney("60").Equal(created.TotalAmount), created.TotalAmount.String())

	w := api.do(t, http.MethodPost, "/api/v1/orders/"+created.ID+"/process", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	processed := decode[dto.OrderResponse](t, w)
	assert.Equal(t, "processing", processed.Status)
	assert.True(t, processed.StockDeducted)
	assert.Equal(t, int64(7), api.onHand(t))

	w = api.do(t, http.MethodPost, "/api/v1/orders/"+created.ID+"/cancel", dto.CancelRequest{Reason: "customer changed mind"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decode[dto.OrderResponse](t, w)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.False(t, cancelled.StockDeducted)
	assert.Equal(t, "customer changed mind", cancelled.CancellationReason)
	assert.Equal(t, int64(10), api.onHand(t))

	w = api.do(t, http.MethodGet, "/api/v1/stock/movements?refKind=order&refId="+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	movements := decode[struct {
		Items []dto.StockMovementResponse `json:"items"`
	}](t, w)
	require.Len(t, movements.Items, 2)
	assert.Equal(t, stock.MovementOut, movements.Items[0].Type)
	assert.Equal(t, stock.MovementIn, movements.Items[1].Type)
	assert.Equal(t, "order", movements.Items[0].RefKind)
}

func TestOrders_ProcessRejectsShortStock(t *testing.T) {
	api := newTestAPI(t, apiOpts{})
	api.receive(t, 1)
	created := api.createOrder(t, 2)

	w := api.do(t, http.MethodPost, "/api/v1/orders/"+created.ID+"/process", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	body := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)

	w = api.do(t, http.MethodGet, "/api/v1/orders/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "draft", decode[dto.OrderResponse](t, w).Status)
	assert.Equal(t, int64(1), api.onHand(t))
}

func TestOrders_UpdateLockedWhileDeducted(t *testing.T) {
	api := newTestAPI(t, apiOpts{})
	api.receive(t, 5)
	created := api.createOrder(t, 1)

	w := api.do(t, http.MethodPost, "/api/v1/orders/"+created.ID+"/status", dto.TransitionRequest{Status: "shipped"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodPut, "/api/v1/orders/"+created.ID, map[string]any{
		"items": []map[string]any{{"productId": api.product.ID.String(), "quantity": 4}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, "ORDER_STOCK_LOCKED", decode[dto.ErrorResponse](t, w).Code)
}

func TestOrders_KindsAreSeparate(t *testing.T) {
	api := newTestAPI(t, apiOpts{})
	created := api.createOrder(t, 1)

	w := api.do(t, http.MethodGet, "/api/v1/agent-orders/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/orders/"+created.Number, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, created.ID, decode[dto.OrderResponse](t, w).ID)

	w = api.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"agentId": id.New().String(),
		"items":   []map[string]any{{"productId": api.product.ID.String(), "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/api/v1/agent-orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[dto.ListResponse[dto.OrderResponse]](t, w).TotalCount)

	w = api.do(t, http.MethodGet, "/api/v1/orders?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrders_Totals(t *testing.T) {
	api := newTestAPI(t, apiOpts{})

	w := api.do(t, http.MethodPost, "/api/v1/orders/totals", map[string]any{
		"items":          []map[string]any{{"quantity": 2, "unitPrice": "10.00"}},
		"shippingCost":   "5.00",
		"taxRate":        "10",
		"discountAmount": "1.00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	totals := decode[order.Totals](t, w)
	assert.True(t, types.MustMoney("20").Equal(totals.Subtotal))
	assert.True(t, types.MustMoney("2").Equal(totals.Tax))
	assert.True(t, types.MustMoney("26").Equal(totals.Total))
}

func TestOrders_TotalsReplayWithIdempotencyKey(t *testing.T) {
	api := newTestAPI(t, apiOpts{idempotency: true})
	body := map[string]any{
		"items":   []map[string]any{{"quantity": 1, "unitPrice": "10.01"}},
		"taxRate": "7",
	}

	first := api.do(t, http.MethodPost, "/api/v1/orders/totals", body, middleware.HeaderIdempotencyKey, "totals-1")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	totals := decode[order.Totals](t, first)
	assert.True(t, types.MustMoney("0.70").Equal(totals.Tax), totals.Tax.String())
	assert.True(t, types.MustMoney("10.71").Equal(totals.Total), totals.Total.String())

	retry := api.do(t, http.MethodPost, "/api/v1/orders/totals", body, middleware.HeaderIdempotencyKey, "totals-1")
	require.Equal(t, http.StatusOK, retry.Code, retry.Body.String())
	assert.JSONEq(t, first.Body.String(), retry.Body.String())
}

func TestStock_AdjustmentWithoutCostKeepsAverage(t *testing.T) {
	api := newTestAPI(t, apiOpts{})
	post := func(body map[string]any) {
		t.Helper()
		body["productId"] = api.product.ID.String()
		body["warehouseId"] = api.warehouse.String()
		w := api.do(t, http.MethodPost, "/api/v1/stock/adjustments", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	post(map[string]any{"quantity": 20, "unitCost": "8.00"})
	post(map[string]any{"quantity": 10})

	level, err := api.stockRepo.GetLevel(context.Background(), stock.Key{ProductID: api.product.ID, WarehouseID: api.warehouse})
	require.NoError(t, err)
	assert.Equal(t, int64(30), level.Quantity)
	assert.True(t, types.MustMoney("8.00").Equal(level.AverageCost), level.AverageCost.String())
}

func TestStock_IdempotentAdjustment(t *testing.T) {
	api := newTestAPI(t, apiOpts{idempotency: true})
	body := map[string]any{
		"productId":   api.product.ID.String(),
		"warehouseId": api.warehouse.String(),
		"quantity":    4,
		"unitCost":    "2.50",
	}

	first := api.do(t, http.MethodPost, "/api/v1/stock/adjustments", body, middleware.HeaderIdempotencyKey, "adj-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := api.do(t, http.MethodPost, "/api/v1/stock/adjustments", body, middleware.HeaderIdempotencyKey, "adj-1")
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())

	assert.Equal(t,
		decode[dto.StockMovementResponse](t, first).ID,
		decode[dto.StockMovementResponse](t, second).ID,
	)
	assert.Equal(t, int64(4), api.onHand(t))

	body["quantity"] = 5
	third := api.do(t, http.MethodPost, "/api/v1/stock/adjustments", body, middleware.HeaderIdempotencyKey, "adj-1")
	assert.Equal(t, http.StatusUnprocessableEntity, third.Code, third.Body.String())
}

func TestReports_Endpoints(t *testing.T) {
	api := newTestAPI(t, apiOpts{})
	api.receive(t, 3)

	w := api.do(t, http.MethodGet, "/api/v1/reports/monthly-performance", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/reports/monthly-performance?year=2026", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2026, decode[reports.MonthlyPerformanceReport](t, w).Year)

	w = api.do(t, http.MethodGet, "/api/v1/reports/stock-valuation", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	valuation := decode[reports.StockValuationReport](t, w)
	require.Len(t, valuation.Items, 1)
	assert.Equal(t, "MUG-01", valuation.Items[0].ProductSKU)
	assert.True(t, types.MustMoney("24").Equal(valuation.TotalValue), valuation.TotalValue.String())
}

type stubValidator struct {
	user *appctx.UserContext
}

func (v stubValidator) ValidateToken(token string) (*appctx.UserContext, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return v.user, nil
}

func TestAuth_Permissions(t *testing.T) {
	api := newTestAPI(t, apiOpts{validator: stubValidator{user: &appctx.UserContext{
		UserID:      id.New().String(),
		Permissions: []string{"order:read"},
	}}})

	w := api.do(t, http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/orders", nil, "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/orders", nil, "Authorization", "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/stock/adjustments", map[string]any{}, "Authorization", "Bearer good")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
