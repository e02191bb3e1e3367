package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwabenaosei/dukapos-backend/internal/customers"
	"github.com/kwabenaosei/dukapos-backend/internal/inventory"
	salesvc "github.com/kwabenaosei/dukapos-backend/internal/sales"
	pkgauth "github.com/kwabenaosei/dukapos-backend/pkg/auth"
	"github.com/kwabenaosei/dukapos-backend/pkg/config"
	"github.com/kwabenaosei/dukapos-backend/pkg/db/models"
	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
	"github.com/kwabenaosei/dukapos-backend/pkg/recordstore"
	"github.com/kwabenaosei/dukapos-backend/pkg/types"
)

type stubAdjuster struct{}

func (stubAdjuster) ApplySale(_ context.Context, _, productID uuid.UUID, quantity int) (inventory.ItemOutcome, error) {
	return inventory.ItemOutcome{
		ProductID: productID,
		Quantity:  quantity,
		Applied:   true,
		Status:    enums.ProductStatusActive,
	}, nil
}

type stubResolver struct{}

func (stubResolver) Upsert(_ context.Context, businessID uuid.UUID, candidate customers.Candidate) (*models.Customer, bool, error) {
	return &models.Customer{ID: uuid.New(), BusinessID: businessID, Name: candidate.Name}, true, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "dukapos-test",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()

	sales, err := salesvc.NewService(recordstore.NewMemoryStore(), stubAdjuster{}, stubResolver{}, nil, nil, nil, cfg.Sales)
	require.NoError(t, err)

	return NewRouter(Deps{
		Config: cfg,
		Sales:  sales,
	}), cfg
}

func bearerToken(t *testing.T, cfg *config.Config, businessID uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:     uuid.New(),
		BusinessID: businessID,
		Role:       "owner",
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRecordSaleEndToEnd(t *testing.T) {
	router, cfg := newTestRouter(t)
	businessID := uuid.New()

	payload := map[string]any{
		"items": []types.SaleItem{
			{ProductID: uuid.New(), Name: "Sugar 1kg", Price: decimal.NewFromInt(12), Quantity: 2},
		},
		"total":          24,
		"payment_method": "Cash",
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, cfg, businessID))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Sale salesvc.SaleRecord `json:"sale"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, businessID, envelope.Data.Sale.BusinessID)

	// the sale shows up in the same tenant's daily listing
	date := envelope.Data.Sale.Date
	listReq := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/sales/%s", date), nil)
	listReq.Header.Set("Authorization", bearerToken(t, cfg, businessID))
	listW := httptest.NewRecorder()
	router.ServeHTTP(listW, listReq)
	require.Equal(t, http.StatusOK, listW.Code)

	// and not in another tenant's
	otherReq := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/sales/%s", date), nil)
	otherReq.Header.Set("Authorization", bearerToken(t, cfg, uuid.New()))
	otherW := httptest.NewRecorder()
	router.ServeHTTP(otherW, otherReq)
	require.Equal(t, http.StatusOK, otherW.Code)

	var other struct {
		Data struct {
			TotalTransactions int `json:"total_transactions"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(otherW.Body).Decode(&other))
	assert.Zero(t, other.Data.TotalTransactions)
}

func TestRecordSaleRejectsUnknownFields(t *testing.T) {
	router, cfg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewBufferString(`{"bogus":true}`))
	req.Header.Set("Authorization", bearerToken(t, cfg, uuid.New()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCashierCannotCreateProducts(t *testing.T) {
	router, cfg := newTestRouter(t)

	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:     uuid.New(),
		BusinessID: uuid.New(),
		Role:       "cashier",
	})
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"name":"Salt 500g","price":5,"stock":10}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", body)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
