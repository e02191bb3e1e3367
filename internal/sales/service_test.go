package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwabenaosei/dukapos-backend/internal/customers"
	"github.com/kwabenaosei/dukapos-backend/internal/inventory"
	"github.com/kwabenaosei/dukapos-backend/pkg/config"
	"github.com/kwabenaosei/dukapos-backend/pkg/db/models"
	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kwabenaosei/dukapos-backend/pkg/errors"
	"github.com/kwabenaosei/dukapos-backend/pkg/recordstore"
	"github.com/kwabenaosei/dukapos-backend/pkg/types"
)

type stubAdjuster struct {
	calls   []uuid.UUID
	failFor map[uuid.UUID]error
}

func (s *stubAdjuster) ApplySale(_ context.Context, _ uuid.UUID, productID uuid.UUID, quantity int) (inventory.ItemOutcome, error) {
	s.calls = append(s.calls, productID)
	if err, ok := s.failFor[productID]; ok {
		return inventory.ItemOutcome{ProductID: productID, Quantity: quantity}, err
	}
	return inventory.ItemOutcome{ProductID: productID, Quantity: quantity, Applied: true}, nil
}

type stubResolver struct {
	upserts []customers.Candidate
	err     error
}

func (s *stubResolver) Upsert(_ context.Context, businessID uuid.UUID, candidate customers.Candidate) (*models.Customer, bool, error) {
	s.upserts = append(s.upserts, candidate)
	if s.err != nil {
		return nil, false, s.err
	}
	return &models.Customer{ID: uuid.New(), BusinessID: businessID, Name: candidate.Name}, true, nil
}

type stubNotifier struct {
	issued []SaleRecord
	err    error
}

func (s *stubNotifier) ReceiptIssued(_ context.Context, record SaleRecord) error {
	s.issued = append(s.issued, record)
	return s.err
}

type pipelineFixture struct {
	svc      Service
	store    *recordstore.MemoryStore
	adjuster *stubAdjuster
	resolver *stubResolver
	notifier *stubNotifier
	clock    *time.Time
}

func newPipeline(t *testing.T) *pipelineFixture {
	t.Helper()
	fixture := &pipelineFixture{
		store:    recordstore.NewMemoryStore(),
		adjuster: &stubAdjuster{failFor: map[uuid.UUID]error{}},
		resolver: &stubResolver{},
		notifier: &stubNotifier{},
	}
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	fixture.clock = &now

	svc, err := NewService(
		fixture.store,
		fixture.adjuster,
		fixture.resolver,
		fixture.notifier,
		nil,
		nil,
		config.SalesConfig{DuplicateWindow: 5 * time.Second},
	)
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return *fixture.clock }
	fixture.svc = svc
	return fixture
}

func saleInput(productID uuid.UUID) RecordSaleInput {
	return RecordSaleInput{
		Items: []types.SaleItem{
			{ProductID: productID, Name: "Rice 5kg", Price: decimal.NewFromInt(120), Quantity: 2},
		},
		Total:         decimal.NewFromInt(240),
		PaymentMethod: enums.PaymentMethodCash,
		Customer:      &CustomerRef{Name: "Ama Mensah", Phone: "0551234567"},
	}
}

func TestRecordSalePersistsAndFansOut(t *testing.T) {
	fixture := newPipeline(t)
	businessID := uuid.New()
	productID := uuid.New()
	ctx := context.Background()

	result, err := fixture.svc.RecordSale(ctx, businessID, saleInput(productID))
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.NotEmpty(t, result.Sale.ID)
	assert.Equal(t, "2026-03-14", result.Sale.Date)

	require.Len(t, result.ItemOutcomes, 1)
	assert.True(t, result.ItemOutcomes[0].Applied)
	require.Len(t, fixture.resolver.upserts, 1)
	assert.Equal(t, "Ama Mensah", fixture.resolver.upserts[0].Name)
	require.Len(t, fixture.notifier.issued, 1)

	var stored SaleRecord
	key := saleKey(businessID, result.Sale.Date, result.Sale.ID)
	require.NoError(t, fixture.store.Get(ctx, key, &stored))
	assert.True(t, stored.Total.Equal(decimal.NewFromInt(240)))
}

func TestRecordSaleSuppressesRetryWithinWindow(t *testing.T) {
	fixture := newPipeline(t)
	businessID := uuid.New()
	productID := uuid.New()
	ctx := context.Background()

	first, err := fixture.svc.RecordSale(ctx, businessID, saleInput(productID))
	require.NoError(t, err)

	*fixture.clock = fixture.clock.Add(3 * time.Second)
	// same customer and total, phone formatted differently
	retry := saleInput(productID)
	retry.Customer.Phone = "055-123-4567"
	second, err := fixture.svc.RecordSale(ctx, businessID, retry)
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Sale.ID, second.Sale.ID)
	assert.Len(t, fixture.adjuster.calls, 1, "duplicate must not adjust stock again")

	records, err := fixture.store.ScanByPrefix(ctx, dayPrefix(businessID, first.Sale.Date))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRecordSaleOutsideWindowIsNewSale(t *testing.T) {
	fixture := newPipeline(t)
	businessID := uuid.New()
	productID := uuid.New()
	ctx := context.Background()

	first, err := fixture.svc.RecordSale(ctx, businessID, saleInput(productID))
	require.NoError(t, err)

	*fixture.clock = fixture.clock.Add(6 * time.Second)
	second, err := fixture.svc.RecordSale(ctx, businessID, saleInput(productID))
	require.NoError(t, err)

	assert.False(t, second.Duplicate)
	assert.NotEqual(t, first.Sale.ID, second.Sale.ID)
}

func TestRecordSaleContainsPerItemFailures(t *testing.T) {
	fixture := newPipeline(t)
	businessID := uuid.New()
	good := uuid.New()
	missing := uuid.New()
	ctx := context.Background()

	fixture.adjuster.failFor[missing] = pkgerrors.New(pkgerrors.CodeNotFound, "product not found")

	input := RecordSaleInput{
		Items: []types.SaleItem{
			{ProductID: missing, Name: "Gone", Price: decimal.NewFromInt(10), Quantity: 1},
			{ProductID: good, Name: "Here", Price: decimal.NewFromInt(20), Quantity: 1},
		},
		Total:         decimal.NewFromInt(30),
		PaymentMethod: enums.PaymentMethodCash,
	}

	result, err := fixture.svc.RecordSale(ctx, businessID, input)
	require.NoError(t, err, "a per-item stock failure must not fail the sale")

	require.Len(t, result.ItemOutcomes, 2)
	assert.False(t, result.ItemOutcomes[0].Applied)
	assert.NotEmpty(t, result.ItemOutcomes[0].Error)
	assert.True(t, result.ItemOutcomes[1].Applied, "remaining items are still attempted")
}

func TestRecordSaleSurvivesNotifierFailure(t *testing.T) {
	fixture := newPipeline(t)
	fixture.notifier.err = errors.New("broker down")

	_, err := fixture.svc.RecordSale(context.Background(), uuid.New(), saleInput(uuid.New()))
	require.NoError(t, err)
}

func TestRecordSaleValidation(t *testing.T) {
	fixture := newPipeline(t)
	ctx := context.Background()

	_, err := fixture.svc.RecordSale(ctx, uuid.New(), RecordSaleInput{PaymentMethod: enums.PaymentMethodCash})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	input := saleInput(uuid.New())
	input.Items[0].Quantity = 0
	_, err = fixture.svc.RecordSale(ctx, uuid.New(), input)
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	input = saleInput(uuid.New())
	input.PaymentMethod = "iou"
	_, err = fixture.svc.RecordSale(ctx, uuid.New(), input)
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestGetSalesByDateAggregates(t *testing.T) {
	fixture := newPipeline(t)
	businessID := uuid.New()
	ctx := context.Background()

	first, err := fixture.svc.RecordSale(ctx, businessID, saleInput(uuid.New()))
	require.NoError(t, err)

	*fixture.clock = fixture.clock.Add(time.Minute)
	other := saleInput(uuid.New())
	other.Customer = &CustomerRef{Name: "Kofi Boateng"}
	other.Total = decimal.NewFromInt(60)
	_, err = fixture.svc.RecordSale(ctx, businessID, other)
	require.NoError(t, err)

	summary, err := fixture.svc.GetSalesByDate(ctx, businessID, first.Sale.Date)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalTransactions)
	assert.True(t, summary.TotalAmount.Equal(decimal.NewFromInt(300)))
	require.Len(t, summary.Sales, 2)
	assert.Equal(t, first.Sale.ID, summary.Sales[0].ID, "sales are ordered by timestamp")

	_, err = fixture.svc.GetSalesByDate(ctx, businessID, "14-03-2026")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestSalesAreTenantIsolated(t *testing.T) {
	fixture := newPipeline(t)
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()

	recorded, err := fixture.svc.RecordSale(ctx, tenantA, saleInput(uuid.New()))
	require.NoError(t, err)

	summary, err := fixture.svc.GetSalesByDate(ctx, tenantB, recorded.Sale.Date)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalTransactions)
	assert.Empty(t, summary.Sales)

	// an identical submission under another tenant is not a duplicate
	result, err := fixture.svc.RecordSale(ctx, tenantB, saleInput(uuid.New()))
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
}
