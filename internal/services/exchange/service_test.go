package exchange

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyrmee/centime/internal/common"
	"github.com/cyrmee/centime/internal/interfaces"
	"github.com/cyrmee/centime/internal/models"
)

// --- Mock rate store ---

type mockRateStore struct {
	rates     map[string]*models.ExchangeRate
	upserts   []*models.ExchangeRate
	gets      int
	failCodes map[string]bool
}

func newMockRateStore() *mockRateStore {
	return &mockRateStore{rates: make(map[string]*models.ExchangeRate)}
}

func (m *mockRateStore) Get(_ context.Context, code string) (*models.ExchangeRate, error) {
	m.gets++
	if r, ok := m.rates[code]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("exchange rate %s: %w", code, models.ErrNotFound)
}

func (m *mockRateStore) Upsert(_ context.Context, rate *models.ExchangeRate) error {
	if m.failCodes[rate.Code] {
		return fmt.Errorf("write rejected")
	}
	m.upserts = append(m.upserts, rate)
	m.rates[rate.Code] = rate
	return nil
}

func (m *mockRateStore) List(_ context.Context) ([]*models.ExchangeRate, error) {
	var out []*models.ExchangeRate
	for _, r := range m.rates {
		out = append(out, r)
	}
	return out, nil
}

// --- Mock storage manager ---

type mockStorageManager struct {
	rateStore *mockRateStore
}

func (m *mockStorageManager) Users() interfaces.UserStore                   { return nil }
func (m *mockStorageManager) Settings() interfaces.SettingsStore            { return nil }
func (m *mockStorageManager) MoneySources() interfaces.MoneySourceStore     { return nil }
func (m *mockStorageManager) BalanceHistory() interfaces.BalanceHistoryStore { return nil }
func (m *mockStorageManager) Expenses() interfaces.ExpenseStore             { return nil }
func (m *mockStorageManager) Categories() interfaces.CategoryStore          { return nil }
func (m *mockStorageManager) Rates() interfaces.RateStore                   { return m.rateStore }
func (m *mockStorageManager) Close() error                                  { return nil }

// --- Mock provider ---

type mockProvider struct {
	snapshot *models.RateSnapshot
	err      error
}

func (m *mockProvider) FetchLatest(_ context.Context, _ string) (*models.RateSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot, nil
}

func newService(provider interfaces.RateProvider) (*Service, *mockRateStore) {
	store := newMockRateStore()
	svc := NewService(&mockStorageManager{rateStore: store}, provider, common.NewSilentLogger())
	return svc, store
}

func seedRates(store *mockRateStore, rates map[string]float64) {
	ts := time.Now().UTC()
	for code, r := range rates {
		store.rates[code] = &models.ExchangeRate{Code: code, Rate: r, Base: models.BaseCurrency, Timestamp: ts}
	}
}

// --- Refresh ---

func TestRefresh_UpsertsOneRowPerCurrency(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc, store := newService(&mockProvider{snapshot: &models.RateSnapshot{
		Base:      "USD",
		Timestamp: ts,
		Rates:     map[string]float64{"USD": 1, "EUR": 0.9},
	}})

	count, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	require.Len(t, store.upserts, 2)
	for _, up := range store.upserts {
		assert.Equal(t, "USD", up.Base)
		assert.Equal(t, ts, up.Timestamp)
	}
}

func TestRefresh_ContinuesPastFailedUpsert(t *testing.T) {
	svc, store := newService(&mockProvider{snapshot: &models.RateSnapshot{
		Base:      "USD",
		Timestamp: time.Now().UTC(),
		Rates:     map[string]float64{"USD": 1, "EUR": 0.9, "ETB": 57.5},
	}})
	store.failCodes = map[string]bool{"EUR": true}

	count, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	require.Len(t, store.upserts, 2)
	for _, up := range store.upserts {
		assert.NotEqual(t, "EUR", up.Code)
	}
}

func TestRefresh_AllUpsertsFailedReturnsError(t *testing.T) {
	svc, store := newService(&mockProvider{snapshot: &models.RateSnapshot{
		Base:      "USD",
		Timestamp: time.Now().UTC(),
		Rates:     map[string]float64{"USD": 1},
	}})
	store.failCodes = map[string]bool{"USD": true}

	count, err := svc.Refresh(context.Background())
	assert.Error(t, err)
	assert.Zero(t, count)
	assert.Empty(t, store.upserts)
}

func TestRefresh_FetchFailureWritesNothing(t *testing.T) {
	svc, store := newService(&mockProvider{err: fmt.Errorf("provider down")})
	seedRates(store, map[string]float64{"USD": 1, "ETB": 57})
	prior := len(store.rates)

	_, err := svc.Refresh(context.Background())
	require.Error(t, err)

	// Previous table stays authoritative
	assert.Empty(t, store.upserts)
	assert.Len(t, store.rates, prior)
}

func TestRefresh_SkipsNonPositiveRates(t *testing.T) {
	svc, store := newService(&mockProvider{snapshot: &models.RateSnapshot{
		Base:      "USD",
		Timestamp: time.Now().UTC(),
		Rates:     map[string]float64{"USD": 1, "BAD": 0, "WORSE": -3},
	}})

	count, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, store.upserts, 1)
}

// --- Convert ---

func TestConvert_SameCurrencySkipsLookup(t *testing.T) {
	svc, store := newService(nil)

	got, ok := svc.Convert(context.Background(), 123.456, "EUR", "EUR")
	require.True(t, ok)
	assert.Equal(t, 123.456, got, "identity conversion must return the amount unchanged")
	assert.Zero(t, store.gets, "same-currency conversion must not consult the rate table")
}

func TestConvert_TwoHopThroughBase(t *testing.T) {
	svc, store := newService(nil)
	seedRates(store, map[string]float64{"USD": 1, "EUR": 0.8, "ETB": 57.5})

	// 100 EUR -> 125 USD
	got, ok := svc.Convert(context.Background(), 100, "EUR", "USD")
	require.True(t, ok)
	assert.Equal(t, 125.0, got)

	// 100 EUR -> 7187.5 base-units -> rounded to whole ETB
	got, ok = svc.Convert(context.Background(), 100, "EUR", "ETB")
	require.True(t, ok)
	assert.Equal(t, math.Round(100/0.8*57.5), got)
}

func TestConvert_MissingRateReturnsNotOK(t *testing.T) {
	svc, store := newService(nil)
	seedRates(store, map[string]float64{"USD": 1})

	_, ok := svc.Convert(context.Background(), 50, "USD", "EUR")
	assert.False(t, ok)

	_, ok = svc.Convert(context.Background(), 50, "EUR", "USD")
	assert.False(t, ok)
}

func TestConvert_RoundTripWithinTolerance(t *testing.T) {
	svc, store := newService(nil)
	seedRates(store, map[string]float64{"USD": 1, "EUR": 0.91234, "GBP": 0.78456})

	amount := 250.37
	there, ok := svc.Convert(context.Background(), amount, "EUR", "GBP")
	require.True(t, ok)
	back, ok := svc.Convert(context.Background(), there, "GBP", "EUR")
	require.True(t, ok)

	assert.InDelta(t, amount, back, 0.02, "round trip must come back within rounding tolerance")
}

func TestConvert_RoundingAsymmetry(t *testing.T) {
	svc, store := newService(nil)
	seedRates(store, map[string]float64{"USD": 1, "EUR": 0.9, "ETB": 57.5})

	// Whole-unit currency rounds to an integer
	got, ok := svc.Convert(context.Background(), 10.33, "USD", "ETB")
	require.True(t, ok)
	assert.Equal(t, got, math.Trunc(got), "ETB amounts must be whole units")

	// Everything else rounds to 2 decimal places
	got, ok = svc.Convert(context.Background(), 1000, "ETB", "EUR")
	require.True(t, ok)
	assert.Equal(t, math.Round(got*100)/100, got, "non-ETB amounts must have at most 2 decimals")
}

// --- ConvertOrOriginal ---

func TestConvertOrOriginal_FallsBackToInput(t *testing.T) {
	svc, store := newService(nil)
	seedRates(store, map[string]float64{"USD": 1, "EUR": 0.8})

	// Rate available: behaves like Convert
	assert.Equal(t, 125.0, svc.ConvertOrOriginal(context.Background(), 100, "EUR", "USD"))

	// Rate missing: identity, never a hole in the sum
	assert.Equal(t, 42.5, svc.ConvertOrOriginal(context.Background(), 42.5, "XXX", "USD"))
}
