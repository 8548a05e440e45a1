package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driverportal/internal/earnings"
	"driverportal/internal/earnings/service"
	"driverportal/internal/earnings/store"
	"driverportal/pkg/requestcontext"
	"driverportal/pkg/testutil"
)

func newFixture(t *testing.T, driverID string) (chi.Router, *service.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemoryRides(), store.NewInMemoryWithdrawals(), nil, nil, logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(requestcontext.WithDriverID(req.Context(), driverID)))
		})
	})
	New(svc, logger).Register(r)
	return r, svc
}

func TestSummaryEndpoint(t *testing.T) {
	router, svc := newFixture(t, "d1")
	_, err := svc.RecordRide(context.Background(), earnings.Ride{
		DriverID:      "d1",
		FarePence:     2500,
		DistanceMiles: 7,
		CompletedAt:   time.Now().Add(-24 * time.Hour),
	})
	require.NoError(t, err)

	rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/api/earnings", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	got := testutil.UnmarshalResponse[earnings.Summary](t, rr)
	assert.Equal(t, int64(2500), got.AvailablePence)
	assert.Equal(t, int64(2500), got.WeekPence)
	assert.Equal(t, 1, got.TotalRides)
}

func TestTransactionsEndpoint(t *testing.T) {
	router, svc := newFixture(t, "d1")
	ctx := context.Background()
	_, err := svc.RecordRide(ctx, earnings.Ride{DriverID: "d1", FarePence: 2500, CompletedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx, "d1", 1000)
	require.NoError(t, err)

	rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/api/earnings/transactions", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	got := testutil.UnmarshalResponse[[]earnings.Transaction](t, rr)
	require.Len(t, *got, 2)
	assert.Equal(t, earnings.TransactionWithdrawal, (*got)[0].Type)
	assert.Equal(t, int64(-1000), (*got)[0].AmountPence)
}

func TestWithdrawEndpoint(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		router, svc := newFixture(t, "d1")
		_, err := svc.RecordRide(context.Background(), earnings.Ride{DriverID: "d1", FarePence: 5000, CompletedAt: time.Now()})
		require.NoError(t, err)

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/withdrawals", map[string]int64{
			"amount_pence": 2000,
		}))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		got := testutil.UnmarshalResponse[earnings.Withdrawal](t, rr)
		assert.Equal(t, int64(2000), got.AmountPence)
	})

	t.Run("invalid amount", func(t *testing.T) {
		router, _ := newFixture(t, "d1")

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/withdrawals", map[string]int64{
			"amount_pence": 0,
		}))

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorDescription(t, rr, "Enter an amount greater than zero.")
	})

	t.Run("over balance", func(t *testing.T) {
		router, _ := newFixture(t, "d1")

		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/withdrawals", map[string]int64{
			"amount_pence": 100,
		}))

		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
		testutil.AssertErrorDescription(t, rr, "The amount exceeds your available balance.")
	})
}
