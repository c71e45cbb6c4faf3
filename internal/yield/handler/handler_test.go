package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"escrowd/internal/yield"
	"escrowd/internal/yield/handler/mocks"
	"escrowd/internal/yield/service"
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

func newRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	svc := mocks.NewMockService(gomock.NewController(t))
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r, svc
}

func TestHandleGetYield(t *testing.T) {
	t.Run("renders amounts with six decimals", func(t *testing.T) {
		router, svc := newRouter(t)
		accrued := domain.Amount(5_917_808)
		svc.EXPECT().ComputeYield(gomock.Any(), domain.EscrowID(5)).Return(&service.Report{
			EscrowID:     5,
			StakedAmount: domain.Tokens(1000),
			APY:          decimal.RequireFromString("7.2"),
			AsOf:         time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
			DaysActive:   30,
			Accrued:      accrued,
			LiveAccrued:  accrued,
			Projected:    domain.Tokens(72),
			Shares:       yield.Split(accrued),
		}, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/escrows/5/yield", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp YieldResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "5.917808", resp.AccruedYield)
		assert.Equal(t, "4.734246", resp.BuyerShare)
		assert.Equal(t, "0.887671", resp.SellerShare)
		assert.Equal(t, "0.295891", resp.PlatformShare)
		assert.Equal(t, "7.2", resp.APYPercent)
	})

	t.Run("not eligible maps to unprocessable entity", func(t *testing.T) {
		router, svc := newRouter(t)
		svc.EXPECT().ComputeYield(gomock.Any(), domain.EscrowID(6)).
			Return(nil, dErrors.New(dErrors.CodeNotEligible, "yield is not enabled for this escrow"))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/escrows/6/yield", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}
