package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"escrowd/internal/escrow/handler/mocks"
	"escrowd/internal/escrow/models"
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	"escrowd/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

var (
	buyer   = domain.MustParseAddress("0x1111111111111111111111111111111111111111")
	seller  = domain.MustParseAddress("0x2222222222222222222222222222222222222222")
	created = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
)

type EscrowHandlerSuite struct {
	suite.Suite
}

func TestEscrowHandlerSuite(t *testing.T) {
	suite.Run(t, new(EscrowHandlerSuite))
}

func (s *EscrowHandlerSuite) newRouter(caller domain.Caller) (http.Handler, *mocks.MockService) {
	ctrl := gomock.NewController(s.T())
	svc := mocks.NewMockService(ctrl)
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(requestcontext.WithCaller(req.Context(), caller)))
		})
	})
	h.Register(r)
	h.RegisterAdmin(r)
	return r, svc
}

func sampleEscrow() *models.Escrow {
	return &models.Escrow{
		ID:           7,
		Buyer:        buyer,
		Seller:       seller,
		Amount:       domain.Tokens(100),
		Status:       models.StatusActive,
		YieldEnabled: true,
		StakedAmount: domain.Tokens(100),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, reader))
	return rec
}

func (s *EscrowHandlerSuite) TestCreate() {
	caller := domain.Caller{Address: buyer}

	s.Run("valid request creates the escrow", func() {
		router, svc := s.newRouter(caller)
		svc.EXPECT().CreateEscrow(gomock.Any(), caller, seller, domain.Amount(100_500_000), true).Return(sampleEscrow(), nil)

		rec := serve(router, http.MethodPost, "/escrows",
			`{"seller":"0x2222222222222222222222222222222222222222","amount":"100.5","yield_enabled":true}`)
		s.Equal(http.StatusCreated, rec.Code)

		var resp EscrowResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(domain.EscrowID(7), resp.ID)
		s.Equal(models.StatusActive, resp.Status)
		s.Equal(models.DisplayActive, resp.DisplayStatus)
		s.Equal("100.000000", resp.Amount)
	})

	s.Run("malformed amount never reaches the service", func() {
		router, _ := s.newRouter(caller)
		rec := serve(router, http.MethodPost, "/escrows",
			`{"seller":"0x2222222222222222222222222222222222222222","amount":"1.0000001"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown fields are rejected", func() {
		router, _ := s.newRouter(caller)
		rec := serve(router, http.MethodPost, "/escrows", `{"buyer":"x"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("denied creation maps to unprocessable entity", func() {
		router, svc := s.newRouter(caller)
		svc.EXPECT().CreateEscrow(gomock.Any(), caller, seller, domain.Tokens(5), false).
			Return(nil, dErrors.New(dErrors.CodeComplianceDenied, "buyer: address is blacklisted"))

		rec := serve(router, http.MethodPost, "/escrows",
			`{"seller":"0x2222222222222222222222222222222222222222","amount":"5"}`)
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
		s.Contains(rec.Body.String(), "buyer: address is blacklisted")
	})
}

func (s *EscrowHandlerSuite) TestTransitions() {
	caller := domain.Caller{Address: buyer}

	s.Run("release returns the updated escrow", func() {
		router, svc := s.newRouter(caller)
		released := sampleEscrow()
		released.ApplyRelease(created.Add(time.Hour))
		svc.EXPECT().ReleaseEscrow(gomock.Any(), caller, domain.EscrowID(7)).Return(released, nil)

		rec := serve(router, http.MethodPost, "/escrows/7/release", "")
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"status":"released"`)
	})

	s.Run("flagged release is a conflict", func() {
		router, svc := s.newRouter(caller)
		svc.EXPECT().ReleaseEscrow(gomock.Any(), caller, domain.EscrowID(7)).
			Return(nil, dErrors.New(dErrors.CodeFraudFlagged, "escrow is flagged for review and cannot be released"))

		rec := serve(router, http.MethodPost, "/escrows/7/release", "")
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("refund of a terminal escrow is a conflict", func() {
		router, svc := s.newRouter(caller)
		svc.EXPECT().RefundEscrow(gomock.Any(), caller, domain.EscrowID(7)).
			Return(nil, dErrors.New(dErrors.CodeInvalidState, "escrow is refunded, not active"))

		rec := serve(router, http.MethodPost, "/escrows/7/refund", "")
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("non-numeric id is rejected", func() {
		router, _ := s.newRouter(caller)
		rec := serve(router, http.MethodPost, "/escrows/abc/release", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *EscrowHandlerSuite) TestGetAndList() {
	s.Run("missing escrow is not found", func() {
		router, svc := s.newRouter(domain.Caller{Address: buyer})
		svc.EXPECT().GetEscrow(gomock.Any(), domain.EscrowID(42)).Return(nil, dErrors.New(dErrors.CodeNotFound, "escrow not found"))

		rec := serve(router, http.MethodGet, "/escrows/42", "")
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("list requires a role", func() {
		router, _ := s.newRouter(domain.Caller{Address: buyer})
		rec := serve(router, http.MethodGet, "/addresses/"+buyer.String()+"/escrows", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("list returns ids in order", func() {
		router, svc := s.newRouter(domain.Caller{Address: buyer})
		svc.EXPECT().ListForAddress(gomock.Any(), seller, domain.RoleSeller).Return([]domain.EscrowID{3, 9}, nil)

		rec := serve(router, http.MethodGet, "/addresses/"+seller.String()+"/escrows?role=seller", "")
		s.Equal(http.StatusOK, rec.Code)

		var resp AddressEscrowsResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal([]domain.EscrowID{3, 9}, resp.EscrowIDs)
		s.Equal(domain.RoleSeller, resp.Role)
	})

	s.Run("empty list renders as an array", func() {
		router, svc := s.newRouter(domain.Caller{Address: buyer})
		svc.EXPECT().ListForAddress(gomock.Any(), buyer, domain.RoleBuyer).Return(nil, nil)

		rec := serve(router, http.MethodGet, "/addresses/"+buyer.String()+"/escrows?role=buyer", "")
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"escrow_ids":[]`)
	})
}

func (s *EscrowHandlerSuite) TestAdmin() {
	admin := domain.Caller{Admin: true}

	s.Run("flag passes the trimmed reason", func() {
		router, svc := s.newRouter(admin)
		flagged := sampleEscrow()
		flagged.ApplyFlag("chargeback report", created)
		svc.EXPECT().FlagEscrow(gomock.Any(), admin, domain.EscrowID(7), "chargeback report").Return(flagged, nil)

		rec := serve(router, http.MethodPost, "/admin/escrows/7/flag", `{"reason":"  chargeback report "}`)
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"display_status":"Flagged"`)
	})

	s.Run("clear flag denied by risk is unprocessable", func() {
		router, svc := s.newRouter(admin)
		svc.EXPECT().ClearFlag(gomock.Any(), admin, domain.EscrowID(7)).
			Return(nil, dErrors.New(dErrors.CodeComplianceDenied, "flag cannot be cleared"))

		rec := serve(router, http.MethodPost, "/admin/escrows/7/clear-flag", "")
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
	})

	s.Run("history returns entries", func() {
		router, svc := s.newRouter(admin)
		svc.EXPECT().History(gomock.Any(), admin, domain.EscrowID(7)).Return([]models.HistoryEntry{
			{EscrowID: 7, At: created, Action: models.ActionCreated, Actor: buyer.String(), Status: models.StatusActive},
		}, nil)

		rec := serve(router, http.MethodGet, "/admin/escrows/7/history", "")
		s.Equal(http.StatusOK, rec.Code)

		var resp HistoryResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Require().Len(resp.Entries, 1)
		s.Equal(models.ActionCreated, resp.Entries[0].Action)
	})
}
