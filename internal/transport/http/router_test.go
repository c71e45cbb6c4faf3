package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	compliancehandler "escrowd/internal/compliance/handler"
	complianceservice "escrowd/internal/compliance/service"
	compliancememory "escrowd/internal/compliance/store/memory"
	escrowhandler "escrowd/internal/escrow/handler"
	escrowmetrics "escrowd/internal/escrow/metrics"
	escrowservice "escrowd/internal/escrow/service"
	escrowmemory "escrowd/internal/escrow/store/memory"
	"escrowd/internal/reporting"
	reportinghandler "escrowd/internal/reporting/handler"
	"escrowd/internal/session"
	"escrowd/internal/yield"
	yieldhandler "escrowd/internal/yield/handler"
	yieldservice "escrowd/internal/yield/service"
	"escrowd/pkg/domain"
)

const adminToken = "admin-secret"

var (
	buyer  = domain.MustParseAddress("0x1111111111111111111111111111111111111111")
	seller = domain.MustParseAddress("0x2222222222222222222222222222222222222222")
)

type RouterSuite struct {
	suite.Suite
	router   http.Handler
	sessions *session.JWTService
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	registry := complianceservice.New(compliancememory.New(), complianceservice.WithLogger(logger))
	ledger := escrowservice.New(escrowmemory.New(), registry,
		escrowservice.WithLogger(logger),
		escrowservice.WithMetrics(escrowmetrics.New(reg)),
	)
	yields := yieldservice.New(ledger, yield.MustCalculator(yield.DefaultAPYPercent))
	projector := reporting.New(ledger, registry, yields)

	s.sessions = session.NewJWTService("test-key", "escrowd-identity", "escrowd")
	escrows := escrowhandler.New(ledger, logger)
	compliance := compliancehandler.New(registry, logger)

	s.router = NewRouter(Config{
		Logger:     logger,
		Verifier:   s.sessions,
		AdminToken: adminToken,
		Gatherer:   reg,
		Health: map[string]HealthCheck{
			"store": func(context.Context) error { return nil },
		},
		Routes: []Routes{escrows, compliance, yieldhandler.New(yields, logger), reportinghandler.New(projector, logger)},
		Admin:  []AdminRoutes{escrows, compliance},
	})
}

func (s *RouterSuite) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) bearer(address domain.Address) map[string]string {
	token, err := s.sessions.Issue(address, time.Hour)
	s.Require().NoError(err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func (s *RouterSuite) admin() map[string]string {
	return map[string]string{"X-Admin-Token": adminToken}
}

func (s *RouterSuite) TestEscrowLifecycle() {
	for _, addr := range []domain.Address{buyer, seller} {
		rec := s.do(http.MethodPut, "/admin/compliance/"+addr.String(),
			`{"kyc_level":1,"risk_score":5,"is_blacklisted":false}`, s.admin())
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := s.do(http.MethodPost, "/escrows",
		`{"seller":"`+seller.String()+`","amount":"1000","yield_enabled":true}`, s.bearer(buyer))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var created escrowhandler.EscrowResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	s.NotEmpty(rec.Header().Get("X-Request-ID"))
	path := "/escrows/" + created.ID.String()

	rec = s.do(http.MethodGet, path+"/yield", "", s.bearer(seller))
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, path+"/release", "", s.bearer(seller))
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, path+"/release", "", s.bearer(buyer))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, path+"/refund", "", s.admin())
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, path+"/yield", "", s.bearer(buyer))
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodGet, "/admin"+path+"/history", "", s.admin())
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/addresses/"+buyer.String()+"/stats", "", s.bearer(buyer))
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/addresses/"+buyer.String()+"/escrows.csv", "", s.bearer(buyer))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "Released")

	rec = s.do(http.MethodGet, "/addresses/"+buyer.String()+"/escrows?role=buyer", "", s.bearer(buyer))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"escrow_ids":[`+created.ID.String()+`]`)
}

func (s *RouterSuite) TestAuthentication() {
	s.Run("caller routes require a session", func() {
		rec := s.do(http.MethodGet, "/escrows/1", "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("tokens from another key are rejected", func() {
		other := session.NewJWTService("other-key", "escrowd-identity", "escrowd")
		token, err := other.Issue(buyer, time.Hour)
		s.Require().NoError(err)
		rec := s.do(http.MethodGet, "/escrows/1", "", map[string]string{"Authorization": "Bearer " + token})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("admin routes require the admin token", func() {
		rec := s.do(http.MethodPost, "/admin/escrows/1/flag", `{"reason":"x"}`, s.bearer(buyer))
		s.Equal(http.StatusForbidden, rec.Code)
	})
}

func (s *RouterSuite) TestOperationalEndpoints() {
	rec := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestHealthReportsFailingDependency() {
	router := NewRouter(Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Health: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Contains(rec.Body.String(), "connection refused")
}
