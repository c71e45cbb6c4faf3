package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	compliancemodels "escrowd/internal/compliance/models"
	complianceservice "escrowd/internal/compliance/service"
	compliancememory "escrowd/internal/compliance/store/memory"
	"escrowd/internal/escrow/metrics"
	"escrowd/internal/escrow/models"
	"escrowd/internal/escrow/store/memory"
	"escrowd/internal/risk"
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	audit "escrowd/pkg/platform/audit"
	"escrowd/pkg/platform/audit/publishers/compliance"
	auditmemory "escrowd/pkg/platform/audit/store/memory"
	"escrowd/pkg/requestcontext"
)

var (
	admin  = domain.Caller{Admin: true}
	buyer  = domain.MustParseAddress("0x1111111111111111111111111111111111111111")
	seller = domain.MustParseAddress("0x2222222222222222222222222222222222222222")
	other  = domain.MustParseAddress("0x3333333333333333333333333333333333333333")
)

type ServiceSuite struct {
	suite.Suite
	store      *memory.InMemoryStore
	registry   *complianceservice.Service
	auditStore *auditmemory.InMemoryStore
	metrics    *metrics.Metrics
	service    *Service
	ctx        context.Context
	now        time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = memory.New()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.registry = complianceservice.New(compliancememory.New(), complianceservice.WithLogger(logger))
	s.service = New(s.store, s.registry,
		WithLogger(logger),
		WithMetrics(s.metrics),
		WithAuditPublisher(compliance.New(s.auditStore)),
	)
	s.now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) setCompliance(address domain.Address, kyc, score int, blacklisted bool) {
	_, err := s.registry.SetComplianceStatus(s.ctx, admin, address, compliancemodels.Update{
		KYCLevel:      kyc,
		RiskScore:     score,
		IsBlacklisted: blacklisted,
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) createClean(amount domain.Amount) *models.Escrow {
	s.setCompliance(buyer, 1, 10, false)
	s.setCompliance(seller, 2, 10, false)
	e, err := s.service.CreateEscrow(s.ctx, domain.Caller{Address: buyer}, seller, amount, false)
	s.Require().NoError(err)
	return e
}

func (s *ServiceSuite) auditActions(id domain.EscrowID) []string {
	events, err := s.auditStore.ListBySubject(s.ctx, id.String())
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *ServiceSuite) TestCreateEscrow() {
	s.Run("clean parties create an active escrow", func() {
		e := s.createClean(domain.Tokens(100))
		s.Equal(models.StatusActive, e.Status)
		s.False(e.FraudFlagged)
		s.Equal(buyer, e.Buyer)
		s.Equal(s.now, e.CreatedAt)
		s.Equal([]string{string(audit.EventEscrowCreated)}, s.auditActions(e.ID))

		ids, err := s.service.ListForAddress(s.ctx, buyer, domain.RoleBuyer)
		s.Require().NoError(err)
		s.Contains(ids, e.ID)
	})

	s.Run("high risk seller creates a flagged escrow", func() {
		s.setCompliance(seller, 2, 85, false)
		e, err := s.service.CreateEscrow(s.ctx, domain.Caller{Address: buyer}, seller, domain.Tokens(500), false)
		s.Require().NoError(err)
		s.True(e.FraudFlagged)
		s.Contains(e.FlagReason, string(risk.ReasonHighRisk))
		s.Equal(models.DisplayFlagged, e.DisplayStatus())
	})

	s.Run("blacklisted buyer is denied and nothing is stored", func() {
		s.setCompliance(other, 1, 0, true)
		_, err := s.service.CreateEscrow(s.ctx, domain.Caller{Address: other}, seller, domain.Tokens(50), false)
		s.True(dErrors.HasCode(err, dErrors.CodeComplianceDenied))
		s.Contains(err.Error(), string(risk.ReasonBlacklisted))

		ids, err := s.service.ListForAddress(s.ctx, other, domain.RoleBuyer)
		s.Require().NoError(err)
		s.Empty(ids)
	})

	s.Run("invalid input is rejected", func() {
		_, err := s.service.CreateEscrow(s.ctx, domain.Caller{Address: buyer}, buyer, domain.Tokens(1), false)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.CreateEscrow(s.ctx, domain.Caller{Address: buyer}, seller, 0, false)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.CreateEscrow(s.ctx, domain.Caller{}, seller, domain.Tokens(1), false)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestUnseenPartiesScreenAsNoKYC() {
	e, err := s.service.CreateEscrow(s.ctx, domain.Caller{Address: buyer}, seller, domain.Tokens(100), false)
	s.Require().NoError(err)
	s.True(e.FraudFlagged)
	s.Contains(e.FlagReason, string(risk.ReasonNoKYC))

	_, err = s.service.CreateEscrow(s.ctx, domain.Caller{Address: buyer}, seller, domain.Tokens(1_001), false)
	s.True(dErrors.HasCode(err, dErrors.CodeComplianceDenied))
	s.Contains(err.Error(), string(risk.ReasonKYCCeiling))
}

func (s *ServiceSuite) TestReleaseEscrow() {
	s.Run("buyer releases an allowed escrow", func() {
		e := s.createClean(domain.Tokens(100))
		released, err := s.service.ReleaseEscrow(s.ctx, domain.Caller{Address: buyer}, e.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusReleased, released.Status)
		s.Require().NotNil(released.ResolvedAt)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Transitions.WithLabelValues(models.ActionReleased)))
	})

	s.Run("seller cannot release", func() {
		e := s.createClean(domain.Tokens(100))
		_, err := s.service.ReleaseEscrow(s.ctx, domain.Caller{Address: seller}, e.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("admin can release", func() {
		e := s.createClean(domain.Tokens(100))
		_, err := s.service.ReleaseEscrow(s.ctx, admin, e.ID)
		s.Require().NoError(err)
	})

	s.Run("unknown escrow is not found", func() {
		_, err := s.service.ReleaseEscrow(s.ctx, admin, 9_999)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestFlaggedEscrowBlocksReleaseButAllowsRefund() {
	s.setCompliance(buyer, 1, 10, false)
	s.setCompliance(seller, 2, 85, false)
	e, err := s.service.CreateEscrow(s.ctx, domain.Caller{Address: buyer}, seller, domain.Tokens(500), false)
	s.Require().NoError(err)
	s.Require().True(e.FraudFlagged)

	_, err = s.service.ReleaseEscrow(s.ctx, domain.Caller{Address: buyer}, e.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeFraudFlagged))

	refunded, err := s.service.RefundEscrow(s.ctx, domain.Caller{Address: seller}, e.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRefunded, refunded.Status)
}

func (s *ServiceSuite) TestReleaseTimeDenyFlagsTheEscrow() {
	e := s.createClean(domain.Tokens(100))
	s.setCompliance(seller, 2, 10, true)

	_, err := s.service.ReleaseEscrow(s.ctx, domain.Caller{Address: buyer}, e.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeComplianceDenied))
	s.Contains(err.Error(), "seller: "+string(risk.ReasonBlacklisted))

	stored, err := s.service.GetEscrow(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, stored.Status)
	s.True(stored.FraudFlagged)

	history, err := s.service.History(s.ctx, admin, e.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(models.ActionReleaseDenied, history[1].Action)
	s.Equal([]string{string(audit.EventEscrowCreated), string(audit.EventReleaseDenied)}, s.auditActions(e.ID))

	_, err = s.service.ReleaseEscrow(s.ctx, domain.Caller{Address: buyer}, e.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeFraudFlagged))
}

func (s *ServiceSuite) TestReleaseTimeFlagVerdictDoesNotBlock() {
	e := s.createClean(domain.Tokens(100))
	s.setCompliance(seller, 2, 90, false)

	released, err := s.service.ReleaseEscrow(s.ctx, domain.Caller{Address: buyer}, e.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusReleased, released.Status)
}

func (s *ServiceSuite) TestRefundEscrow() {
	s.Run("buyer cannot refund", func() {
		e := s.createClean(domain.Tokens(100))
		_, err := s.service.RefundEscrow(s.ctx, domain.Caller{Address: buyer}, e.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("second refund fails and changes nothing", func() {
		e := s.createClean(domain.Tokens(100))
		first, err := s.service.RefundEscrow(s.ctx, domain.Caller{Address: seller}, e.ID)
		s.Require().NoError(err)

		_, err = s.service.RefundEscrow(s.ctx, domain.Caller{Address: seller}, e.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

		stored, err := s.service.GetEscrow(s.ctx, e.ID)
		s.Require().NoError(err)
		s.Equal(first, stored)

		history, err := s.service.History(s.ctx, admin, e.ID)
		s.Require().NoError(err)
		s.Len(history, 2)
	})

	s.Run("terminal escrow cannot be released", func() {
		e := s.createClean(domain.Tokens(100))
		_, err := s.service.RefundEscrow(s.ctx, admin, e.ID)
		s.Require().NoError(err)
		_, err = s.service.ReleaseEscrow(s.ctx, admin, e.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestConcurrentReleaseAndRefundResolveOnce() {
	for i := 0; i < 20; i++ {
		e := s.createClean(domain.Tokens(100))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = s.service.ReleaseEscrow(s.ctx, domain.Caller{Address: buyer}, e.ID)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = s.service.RefundEscrow(s.ctx, domain.Caller{Address: seller}, e.ID)
		}()
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), err.Error())
		}
		s.Equal(1, succeeded)

		history, err := s.service.History(s.ctx, admin, e.ID)
		s.Require().NoError(err)
		s.Len(history, 2)
	}
}

func (s *ServiceSuite) TestFlagAndClearFlag() {
	e := s.createClean(domain.Tokens(100))

	s.Run("non-admin cannot flag", func() {
		_, err := s.service.FlagEscrow(s.ctx, domain.Caller{Address: buyer}, e.ID, "suspicious")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("flag is idempotent", func() {
		flagged, err := s.service.FlagEscrow(s.ctx, admin, e.ID, "suspicious")
		s.Require().NoError(err)
		s.True(flagged.FraudFlagged)

		again, err := s.service.FlagEscrow(s.ctx, admin, e.ID, "other reason")
		s.Require().NoError(err)
		s.Equal("suspicious", again.FlagReason)

		history, err := s.service.History(s.ctx, admin, e.ID)
		s.Require().NoError(err)
		s.Len(history, 2)
	})

	s.Run("clear fails while the verdict is not allow", func() {
		s.setCompliance(seller, 2, 95, false)
		_, err := s.service.ClearFlag(s.ctx, admin, e.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeComplianceDenied))

		stored, err := s.service.GetEscrow(s.ctx, e.ID)
		s.Require().NoError(err)
		s.True(stored.FraudFlagged)
	})

	s.Run("clear succeeds once both parties screen clean", func() {
		s.setCompliance(seller, 2, 20, false)
		cleared, err := s.service.ClearFlag(s.ctx, admin, e.ID)
		s.Require().NoError(err)
		s.False(cleared.FraudFlagged)
		s.Empty(cleared.FlagReason)

		_, err = s.service.ReleaseEscrow(s.ctx, domain.Caller{Address: buyer}, e.ID)
		s.Require().NoError(err)
	})

	s.Run("flag on a terminal escrow is invalid", func() {
		_, err := s.service.FlagEscrow(s.ctx, admin, e.ID, "late")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestHistoryRequiresAdmin() {
	e := s.createClean(domain.Tokens(1))
	_, err := s.service.History(s.ctx, domain.Caller{Address: buyer}, e.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
