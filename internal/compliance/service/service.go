package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"escrowd/internal/compliance/metrics"
	"escrowd/internal/compliance/models"
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	audit "escrowd/pkg/platform/audit"
	"escrowd/pkg/platform/keylock"
	"escrowd/pkg/platform/sentinel"
	"escrowd/pkg/requestcontext"
)

// Provider is the storage capability behind the registry. Get returns
// sentinel.ErrNotFound for addresses that were never written.
type Provider interface {
	Get(ctx context.Context, address domain.Address) (*models.Record, error)
	Save(ctx context.Context, record *models.Record, entry models.HistoryEntry) error
	History(ctx context.Context, address domain.Address) ([]models.HistoryEntry, error)
}

// Refresher is implemented by caching providers that must see a write once
// it has committed.
type Refresher interface {
	Refresh(ctx context.Context, record *models.Record) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// Service is the compliance registry: per-address KYC level, AML risk score
// and blacklist flag.
type Service struct {
	provider       Provider
	locker         keylock.Locker
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithLocker replaces the in-process per-address lock, e.g. with a
// database advisory lock.
func WithLocker(locker keylock.Locker) Option {
	return func(s *Service) {
		if locker != nil {
			s.locker = locker
		}
	}
}

func New(provider Provider, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		locker:   keylock.NewSharded(0),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetComplianceInfo returns the stored record, or defaults for an unseen
// address. Defaults are not persisted.
func (s *Service) GetComplianceInfo(ctx context.Context, address domain.Address) (*models.Record, error) {
	if address.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "address is required")
	}
	start := time.Now()
	defer func() { s.metrics.ObserveLookupLatency(time.Since(start)) }()

	rec, err := s.provider.Get(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			def := models.DefaultRecord(address)
			return &def, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load compliance record")
	}
	return rec, nil
}

// GetAMLRiskScore projects the risk score of an address.
func (s *Service) GetAMLRiskScore(ctx context.Context, address domain.Address) (int, error) {
	rec, err := s.GetComplianceInfo(ctx, address)
	if err != nil {
		return 0, err
	}
	return rec.RiskScore, nil
}

// SetComplianceStatus applies an administrative write. KYC level may only
// increase; a downgrade leaves the record unchanged.
func (s *Service) SetComplianceStatus(ctx context.Context, caller domain.Caller, address domain.Address, update models.Update) (*models.Record, error) {
	if !caller.Admin {
		return nil, dErrors.New(dErrors.CodeForbidden, "administrative capability required")
	}
	if address.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "address is required")
	}
	if err := update.Validate(); err != nil {
		s.metrics.IncStatusUpdate("invalid")
		return nil, err
	}

	var result models.Record
	err := s.locker.WithLock(ctx, lockKey(address), func(ctx context.Context) error {
		current, err := s.GetComplianceInfo(ctx, address)
		if err != nil {
			return err
		}
		if err := current.CanApply(update); err != nil {
			return err
		}

		next := *current
		next.Apply(update, requestcontext.Now(ctx).UTC())
		entry := models.NewHistoryEntry(next, models.ActionStatusSet, caller.ActorID())
		if err := s.provider.Save(ctx, &next, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save compliance record")
		}
		if err := s.emitAudit(ctx, caller, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeDowngradeNotAllowed) {
			s.metrics.IncStatusUpdate("downgrade_rejected")
			s.logger.WarnContext(ctx, "kyc downgrade rejected",
				"address", address,
				"requested_kyc_level", update.KYCLevel,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil, err
	}

	if ref, ok := s.provider.(Refresher); ok {
		if err := ref.Refresh(ctx, &result); err != nil {
			s.logger.WarnContext(ctx, "compliance cache refresh failed",
				"address", address,
				"error", err,
			)
		}
	}

	s.metrics.IncStatusUpdate("applied")
	s.logger.InfoContext(ctx, string(audit.EventComplianceUpdated),
		"address", address,
		"kyc_level", result.KYCLevel,
		"risk_score", result.RiskScore,
		"is_blacklisted", result.IsBlacklisted,
		"actor", caller.ActorID(),
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
	return &result, nil
}

// History returns the append-only compliance history of an address,
// oldest first.
func (s *Service) History(ctx context.Context, caller domain.Caller, address domain.Address) ([]models.HistoryEntry, error) {
	if !caller.Admin {
		return nil, dErrors.New(dErrors.CodeForbidden, "administrative capability required")
	}
	if address.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "address is required")
	}
	entries, err := s.provider.History(ctx, address)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load compliance history")
	}
	return entries, nil
}

func (s *Service) emitAudit(ctx context.Context, caller domain.Caller, rec models.Record) error {
	if s.auditPublisher == nil {
		return nil
	}
	decision := "clear"
	if rec.IsBlacklisted {
		decision = "blacklisted"
	}
	err := s.auditPublisher.Emit(ctx, audit.ComplianceEvent{
		Timestamp: rec.UpdatedAt,
		Subject:   rec.Address.String(),
		Action:    audit.EventComplianceUpdated,
		Decision:  decision,
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   caller.ActorID(),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record compliance audit")
	}
	return nil
}

func lockKey(address domain.Address) string {
	return "compliance:" + address.String()
}
