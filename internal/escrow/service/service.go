package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	compliancemodels "escrowd/internal/compliance/models"
	"escrowd/internal/escrow/metrics"
	"escrowd/internal/escrow/models"
	"escrowd/internal/risk"
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	audit "escrowd/pkg/platform/audit"
	"escrowd/pkg/platform/keylock"
	"escrowd/pkg/platform/sentinel"
	txcontext "escrowd/pkg/platform/tx"
	"escrowd/pkg/requestcontext"
)

// Store persists escrows and their history. FindByID and Update return
// sentinel.ErrNotFound for unknown ids. Implementations must return copies.
type Store interface {
	Create(ctx context.Context, escrow *models.Escrow, entry models.HistoryEntry) (domain.EscrowID, error)
	FindByID(ctx context.Context, id domain.EscrowID) (*models.Escrow, error)
	Update(ctx context.Context, escrow *models.Escrow, entry models.HistoryEntry) error
	ListIDsForAddress(ctx context.Context, address domain.Address, role domain.Role) ([]domain.EscrowID, error)
	ListForAddress(ctx context.Context, address domain.Address, role domain.Role) ([]*models.Escrow, error)
	History(ctx context.Context, id domain.EscrowID) ([]models.HistoryEntry, error)
}

// ComplianceReader is the registry capability the ledger screens against.
type ComplianceReader interface {
	GetComplianceInfo(ctx context.Context, address domain.Address) (*compliancemodels.Record, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// Service is the escrow ledger. Every mutation runs under a per-escrow lock
// and re-reads the record inside it.
type Service struct {
	store          Store
	compliance     ComplianceReader
	locker         keylock.Locker
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
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

func WithLocker(locker keylock.Locker) Option {
	return func(s *Service) {
		if locker != nil {
			s.locker = locker
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

func New(store Store, compliance ComplianceReader, opts ...Option) *Service {
	s := &Service{
		store:      store,
		compliance: compliance,
		locker:     keylock.NewSharded(0),
		logger:     slog.Default(),
		tracer:     otel.Tracer("escrowd/escrow"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEscrow opens an escrow with the caller as buyer. A Deny verdict
// rejects creation; a Flag verdict creates the escrow already flagged.
func (s *Service) CreateEscrow(ctx context.Context, caller domain.Caller, seller domain.Address, amount domain.Amount, yieldEnabled bool) (_ *models.Escrow, err error) {
	ctx, span := s.tracer.Start(ctx, "escrow.Create", trace.WithAttributes(
		attribute.String("escrow.buyer", caller.Address.String()),
		attribute.String("escrow.seller", seller.String()),
		attribute.Int64("escrow.amount", int64(amount)),
		attribute.Bool("escrow.yield_enabled", yieldEnabled),
	))
	defer func() { s.finish(ctx, span, "create", err) }()

	if caller.Address.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "an authenticated address is required to create an escrow")
	}
	now := requestcontext.Now(ctx).UTC()
	e, err := models.NewEscrow(caller.Address, seller, amount, yieldEnabled, now)
	if err != nil {
		return nil, err
	}

	var created *models.Escrow
	err = s.locker.WithLock(ctx, "escrow-create:"+caller.Address.String(), func(ctx context.Context) error {
		decision, err := s.screen(ctx, "create", e.Buyer, e.Seller, e.Amount)
		if err != nil {
			return err
		}
		if decision.Verdict == risk.Deny {
			return dErrors.New(dErrors.CodeComplianceDenied, decision.Message())
		}
		if decision.Verdict == risk.Flag {
			e.ApplyFlag(decision.Message(), now)
		}

		id, err := s.store.Create(ctx, e, models.NewHistoryEntry(e, models.ActionCreated, caller.ActorID()))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create escrow")
		}
		e.ID = id
		if err := s.emitAudit(ctx, caller, e, audit.EventEscrowCreated, decision); err != nil {
			return err
		}
		created = e.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("escrow.id", created.ID.String()))
	s.metrics.IncTransition(models.ActionCreated)
	if created.FraudFlagged {
		s.metrics.IncTransition(models.ActionFlagged)
	}
	s.logAudit(ctx, audit.EventEscrowCreated, caller, created)
	return created, nil
}

// ReleaseEscrow pays the seller. Only the buyer or an admin may release.
// A Deny verdict at release time flags the escrow; the flag is kept even
// though the release fails.
func (s *Service) ReleaseEscrow(ctx context.Context, caller domain.Caller, id domain.EscrowID) (_ *models.Escrow, err error) {
	ctx, span := s.tracer.Start(ctx, "escrow.Release", trace.WithAttributes(
		attribute.String("escrow.id", id.String()),
	))
	defer func() { s.finish(ctx, span, "release", err) }()

	var (
		released *models.Escrow
		denial   *risk.Decision
	)
	err = s.locker.WithLock(ctx, lockKey(id), func(ctx context.Context) error {
		e, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		if !caller.Admin && !caller.Is(e.Buyer) {
			return dErrors.New(dErrors.CodeForbidden, "only the buyer or an administrator can release this escrow")
		}
		if err := e.CanRelease(); err != nil {
			return err
		}

		decision, err := s.screen(ctx, "release", e.Buyer, e.Seller, e.Amount)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx).UTC()
		if decision.Verdict == risk.Deny {
			e.ApplyFlag(decision.Message(), now)
			if err := s.store.Update(ctx, e, models.NewHistoryEntry(e, models.ActionReleaseDenied, caller.ActorID())); err != nil {
				return s.storeErr(err, "failed to flag escrow")
			}
			if err := s.emitAudit(ctx, caller, e, audit.EventReleaseDenied, decision); err != nil {
				return err
			}
			denial = &decision
			return nil
		}

		e.ApplyRelease(now)
		if err := s.store.Update(ctx, e, models.NewHistoryEntry(e, models.ActionReleased, caller.ActorID())); err != nil {
			return s.storeErr(err, "failed to release escrow")
		}
		if err := s.emitAudit(ctx, caller, e, audit.EventEscrowReleased, decision); err != nil {
			return err
		}
		released = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	if denial != nil {
		s.metrics.IncTransition(models.ActionFlagged)
		s.logger.WarnContext(ctx, string(audit.EventReleaseDenied),
			"escrow_id", id,
			"reason", denial.Message(),
			"actor", caller.ActorID(),
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
		return nil, dErrors.New(dErrors.CodeComplianceDenied, denial.Message())
	}

	s.metrics.IncTransition(models.ActionReleased)
	s.logAudit(ctx, audit.EventEscrowReleased, caller, released)
	return released, nil
}

// RefundEscrow returns funds to the buyer. Only the seller or an admin may
// refund; a fraud flag does not block it.
func (s *Service) RefundEscrow(ctx context.Context, caller domain.Caller, id domain.EscrowID) (_ *models.Escrow, err error) {
	ctx, span := s.tracer.Start(ctx, "escrow.Refund", trace.WithAttributes(
		attribute.String("escrow.id", id.String()),
	))
	defer func() { s.finish(ctx, span, "refund", err) }()

	refunded, err := s.mutate(ctx, id, func(ctx context.Context, e *models.Escrow) error {
		if !caller.Admin && !caller.Is(e.Seller) {
			return dErrors.New(dErrors.CodeForbidden, "only the seller or an administrator can refund this escrow")
		}
		if err := e.CanRefund(); err != nil {
			return err
		}
		e.ApplyRefund(requestcontext.Now(ctx).UTC())
		return s.persist(ctx, caller, e, models.ActionRefunded, audit.EventEscrowRefunded, risk.Decision{})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(models.ActionRefunded)
	s.logAudit(ctx, audit.EventEscrowRefunded, caller, refunded)
	return refunded, nil
}

// FlagEscrow marks an Active escrow for review. Flagging a flagged escrow
// is a no-op that keeps the original reason.
func (s *Service) FlagEscrow(ctx context.Context, caller domain.Caller, id domain.EscrowID, reason string) (_ *models.Escrow, err error) {
	ctx, span := s.tracer.Start(ctx, "escrow.Flag", trace.WithAttributes(
		attribute.String("escrow.id", id.String()),
	))
	defer func() { s.finish(ctx, span, "flag", err) }()

	if !caller.Admin {
		return nil, dErrors.New(dErrors.CodeForbidden, "administrative capability required")
	}
	if reason == "" {
		reason = "flagged for review by an administrator"
	}

	changed := false
	flagged, err := s.mutate(ctx, id, func(ctx context.Context, e *models.Escrow) error {
		if err := e.CanChangeFlag(); err != nil {
			return err
		}
		if !e.ApplyFlag(reason, requestcontext.Now(ctx).UTC()) {
			return nil
		}
		changed = true
		decision := risk.Decision{Verdict: risk.Flag, Reason: risk.Reason(reason)}
		return s.persist(ctx, caller, e, models.ActionFlagged, audit.EventEscrowFlagged, decision)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.metrics.IncTransition(models.ActionFlagged)
		s.logAudit(ctx, audit.EventEscrowFlagged, caller, flagged)
	}
	return flagged, nil
}

// ClearFlag lifts a fraud flag once both parties screen Allow again.
func (s *Service) ClearFlag(ctx context.Context, caller domain.Caller, id domain.EscrowID) (_ *models.Escrow, err error) {
	ctx, span := s.tracer.Start(ctx, "escrow.ClearFlag", trace.WithAttributes(
		attribute.String("escrow.id", id.String()),
	))
	defer func() { s.finish(ctx, span, "clear_flag", err) }()

	if !caller.Admin {
		return nil, dErrors.New(dErrors.CodeForbidden, "administrative capability required")
	}

	changed := false
	cleared, err := s.mutate(ctx, id, func(ctx context.Context, e *models.Escrow) error {
		if err := e.CanChangeFlag(); err != nil {
			return err
		}
		if !e.FraudFlagged {
			return nil
		}
		decision, err := s.screen(ctx, "clear_flag", e.Buyer, e.Seller, e.Amount)
		if err != nil {
			return err
		}
		if decision.Verdict != risk.Allow {
			return dErrors.New(dErrors.CodeComplianceDenied, "flag cannot be cleared: "+decision.Message())
		}
		e.ApplyClearFlag(requestcontext.Now(ctx).UTC())
		changed = true
		return s.persist(ctx, caller, e, models.ActionFlagCleared, audit.EventEscrowFlagCleared, decision)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.metrics.IncTransition(models.ActionFlagCleared)
		s.logAudit(ctx, audit.EventEscrowFlagCleared, caller, cleared)
	}
	return cleared, nil
}

// GetEscrow returns a snapshot of one escrow.
func (s *Service) GetEscrow(ctx context.Context, id domain.EscrowID) (*models.Escrow, error) {
	return s.find(ctx, id)
}

// ListForAddress returns the ids of escrows where address plays role, in
// creation order.
func (s *Service) ListForAddress(ctx context.Context, address domain.Address, role domain.Role) ([]domain.EscrowID, error) {
	if address.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "address is required")
	}
	ids, err := s.store.ListIDsForAddress(ctx, address, role)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list escrows")
	}
	return ids, nil
}

// ListEscrowsForAddress is ListForAddress with full records.
func (s *Service) ListEscrowsForAddress(ctx context.Context, address domain.Address, role domain.Role) ([]*models.Escrow, error) {
	if address.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "address is required")
	}
	escrows, err := s.store.ListForAddress(ctx, address, role)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list escrows")
	}
	return escrows, nil
}

// History returns the mutation history of an escrow, oldest first.
func (s *Service) History(ctx context.Context, caller domain.Caller, id domain.EscrowID) ([]models.HistoryEntry, error) {
	if !caller.Admin {
		return nil, dErrors.New(dErrors.CodeForbidden, "administrative capability required")
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.store.History(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load escrow history")
	}
	return entries, nil
}

// mutate runs fn on a fresh copy of the escrow under its lock.
func (s *Service) mutate(ctx context.Context, id domain.EscrowID, fn func(ctx context.Context, e *models.Escrow) error) (*models.Escrow, error) {
	var result *models.Escrow
	err := s.locker.WithLock(ctx, lockKey(id), func(ctx context.Context) error {
		e, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, e); err != nil {
			return err
		}
		result = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) persist(ctx context.Context, caller domain.Caller, e *models.Escrow, action string, event audit.AuditEvent, decision risk.Decision) error {
	if err := s.store.Update(ctx, e, models.NewHistoryEntry(e, action, caller.ActorID())); err != nil {
		return s.storeErr(err, "failed to update escrow")
	}
	return s.emitAudit(ctx, caller, e, event, decision)
}

func (s *Service) find(ctx context.Context, id domain.EscrowID) (*models.Escrow, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeNotFound, "escrow not found")
	}
	e, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "escrow not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load escrow")
	}
	return e, nil
}

// screen loads both parties' records and returns the composite verdict.
func (s *Service) screen(ctx context.Context, operation string, buyer, seller domain.Address, amount domain.Amount) (risk.Decision, error) {
	buyerRec, sellerRec, err := s.loadParties(ctx, buyer, seller)
	if err != nil {
		return risk.Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load compliance records")
	}

	decision := risk.EvaluateParties(*buyerRec, *sellerRec, amount)
	s.metrics.IncVerdict(operation, decision.Verdict.String())
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("risk.verdict", decision.Verdict.String()),
		attribute.String("risk.reason", string(decision.Reason)),
	)
	s.logger.DebugContext(ctx, string(audit.EventComplianceChecked),
		"operation", operation,
		"verdict", decision.Verdict.String(),
		"reason", decision.Message(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return decision, nil
}

// loadParties fetches both records concurrently, except inside a database
// transaction: the transaction owns one connection, so its reads run in turn.
func (s *Service) loadParties(ctx context.Context, buyer, seller domain.Address) (*compliancemodels.Record, *compliancemodels.Record, error) {
	if _, inTx := txcontext.From(ctx); inTx {
		buyerRec, err := s.compliance.GetComplianceInfo(ctx, buyer)
		if err != nil {
			return nil, nil, err
		}
		sellerRec, err := s.compliance.GetComplianceInfo(ctx, seller)
		if err != nil {
			return nil, nil, err
		}
		return buyerRec, sellerRec, nil
	}

	var buyerRec, sellerRec *compliancemodels.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, err := s.compliance.GetComplianceInfo(gctx, buyer)
		buyerRec = rec
		return err
	})
	g.Go(func() error {
		rec, err := s.compliance.GetComplianceInfo(gctx, seller)
		sellerRec = rec
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return buyerRec, sellerRec, nil
}

func (s *Service) storeErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "escrow not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) emitAudit(ctx context.Context, caller domain.Caller, e *models.Escrow, event audit.AuditEvent, decision risk.Decision) error {
	if s.auditPublisher == nil {
		return nil
	}
	err := s.auditPublisher.Emit(ctx, audit.ComplianceEvent{
		Timestamp: e.UpdatedAt,
		Subject:   e.ID.String(),
		Action:    event,
		Decision:  decision.Verdict.String(),
		Reason:    decision.Message(),
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   caller.ActorID(),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record escrow audit")
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, caller domain.Caller, e *models.Escrow) {
	s.logger.InfoContext(ctx, string(event),
		"escrow_id", e.ID,
		"buyer", e.Buyer,
		"seller", e.Seller,
		"amount", e.Amount.String(),
		"status", e.DisplayStatus(),
		"actor", caller.ActorID(),
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
}

func (s *Service) finish(ctx context.Context, span trace.Span, operation string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		s.metrics.IncRejection(operation, string(dErrors.CodeOf(err)))
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			s.logger.ErrorContext(ctx, "escrow operation failed",
				"operation", operation,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
	span.End()
}

func lockKey(id domain.EscrowID) string {
	return "escrow:" + id.String()
}
