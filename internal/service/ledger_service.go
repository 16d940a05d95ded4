package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
	"github.com/Jlndre/Capstone-eLife/internal/events"
	"github.com/Jlndre/Capstone-eLife/internal/observability"
	"github.com/Jlndre/Capstone-eLife/internal/repository"
	apperrors "github.com/Jlndre/Capstone-eLife/pkg/util/errorutil"
)

// LedgerService maintains the per-user quarterly obligations.
type LedgerService struct {
	quarters   repository.QuarterRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// LedgerDependencies bundles collaborators for the ledger.
type LedgerDependencies struct {
	Quarters   repository.QuarterRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

func NewLedgerService(deps LedgerDependencies) *LedgerService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &LedgerService{
		quarters:   deps.Quarters,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
	}
}

// Advance marks the period completed for the user and links the submission.
// Repeating the call converges on the same row.
func (s *LedgerService) Advance(ctx context.Context, userID string, period domain.QuarterPeriod, submissionID string, at time.Time) (*domain.QuarterObligation, error) {
	ob, err := s.complete(ctx, userID, period, submissionID, at)
	if err != nil {
		return nil, err
	}
	s.publishObligation(ctx, events.EventObligationComplete, ob)
	return ob, nil
}

func (s *LedgerService) complete(ctx context.Context, userID string, period domain.QuarterPeriod, submissionID string, at time.Time) (*domain.QuarterObligation, error) {
	due, err := dueDate(period)
	if err != nil {
		return nil, err
	}
	at = at.UTC()
	ob, err := s.quarters.Complete(ctx, &domain.QuarterObligation{
		UserID:       userID,
		Quarter:      period.Quarter,
		Year:         period.Year,
		Status:       domain.ObligationCompleted,
		DueDate:      due,
		VerifiedAt:   &at,
		SubmissionID: &submissionID,
	})
	if err != nil {
		return nil, err
	}
	return ob, nil
}

// Ensure creates a pending row for the period unless one exists.
func (s *LedgerService) Ensure(ctx context.Context, userID string, period domain.QuarterPeriod) (*domain.QuarterObligation, error) {
	due, err := dueDate(period)
	if err != nil {
		return nil, err
	}
	return s.quarters.CreateIfAbsent(ctx, &domain.QuarterObligation{
		UserID:  userID,
		Quarter: period.Quarter,
		Year:    period.Year,
		Status:  domain.ObligationPending,
		DueDate: due,
	})
}

// List returns the user's obligations for year (all years when zero). The
// current quarter is created as pending first so callers always see it.
func (s *LedgerService) List(ctx context.Context, userID string, year int) ([]domain.QuarterObligation, error) {
	if _, err := s.Ensure(ctx, userID, domain.PeriodOf(s.now())); err != nil {
		return nil, err
	}
	return s.quarters.ListByUser(ctx, userID, year)
}

// SweepMissed moves pending rows whose due date is before now to missed.
func (s *LedgerService) SweepMissed(ctx context.Context, now time.Time) (n int, err error) {
	ctx, span := tracer.Start(ctx, "ledger.sweep_missed")
	defer func() { endSpan(span, err) }()

	missed, err := s.quarters.MarkMissed(ctx, now.UTC())
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("ledger.missed", len(missed)))
	for i := range missed {
		s.publishObligation(ctx, events.EventObligationMissed, &missed[i])
	}
	s.metrics.AddMissed(len(missed))
	if len(missed) > 0 {
		s.logger.Info("obligations marked missed", zap.Int("count", len(missed)))
	}
	return len(missed), nil
}

func (s *LedgerService) publishObligation(ctx context.Context, eventType events.EventType, ob *domain.QuarterObligation) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.New(eventType, ob.UserID, events.ObligationPayload{
		Quarter: string(ob.Quarter),
		Year:    ob.Year,
		DueDate: ob.DueDate,
	}))
}

// dueDate refuses the January fallback for labels outside Q1..Q4.
func dueDate(period domain.QuarterPeriod) (time.Time, error) {
	due, err := domain.DueDate(period.Quarter, period.Year)
	if errors.Is(err, domain.ErrUnrecognizedQuarter) {
		return time.Time{}, apperrors.NewInputError("unrecognized quarter", map[string]any{"quarter": string(period.Quarter)})
	}
	return due, err
}
