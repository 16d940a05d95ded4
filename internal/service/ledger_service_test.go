package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
	"github.com/Jlndre/Capstone-eLife/internal/events"
	"github.com/Jlndre/Capstone-eLife/internal/repository"
	apperrors "github.com/Jlndre/Capstone-eLife/pkg/util/errorutil"
)

var fixedNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func newRecorder(d events.Dispatcher) *recorder {
	r := &recorder{}
	events.SubscribeAll(d, func(_ context.Context, e events.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
		return nil
	})
	return r
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type LedgerServiceSuite struct {
	suite.Suite
	quarters *repository.MemoryQuarterRepository
	events   *recorder
	service  *LedgerService
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.quarters = repository.NewMemoryQuarterRepository()
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	s.events = newRecorder(dispatcher)
	s.service = NewLedgerService(LedgerDependencies{
		Quarters:   s.quarters,
		Dispatcher: dispatcher,
		Now:        func() time.Time { return fixedNow },
	})
}

func (s *LedgerServiceSuite) TestAdvanceIsIdempotent() {
	ctx := context.Background()
	period := domain.QuarterPeriod{Quarter: domain.Q2, Year: 2025}
	first := fixedNow
	second := fixedNow.Add(time.Hour)

	ob, err := s.service.Advance(ctx, "user-1", period, "sub-1", first)
	s.Require().NoError(err)
	again, err := s.service.Advance(ctx, "user-1", period, "sub-1", second)
	s.Require().NoError(err)

	s.Equal(1, s.quarters.Len())
	s.Equal(ob.ID, again.ID)
	s.Equal(domain.ObligationCompleted, again.Status)
	s.Equal(time.Date(2025, time.May, 15, 0, 0, 0, 0, time.UTC), again.DueDate)
	s.Require().NotNil(again.VerifiedAt)
	s.True(again.VerifiedAt.Equal(first), "repeat keeps the first verification time")
	s.Equal(
		[]events.EventType{events.EventObligationComplete, events.EventObligationComplete},
		s.events.types(),
	)
}

func (s *LedgerServiceSuite) TestAdvanceCompletesMissedRow() {
	ctx := context.Background()
	period := domain.QuarterPeriod{Quarter: domain.Q1, Year: 2025}

	_, err := s.service.Ensure(ctx, "user-1", period)
	s.Require().NoError(err)
	n, err := s.service.SweepMissed(ctx, fixedNow)
	s.Require().NoError(err)
	s.Equal(1, n)

	ob, err := s.service.Advance(ctx, "user-1", period, "sub-late", fixedNow)
	s.Require().NoError(err)
	s.Equal(domain.ObligationCompleted, ob.Status)
	s.Require().NotNil(ob.SubmissionID)
	s.Equal("sub-late", *ob.SubmissionID)
	s.Equal(1, s.quarters.Len())
}

func (s *LedgerServiceSuite) TestAdvanceRejectsUnrecognizedQuarter() {
	_, err := s.service.Advance(context.Background(), "user-1", domain.QuarterPeriod{Quarter: "Q5", Year: 2025}, "sub-1", fixedNow)
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, apperrors.CodeInputInvalid))
	s.Zero(s.quarters.Len())
	s.Empty(s.events.types())
}

func (s *LedgerServiceSuite) TestSweepMissed() {
	ctx := context.Background()
	_, err := s.service.Ensure(ctx, "user-1", domain.QuarterPeriod{Quarter: domain.Q1, Year: 2025})
	s.Require().NoError(err)
	_, err = s.service.Ensure(ctx, "user-1", domain.QuarterPeriod{Quarter: domain.Q3, Year: 2025})
	s.Require().NoError(err)

	s.Run("only past-due pending rows are marked", func() {
		n, err := s.service.SweepMissed(ctx, fixedNow)
		s.Require().NoError(err)
		s.Equal(1, n)
	})

	s.Run("second sweep finds nothing", func() {
		n, err := s.service.SweepMissed(ctx, fixedNow)
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Equal([]events.EventType{events.EventObligationMissed}, s.events.types())
}

func (s *LedgerServiceSuite) TestListEnsuresCurrentQuarter() {
	rows, err := s.service.List(context.Background(), "user-1", 2025)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(domain.Q2, rows[0].Quarter)
	s.Equal(domain.ObligationPending, rows[0].Status)

	rows, err = s.service.List(context.Background(), "user-1", 2024)
	s.Require().NoError(err)
	s.Empty(rows)
}
