package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Subscriber attaches event handlers to the dispatcher.
type Subscriber interface {
	RegisterHandlers()
}

// Job is a periodic loop that returns once ctx is done.
type Job interface {
	Run(ctx context.Context)
}

// Background tracks the jobs started for the lifetime of the process.
type Background struct {
	logger *zap.Logger
	wg     sync.WaitGroup
}

// Start registers every subscriber before launching the jobs, so no event
// raised by a job is published to an empty dispatcher.
func Start(ctx context.Context, logger *zap.Logger, subscribers []Subscriber, jobs ...Job) *Background {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Background{logger: logger}
	for _, sub := range subscribers {
		if sub == nil {
			continue
		}
		sub.RegisterHandlers()
	}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		b.wg.Add(1)
		go func(job Job) {
			defer b.wg.Done()
			job.Run(ctx)
		}(job)
	}
	logger.Info("background workers started",
		zap.Int("subscribers", len(subscribers)),
		zap.Int("jobs", len(jobs)))
	return b
}

// Wait blocks until every job has returned.
func (b *Background) Wait() {
	b.wg.Wait()
	b.logger.Info("background workers stopped")
}
