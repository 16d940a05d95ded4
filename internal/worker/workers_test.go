package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSubscriber struct {
	registered atomic.Int32
}

func (s *countingSubscriber) RegisterHandlers() { s.registered.Add(1) }

type blockingJob struct {
	started chan struct{}
	sawSubs func() bool
	ok      atomic.Bool
}

func (j *blockingJob) Run(ctx context.Context) {
	j.ok.Store(j.sawSubs())
	close(j.started)
	<-ctx.Done()
}

func TestStartRegistersSubscribersBeforeJobs(t *testing.T) {
	sub := &countingSubscriber{}
	job := &blockingJob{started: make(chan struct{})}
	job.sawSubs = func() bool { return sub.registered.Load() == 1 }

	ctx, cancel := context.WithCancel(context.Background())
	bg := Start(ctx, zap.NewNop(), []Subscriber{sub, nil}, job, nil)

	select {
	case <-job.started:
	case <-time.After(time.Second):
		t.Fatal("job did not start")
	}
	assert.True(t, job.ok.Load())
	assert.EqualValues(t, 1, sub.registered.Load())

	cancel()
	done := make(chan struct{})
	go func() {
		bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancel")
	}
}

func TestStartRunsSweeper(t *testing.T) {
	marker := &countingMarker{}
	ctx, cancel := context.WithCancel(context.Background())
	bg := Start(ctx, nil, nil, NewMissedSweeper(marker, time.Millisecond, nil))

	require.Eventually(t, func() bool { return marker.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	bg.Wait()
}
