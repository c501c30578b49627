package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name    string
	mu      sync.Mutex
	runs    int
	failing bool
	block   chan struct{}
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.mu.Lock()
	j.runs++
	failing := j.failing
	j.mu.Unlock()
	if j.block != nil {
		<-j.block
	}
	if failing {
		return errors.New("boom")
	}
	return nil
}

func (j *countingJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewCronScheduler(0)
	err := s.AddJob(&countingJob{name: "bad"}, "not a cron spec")
	require.Error(t, err)
}

func TestSchedulerNoOverlap(t *testing.T) {
	s := NewCronScheduler(0)
	job := &countingJob{name: "slow", block: make(chan struct{})}
	fn := s.wrap(job)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
	require.Eventually(t, func() bool { return job.count() == 1 }, time.Second, 5*time.Millisecond)

	// A second fire while the first run is in flight is dropped.
	fn()
	require.Equal(t, 1, job.count())

	close(job.block)
	wg.Wait()

	fn()
	require.Equal(t, 2, job.count())
}

func TestSchedulerRetriesAfterFailure(t *testing.T) {
	s := NewCronScheduler(20 * time.Millisecond)
	job := &countingJob{name: "flaky", failing: true}
	fn := s.wrap(job)

	fn()
	require.Equal(t, 1, job.count())

	// First retry fires after the delay; let it succeed.
	job.mu.Lock()
	job.failing = false
	job.mu.Unlock()
	require.Eventually(t, func() bool { return job.count() == 2 }, time.Second, 5*time.Millisecond)

	// The successful retry schedules nothing further.
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 2, job.count())
}

func TestSchedulerStopCancelsPendingRetry(t *testing.T) {
	s := NewCronScheduler(20 * time.Millisecond)
	job := &countingJob{name: "flaky", failing: true}
	fn := s.wrap(job)

	fn()
	require.Equal(t, 1, job.count())

	// Stopping before the retry delay elapses must leave the retry dead.
	s.Stop()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 1, job.count())
}

func TestSchedulerRunsScheduledJob(t *testing.T) {
	s := NewCronScheduler(0)
	var fired atomic.Int32
	fn := s.wrap(jobFunc(func(ctx context.Context) error {
		fired.Add(1)
		return nil
	}))
	fn()
	require.EqualValues(t, 1, fired.Load())
}

type jobFunc func(ctx context.Context) error

func (f jobFunc) Name() string { return "func" }

func (f jobFunc) Run(ctx context.Context) error { return f(ctx) }
