package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Job is a queued evaluation. OnComplete, if set, receives the outcome.
type Job struct {
	Request    Request
	OnComplete func(*Result, error)
}

func (j *Job) lane() string {
	return string(j.Request.InterviewID) + ":" + string(j.Request.UserID)
}

// Queue runs jobs in per-(interview, user) lanes with a global concurrency
// semaphore. Jobs within a lane run sequentially, so two evaluations of the
// same interview by the same user never overlap. A lane's goroutine exits
// once the lane is drained.
type Queue struct {
	lanes     map[string]chan *Job
	semaphore *semaphore.Weighted
	processor func(context.Context, Request) (*Result, error)
	pending   atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewQueue creates a Queue that allows up to maxConcurrent evaluations at
// once across all lanes.
func NewQueue(maxConcurrent int64, processor func(context.Context, Request) (*Result, error)) *Queue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Queue{
		lanes:     make(map[string]chan *Job),
		semaphore: semaphore.NewWeighted(maxConcurrent),
		processor: processor,
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context and waits for the lanes to drain. Jobs
// that had not started complete with a failure.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a job to its lane, creating the lane (and its goroutine) on
// first use. Returns an error if the lane's buffer is full.
func (q *Queue) Enqueue(job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ctx == nil || q.ctx.Err() != nil {
		return fmt.Errorf("feedback queue not running")
	}

	key := job.lane()
	lane, exists := q.lanes[key]
	if !exists {
		lane = make(chan *Job, 16)
		q.lanes[key] = lane
		q.wg.Add(1)
		go q.processLane(key, lane)
	}

	select {
	case lane <- job:
		q.pending.Add(1)
		return nil
	default:
		return fmt.Errorf("queue full for %s", key)
	}
}

// Lanes reports how many lanes currently hold work.
func (q *Queue) Lanes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes)
}

func (q *Queue) processLane(key string, lane chan *Job) {
	defer q.wg.Done()
	for {
		job, ok := q.next(key, lane)
		if !ok {
			return
		}
		q.run(key, job)
		q.pending.Add(-1)
	}
}

// next takes the lane's next job, or retires the lane when it is empty.
// Enqueue sends under the same lock, so no job is left behind.
func (q *Queue) next(key string, lane chan *Job) (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	select {
	case job := <-lane:
		return job, true
	default:
	}
	if q.lanes[key] == lane {
		delete(q.lanes, key)
	}
	return nil, false
}

func (q *Queue) run(key string, job *Job) {
	if err := q.ctx.Err(); err != nil {
		q.complete(job, failed(), fmt.Errorf("%w: queue stopped: %w", ErrGenerationFailed, err))
		return
	}
	if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
		q.complete(job, failed(), fmt.Errorf("%w: queue stopped: %w", ErrGenerationFailed, err))
		return
	}
	defer q.semaphore.Release(1)
	res, err := q.processor(q.ctx, job.Request)
	if err != nil {
		slog.Error("feedback job failed", "lane", key, "error", err)
	}
	q.complete(job, res, err)
}

func (q *Queue) complete(job *Job, res *Result, err error) {
	if job.OnComplete != nil {
		job.OnComplete(res, err)
	}
}

// WaitIdle blocks until no jobs are queued or running, or the timeout
// expires. Returns true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.pending.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
