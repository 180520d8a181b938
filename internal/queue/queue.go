// Package queue implements the in-process task queues driving the
// acquisition pipeline. Each queue owns one consumer goroutine that pops
// buffered tasks, dispatches them to a handler and replenishes itself
// from the database when the buffer runs dry.
package queue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/martiantux/redditarr/pkg/tasks"
)

const (
	historySize      = 1000
	defaultIdleDelay = 5 * time.Second
	gracefulStopWait = 5 * time.Second
)

// Handler processes one task. Errors are recorded in history and logged,
// never fatal to the worker loop.
type Handler func(ctx context.Context, task tasks.Task) error

// ReplenishFunc loads the next batch of work from persistent state when
// the in-memory buffer is empty.
type ReplenishFunc func(ctx context.Context) ([]tasks.Task, error)

// SweepFunc runs opportunistic maintenance during idle cycles.
type SweepFunc func(ctx context.Context) error

// Options configures optional queue behavior.
type Options struct {
	// IdleDelay returns how long the worker sleeps when both the buffer
	// and the replenisher come up empty. Nil means a fixed 5s.
	IdleDelay func(ctx context.Context) time.Duration
	// Sweep, when set, runs once per idle cycle.
	Sweep SweepFunc
}

type inflightEntry struct {
	task    tasks.Task
	started time.Time
}

// Queue is a single-consumer FIFO task queue with in-flight tracking and
// a bounded outcome history.
type Queue struct {
	name      string
	handler   Handler
	replenish ReplenishFunc
	opts      Options

	mu       sync.Mutex
	buffer   []tasks.Task
	inflight map[string]inflightEntry
	running  bool
	stop     chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc

	history *historyRing
}

// New builds a queue. The worker does not run until StartWorker.
func New(name string, handler Handler, replenish ReplenishFunc, opts Options) *Queue {
	return &Queue{
		name:      name,
		handler:   handler,
		replenish: replenish,
		opts:      opts,
		inflight:  make(map[string]inflightEntry),
		history:   newHistoryRing(historySize),
	}
}

// Enqueue adds a task to the buffer unless the same key is already
// buffered or in flight.
func (q *Queue) Enqueue(task tasks.Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, busy := q.inflight[task.Key()]; busy {
		return false
	}
	for _, buffered := range q.buffer {
		if buffered.Key() == task.Key() {
			return false
		}
	}
	q.buffer = append(q.buffer, task)
	return true
}

// StartWorker launches the consumer goroutine. Calling it on a running
// queue is a no-op.
func (q *Queue) StartWorker(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	q.running = true
	q.stop = make(chan struct{})
	q.done = make(chan struct{})
	q.cancel = cancel

	go q.loop(loopCtx, q.stop, q.done)
	log.Printf("Queue %s: worker started", q.name)
}

// Stop halts the worker. It first signals a graceful stop and waits up to
// five seconds for the current task, then cancels the loop context and
// waits for the goroutine to exit. Stopping a stopped queue is a no-op.
// Buffered tasks are left in place for the next start.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	stop, done, cancel := q.stop, q.done, q.cancel
	q.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-time.After(gracefulStopWait):
		log.Printf("Queue %s: graceful stop timed out, cancelling", q.name)
		cancel()
		<-done
	}
	cancel()

	q.mu.Lock()
	q.running = false
	q.mu.Unlock()
	log.Printf("Queue %s: worker stopped", q.name)
}

// Running reports whether the consumer goroutine is active.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

func (q *Queue) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		task, ok := q.pop()
		if ok {
			q.dispatch(ctx, task)
			continue
		}

		if err := q.fill(ctx); err != nil {
			log.Printf("Queue %s: replenish failed: %v", q.name, err)
		}
		if q.Len() > 0 {
			continue
		}

		if q.opts.Sweep != nil {
			if err := q.opts.Sweep(ctx); err != nil {
				log.Printf("Queue %s: sweep failed: %v", q.name, err)
			}
		}

		delay := defaultIdleDelay
		if q.opts.IdleDelay != nil {
			delay = q.opts.IdleDelay(ctx)
		}
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (q *Queue) pop() (tasks.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buffer) == 0 {
		return nil, false
	}
	task := q.buffer[0]
	q.buffer = q.buffer[1:]
	q.inflight[task.Key()] = inflightEntry{task: task, started: time.Now()}
	return task, true
}

func (q *Queue) fill(ctx context.Context) error {
	batch, err := q.replenish(ctx)
	if err != nil {
		return err
	}
	for _, task := range batch {
		q.Enqueue(task)
	}
	return nil
}

// dispatch runs the handler with panic isolation. A panicking handler is
// recorded as a failed outcome and the loop keeps going.
func (q *Queue) dispatch(ctx context.Context, task tasks.Task) {
	start := time.Now()
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
				log.Printf("Queue %s: panic handling task %s: %v", q.name, task.Key(), r)
			}
		}()
		err = q.handler(ctx, task)
	}()

	q.mu.Lock()
	delete(q.inflight, task.Key())
	q.mu.Unlock()

	outcome := Outcome{
		Key:        task.Key(),
		Success:    err == nil,
		FinishedAt: time.Now(),
		Duration:   time.Since(start),
	}
	if err != nil {
		outcome.Error = err.Error()
		log.Printf("Queue %s: task %s failed: %v", q.name, task.Key(), err)
	}
	q.history.add(outcome)
}

// Len returns the number of buffered tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffer)
}

// InFlightTask describes a task currently being processed.
type InFlightTask struct {
	Key     string    `json:"key"`
	Started time.Time `json:"started"`
}

// Status is a point-in-time snapshot for the operator API.
type Status struct {
	Name     string         `json:"name"`
	Running  bool           `json:"running"`
	Buffered int            `json:"buffered"`
	InFlight []InFlightTask `json:"in_flight"`
	Recent   []Outcome      `json:"recent"`
}

// StatusSnapshot returns the queue's current state with the most recent
// outcomes capped at limit.
func (q *Queue) StatusSnapshot(limit int) Status {
	q.mu.Lock()
	st := Status{
		Name:     q.name,
		Running:  q.running,
		Buffered: len(q.buffer),
	}
	for _, entry := range q.inflight {
		st.InFlight = append(st.InFlight, InFlightTask{
			Key:     entry.task.Key(),
			Started: entry.started,
		})
	}
	q.mu.Unlock()

	recent := q.history.snapshot()
	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	st.Recent = recent
	return st
}
