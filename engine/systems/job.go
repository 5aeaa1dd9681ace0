package systems

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/scenestream/engine/core"
)

// JobTask is a unit of work executed by a worker. OnComplete and OnFailure
// run on the worker goroutine after OnStart returns.
type JobTask struct {
	Name       string
	OnStart    func(ctx context.Context) error
	OnComplete func()
	OnFailure  func(err error)
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan jobEntry
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type jobEntry struct {
	ctx  context.Context
	task JobTask
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrJobSystemClosed = errors.New("job system is shut down")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan jobEntry, channelSize),
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for entry := range js.jobQueue {
				js.run(entry)
			}
		}()
	}
}

func (js *JobSystem) run(entry jobEntry) {
	job := entry.task
	err := entry.ctx.Err()
	if err == nil {
		err = job.OnStart(entry.ctx)
	}
	if err != nil {
		if job.OnFailure != nil {
			job.OnFailure(err)
		} else {
			core.LogError("job '%s' failed: %s", job.Name, err.Error())
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete()
	}
}

/**
 * @brief Shuts the job system down. Queued jobs are drained before it returns.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return nil
	}
	js.closed = true
	close(js.jobQueue)
	js.mu.Unlock()

	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while the
 * queue is full unless ctx is done first.
 * @param info The description of the job to be executed.
 */
func (js *JobSystem) Submit(ctx context.Context, jt JobTask) error {
	js.mu.RLock()
	defer js.mu.RUnlock()
	if js.closed {
		return ErrJobSystemClosed
	}
	select {
	case js.jobQueue <- jobEntry{ctx: ctx, task: jt}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Future is the tracked result of work running on the job system.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// NewPromise returns a pending future and the function that completes it.
// Only the first call to complete has an effect.
func NewPromise[T any]() (*Future[T], func(T, error)) {
	f := newFuture[T]()
	var once sync.Once
	return f, func(v T, err error) {
		once.Do(func() { f.complete(v, err) })
	}
}

// Resolved returns an already completed future.
func Resolved[T any](value T, err error) *Future[T] {
	f := newFuture[T]()
	f.complete(value, err)
	return f
}

func (f *Future[T]) complete(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Go runs fn on the job system and returns its future. A job that cannot be
// queued resolves the future with the submission error.
func Go[T any](ctx context.Context, js *JobSystem, name string, fn func(ctx context.Context) (T, error)) *Future[T] {
	f, finish := NewPromise[T]()
	var value T
	err := js.Submit(ctx, JobTask{
		Name: name,
		OnStart: func(ctx context.Context) error {
			var err error
			value, err = fn(ctx)
			return err
		},
		OnComplete: func() { finish(value, nil) },
		OnFailure: func(err error) {
			var zero T
			finish(zero, err)
		},
	})
	if err != nil {
		var zero T
		finish(zero, err)
	}
	return f
}
