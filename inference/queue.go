package inference

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/nvr-ai/go-vision/logger"
	"github.com/nvr-ai/go-vision/models/model/preprocess"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrCancelled resolves tasks that were still queued when the queue closed.
	ErrCancelled = errors.New("task cancelled")
	// ErrQueueClosed is returned by Submit after Close.
	ErrQueueClosed = errors.New("task queue closed")
	// ErrQueueFull is returned by Submit when every slot is taken.
	ErrQueueFull = errors.New("task queue full")
)

// QueueConfig sizes a TaskQueue.
type QueueConfig struct {
	// Workers is the number of concurrent engine runs. Zero uses GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
	// Capacity is the number of tasks that may wait for a worker. Zero uses 4 per worker.
	Capacity int `json:"capacity" yaml:"capacity" mapstructure:"capacity"`
}

// Future is the pending result of a submitted task.
type Future struct {
	id   string
	done chan struct{}
	out  *Output
	err  error
}

// ID returns the unique task id.
func (f *Future) ID() string {
	return f.id
}

// Done is closed once the task resolves.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task resolves or ctx ends. Abandoning a wait does not cancel the task.
func (f *Future) Wait(ctx context.Context) (*Output, error) {
	select {
	case <-f.done:
		return f.out, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Future) resolve(out *Output, err error) {
	f.out, f.err = out, err
	close(f.done)
}

type task struct {
	ctx      context.Context
	input    *preprocess.Tensor
	future   *Future
	enqueued time.Time
}

// TaskQueue runs engine calls on a fixed pool of workers. It implements Engine itself, so a pipeline
// can run through it unchanged.
type TaskQueue struct {
	engine Engine
	tasks  chan *task
	quit   chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	log    *zap.Logger
}

// NewTaskQueue starts the workers.
//
// Arguments:
//   - engine: The engine every task runs on.
//   - cfg: Worker count and queue capacity.
//   - log: The logger; nil uses the global logger.
//
// Returns:
//   - *TaskQueue: The running queue. The caller must Close it.
//   - error: ErrConfig for a nil engine or negative sizes.
func NewTaskQueue(engine Engine, cfg QueueConfig, log *zap.Logger) (*TaskQueue, error) {
	if engine == nil {
		return nil, errdefs.Config("task queue needs an engine")
	}
	if cfg.Workers < 0 || cfg.Capacity < 0 {
		return nil, errdefs.Config("task queue workers %d and capacity %d must not be negative", cfg.Workers, cfg.Capacity)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = cfg.Workers * 4
	}

	q := &TaskQueue{
		engine: engine,
		tasks:  make(chan *task, cfg.Capacity),
		quit:   make(chan struct{}),
		log:    logger.Named(log, "queue"),
	}

	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.worker()
	}

	return q, nil
}

// Submit enqueues input and returns its future without waiting for a worker.
//
// Returns:
//   - *Future: The pending result.
//   - error: ErrQueueClosed after Close, ErrQueueFull when no slot is free, ErrInvalidInput for a nil
//     input.
func (q *TaskQueue) Submit(ctx context.Context, input *preprocess.Tensor) (*Future, error) {
	if input == nil {
		return nil, errdefs.InvalidInput("input tensor is nil")
	}

	t := &task{
		ctx:      ctx,
		input:    input,
		future:   &Future{id: uuid.NewString(), done: make(chan struct{})},
		enqueued: time.Now(),
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	select {
	case q.tasks <- t:
		return t.future, nil
	default:
		return nil, ErrQueueFull
	}
}

// Run submits input and waits for the result.
func (q *TaskQueue) Run(ctx context.Context, input *preprocess.Tensor) (*Output, error) {
	future, err := q.Submit(ctx, input)
	if err != nil {
		return nil, err
	}
	return future.Wait(ctx)
}

// Close stops accepting tasks, waits for in-flight runs and resolves every task still queued with
// ErrCancelled. The wrapped engine is not closed. Calling Close again is a no-op.
func (q *TaskQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()

	q.wg.Wait()

	cancelled := 0
	for {
		select {
		case t := <-q.tasks:
			t.future.resolve(nil, ErrCancelled)
			cancelled++
		default:
			if cancelled > 0 {
				q.log.Info("task queue closed", zap.Int("cancelled", cancelled))
			}
			return nil
		}
	}
}

func (q *TaskQueue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.quit:
			return
		case t := <-q.tasks:
			// Both cases may be ready at once; a closed queue never starts new work.
			select {
			case <-q.quit:
				t.future.resolve(nil, ErrCancelled)
				continue
			default:
			}
			q.execute(t)
		}
	}
}

func (q *TaskQueue) execute(t *task) {
	if err := t.ctx.Err(); err != nil {
		t.future.resolve(nil, err)
		return
	}

	started := time.Now()
	out, err := q.engine.Run(t.ctx, t.input)
	t.future.resolve(out, err)

	q.log.Debug("task done",
		zap.String("id", t.future.id),
		zap.Duration("wait", started.Sub(t.enqueued)),
		zap.Duration("run", time.Since(started)),
		zap.Error(err),
	)
}

// CollectMetrics reports the number of tasks waiting for a worker.
func (q *TaskQueue) CollectMetrics() map[string]float64 {
	return map[string]float64{"queue_depth": float64(len(q.tasks))}
}
