package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"interview-question-bank/internal/models"
	"interview-question-bank/internal/queue"
	"interview-question-bank/internal/store"
	"interview-question-bank/internal/telemetry"
)

// DefaultPollInterval is the pause between queue polls.
const DefaultPollInterval = 5000 * time.Millisecond

// JobStore is the part of the job store the processor needs.
type JobStore interface {
	GetJob(ctx context.Context, id string) (models.Job, error)
	UpdateJobStatus(ctx context.Context, id string, status models.JobStatus) (models.Job, error)
}

// Queue is the part of the work queue the processor needs.
type Queue interface {
	Pop(ctx context.Context, name string, remove bool) (*models.QueueItem, error)
	PopWait(ctx context.Context, name string, timeout time.Duration) (*models.QueueItem, error)
	Length(ctx context.Context, name string) (int64, error)
}

// Handler executes a job for a given type.
type Handler func(ctx context.Context, job models.Job) error

// Options configures one processing loop.
type Options struct {
	QueueName    string
	PollInterval time.Duration
	// Blocking waits on the queue with BLPOP for up to PollInterval instead
	// of sleeping between empty polls.
	Blocking bool
}

func (o Options) withDefaults() Options {
	if o.QueueName == "" {
		o.QueueName = queue.DefaultName
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// Processor pops job references off a queue and drives each job through
// new -> processing -> done|failed.
type Processor struct {
	store          JobStore
	queue          Queue
	log            zerolog.Logger
	handlers       map[models.JobType]Handler
	handlerTimeout time.Duration

	mu      sync.Mutex
	current *Controller
}

func NewProcessor(st JobStore, q Queue, log zerolog.Logger) *Processor {
	return &Processor{
		store:    st,
		queue:    q,
		log:      log,
		handlers: make(map[models.JobType]Handler),
	}
}

// SetHandlerTimeout bounds each handler call. Zero means no bound.
func (p *Processor) SetHandlerTimeout(d time.Duration) {
	p.handlerTimeout = d
}

// RegisterHandler binds a handler to a known job type.
func (p *Processor) RegisterHandler(jobType models.JobType, handler Handler) error {
	if !jobType.Known() {
		return fmt.Errorf("register handler: unknown job type %q", jobType)
	}
	if handler == nil {
		return fmt.Errorf("register handler: nil handler for %q", jobType)
	}
	p.handlers[jobType] = handler
	return nil
}

// Controller owns a running loop.
type Controller struct {
	running  atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newController() *Controller {
	c := &Controller{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	c.running.Store(true)
	return c
}

// Stop asks the loop to exit. The current iteration completes first.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Done is closed once the loop has exited.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Wait blocks until the loop has exited.
func (c *Controller) Wait() { <-c.done }

func (c *Controller) Running() bool { return c.running.Load() }

func (c *Controller) stopping() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// Start launches the processing loop in a goroutine. A Processor runs at
// most one loop: calling Start while one is running logs a warning and
// returns the existing controller. A loop that has been asked to stop does
// not count, even while it finishes its last job.
func (p *Processor) Start(ctx context.Context, opts Options) *Controller {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && p.current.Running() && !p.current.stopping() {
		p.log.Warn().Msg("processing loop already running")
		return p.current
	}

	opts = opts.withDefaults()
	c := newController()
	p.current = c
	go p.loop(ctx, opts, c)
	p.log.Info().
		Str("queue", opts.QueueName).
		Dur("poll_interval", opts.PollInterval).
		Bool("blocking", opts.Blocking).
		Msg("processing loop started")
	return c
}

func (p *Processor) loop(ctx context.Context, opts Options, c *Controller) {
	defer func() {
		c.running.Store(false)
		close(c.done)
		p.log.Info().Msg("processing loop stopped")
	}()

	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		popped, err := p.iterate(ctx, opts)
		if err != nil {
			telemetry.LoopErrors.Inc()
			p.log.Error().Err(err).Msg("processing iteration failed")
		}
		// BLPOP already waited on an empty queue.
		if opts.Blocking && (popped || err == nil) {
			continue
		}

		t := time.NewTimer(opts.PollInterval)
		select {
		case <-c.stop:
			t.Stop()
			return
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// iterate pops at most one item and processes its job. It reports whether
// an item was taken off the queue.
func (p *Processor) iterate(ctx context.Context, opts Options) (popped bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in processing iteration: %v", r)
		}
	}()

	var item *models.QueueItem
	if opts.Blocking {
		item, err = p.queue.PopWait(ctx, opts.QueueName, opts.PollInterval)
	} else {
		item, err = p.queue.Pop(ctx, opts.QueueName, true)
	}
	if err != nil {
		return false, fmt.Errorf("pop from %s: %w", opts.QueueName, err)
	}
	if item == nil {
		return false, nil
	}

	job, err := p.store.GetJob(ctx, item.ID)
	if errors.Is(err, store.ErrJobNotFound) {
		telemetry.OrphanedItems.Inc()
		p.log.Warn().
			Str("job_id", item.ID).
			Str("type", string(item.Type)).
			Str("queue", opts.QueueName).
			Msg("queued job not found in store, dropping item")
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("load job %s: %w", item.ID, err)
	}

	p.ProcessJob(ctx, job)
	if depth, err := p.queue.Length(ctx, opts.QueueName); err == nil {
		telemetry.QueueDepthGauge.Set(float64(depth))
	}
	return true, nil
}

// ProcessJob runs one job through the status machine and reports whether
// it finished as done. Handler errors are logged and recorded as failed,
// never returned.
func (p *Processor) ProcessJob(ctx context.Context, job models.Job) bool {
	log := p.log.With().Str("job_id", job.ID).Str("type", string(job.Type)).Logger()

	if _, err := p.store.UpdateJobStatus(ctx, job.ID, models.StatusProcessing); err != nil {
		log.Error().Err(err).Msg("mark job processing")
		return false
	}

	handler, ok := p.handlers[job.Type]
	if !ok {
		telemetry.UnsupportedJobs.Inc()
		log.Warn().Msg("no handler for job type, failing job")
		p.finish(ctx, log, job, models.StatusFailed)
		return false
	}

	start := time.Now()
	if err := p.runHandler(ctx, handler, job); err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("job failed")
		p.finish(ctx, log, job, models.StatusFailed)
		return false
	}

	log.Info().Dur("elapsed", time.Since(start)).Msg("job done")
	p.finish(ctx, log, job, models.StatusDone)
	return true
}

func (p *Processor) runHandler(ctx context.Context, handler Handler, job models.Job) (err error) {
	if p.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.handlerTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, job)
}

func (p *Processor) finish(ctx context.Context, log zerolog.Logger, job models.Job, status models.JobStatus) {
	telemetry.JobsProcessed.WithLabelValues(string(job.Type), string(status)).Inc()
	if _, err := p.store.UpdateJobStatus(ctx, job.ID, status); err != nil {
		log.Error().Err(err).Str("status", string(status)).Msg("record job status")
	}
}
