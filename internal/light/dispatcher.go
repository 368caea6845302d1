package light

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/metrics"
)

// ErrQueueFull is recorded when a request is dropped because every worker is busy.
var ErrQueueFull = errors.New("light queue full")

// Diagnostic is the advisory outcome of the latest light request for a table.
type Diagnostic struct {
	TableID   int64     `json:"table_id"`
	On        bool      `json:"on"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
	ElapsedMs int64     `json:"elapsed_ms"`
}

// DispatcherOptions tune a Dispatcher. Zero values fall back to defaults.
type DispatcherOptions struct {
	Workers        int
	QueueSize      int
	Timeout        time.Duration
	DiagnosticsTTL time.Duration
}

type job struct {
	tableID int64
	on      bool
}

// Dispatcher runs light requests on a bounded worker pool. Callers never wait
// for the outcome; it is only logged, counted and kept as a diagnostic.
type Dispatcher struct {
	ctrl    Controller
	opts    DispatcherOptions
	jobs    chan job
	diag    *cache.Cache
	log     zerolog.Logger
	wg      sync.WaitGroup
	started sync.Once
}

// NewDispatcher creates a dispatcher around ctrl. Call Start before use.
func NewDispatcher(ctrl Controller, opts DispatcherOptions, log zerolog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.DiagnosticsTTL <= 0 {
		opts.DiagnosticsTTL = time.Hour
	}
	return &Dispatcher{
		ctrl: ctrl,
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
		diag: cache.New(opts.DiagnosticsTTL, 2*opts.DiagnosticsTTL),
		log:  log.With().Str("component", "light").Logger(),
	}
}

// Start launches the worker goroutines. They exit when ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.started.Do(func() {
		for i := 0; i < d.opts.Workers; i++ {
			d.wg.Add(1)
			go d.worker(ctx, i)
		}
	})
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Request queues a light switch without blocking.
func (d *Dispatcher) Request(tableID int64, on bool) {
	select {
	case d.jobs <- job{tableID: tableID, on: on}:
	default:
		d.record(job{tableID: tableID, on: on}, ErrQueueFull, 0)
	}
}

// Diagnostics returns the latest recorded outcome for tableID.
func (d *Dispatcher) Diagnostics(tableID int64) (Diagnostic, bool) {
	v, ok := d.diag.Get(cacheKey(tableID))
	if !ok {
		return Diagnostic{}, false
	}
	return v.(Diagnostic), true
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.log.Debug().Int("worker", id).Msg("light worker started")
	for {
		select {
		case j := <-d.jobs:
			d.process(ctx, j)
		case <-ctx.Done():
			d.log.Debug().Int("worker", id).Msg("light worker shutting down")
			return
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, j job) {
	reqCtx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	start := time.Now()
	err := d.ctrl.SetLight(reqCtx, j.tableID, j.on)
	d.record(j, err, time.Since(start))
}

func (d *Dispatcher) record(j job, err error, elapsed time.Duration) {
	diag := Diagnostic{
		TableID:   j.tableID,
		On:        j.on,
		OK:        err == nil,
		At:        time.Now(),
		ElapsedMs: elapsed.Milliseconds(),
	}

	switch {
	case err == nil:
		metrics.LightRequests.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrQueueFull):
		diag.Error = err.Error()
		metrics.LightRequests.WithLabelValues("dropped").Inc()
		d.log.Warn().Int64("table_id", j.tableID).Bool("on", j.on).Msg("light request dropped")
	default:
		diag.Error = err.Error()
		metrics.LightRequests.WithLabelValues("error").Inc()
		d.log.Warn().Err(err).Int64("table_id", j.tableID).Bool("on", j.on).Msg("light request failed")
	}

	d.diag.SetDefault(cacheKey(j.tableID), diag)
}

func cacheKey(tableID int64) string {
	return strconv.FormatInt(tableID, 10)
}
