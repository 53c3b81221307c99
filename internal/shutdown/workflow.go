package shutdown

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Run outcomes reported to the Recorder.
const (
	OutcomeNoMatch        = "no_match"
	OutcomeStopped        = "stopped"
	OutcomeDiscoverFailed = "discover_failed"
	OutcomeStopFailed     = "stop_failed"
	OutcomeLogFailed      = "log_failed"
)

// Recorder receives one observation per Run.
type Recorder interface {
	RecordRun(ctx context.Context, outcome string, stopped int, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(context.Context, string, int, time.Duration) {}

// Workflow discovers matching instances, stops them, and writes audit entries.
// It holds no per-invocation state and is safe for concurrent use.
type Workflow struct {
	inventory Inventory
	store     AuditStore
	filter    Filter
	now       func() time.Time
	recorder  Recorder
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithFilter replaces the default discovery filter.
func WithFilter(f Filter) Option {
	return func(w *Workflow) { w.filter = f }
}

// WithClock sets the time source for shutdown timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(w *Workflow) { w.recorder = r }
}

// WithTracer sets the tracer used for workflow spans.
func WithTracer(t trace.Tracer) Option {
	return func(w *Workflow) { w.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// New creates a workflow over the given collaborators.
func New(inventory Inventory, store AuditStore, opts ...Option) *Workflow {
	w := &Workflow{
		inventory: inventory,
		store:     store,
		filter:    DefaultFilter(),
		now:       time.Now,
		recorder:  nopRecorder{},
		tracer:    otel.Tracer("autoshutdown/shutdown"),
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Filter returns the discovery filter in use.
func (w *Workflow) Filter() Filter {
	return w.filter
}

// Discover returns the instances matching the filter without stopping them.
func (w *Workflow) Discover(ctx context.Context) ([]Instance, error) {
	ctx, span := w.tracer.Start(ctx, "shutdown.discover")
	defer span.End()

	instances, err := w.inventory.DescribeRunning(ctx, w.filter)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("discover instances: %w", err)
	}
	span.SetAttributes(attribute.Int("instances", len(instances)))
	return instances, nil
}

// Run executes one invocation. Any collaborator error aborts the run and is
// returned wrapped; nothing already stopped or written is undone.
func (w *Workflow) Run(ctx context.Context, executionID string) (*Result, error) {
	start := time.Now()
	ctx, span := w.tracer.Start(ctx, "shutdown.run",
		trace.WithAttributes(attribute.String("execution_id", executionID)))
	defer span.End()

	logger := w.logger.With().Str("execution_id", executionID).Logger()

	result, outcome, err := w.run(ctx, &logger, executionID)
	w.recorder.RecordRun(ctx, outcome, len(result.Stopped), time.Since(start))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Ctx(ctx).Err(err).Str("outcome", outcome).Msg("shutdown run failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("stopped", len(result.Stopped)))
	return result, nil
}

func (w *Workflow) run(ctx context.Context, logger *zerolog.Logger, executionID string) (*Result, string, error) {
	empty := &Result{Stopped: []string{}}

	instances, err := w.Discover(ctx)
	if err != nil {
		return empty, OutcomeDiscoverFailed, err
	}

	if len(instances) == 0 {
		logger.Info().Ctx(ctx).Msg("no matching running instances to stop")
		return empty, OutcomeNoMatch, nil
	}

	ids := InstanceIDs(instances)
	if err := w.stop(ctx, ids); err != nil {
		return empty, OutcomeStopFailed, err
	}
	logger.Info().Ctx(ctx).Strs("instance_ids", ids).Msg("instances stopped")

	timestamp := w.now().Unix()
	entries := BuildLogEntries(executionID, timestamp, instances)
	if err := w.log(ctx, entries); err != nil {
		return &Result{Stopped: ids}, OutcomeLogFailed, err
	}
	logger.Info().Ctx(ctx).
		Int("entries", len(entries)).
		Int64("shutdown_timestamp", timestamp).
		Msg("shutdown logged")

	return &Result{
		Stopped:           ids,
		ShutdownTimestamp: timestamp,
		ExecutionID:       executionID,
	}, OutcomeStopped, nil
}

func (w *Workflow) stop(ctx context.Context, ids []string) error {
	ctx, span := w.tracer.Start(ctx, "shutdown.stop",
		trace.WithAttributes(attribute.StringSlice("instance_ids", ids)))
	defer span.End()

	if err := w.inventory.Stop(ctx, ids); err != nil {
		span.RecordError(err)
		return fmt.Errorf("stop instances: %w", err)
	}
	return nil
}

func (w *Workflow) log(ctx context.Context, entries []LogEntry) error {
	ctx, span := w.tracer.Start(ctx, "shutdown.log",
		trace.WithAttributes(attribute.Int("entries", len(entries))))
	defer span.End()

	if err := w.store.BatchPut(ctx, entries); err != nil {
		span.RecordError(err)
		return fmt.Errorf("write audit entries: %w", err)
	}
	return nil
}
