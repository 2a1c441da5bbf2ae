// Package scheduler runs the registered pipelines on a fixed interval. At most
// one run of a pipeline is active at a time; a stop signal prevents new runs
// while active ones complete.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AlexPunches/1x-fit/internal/config"
	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/logging"
	"github.com/AlexPunches/1x-fit/internal/metrics"
	"github.com/AlexPunches/1x-fit/internal/models"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
)

var (
	ErrRunInProgress = errors.New("pipeline run already in progress")
	ErrStopped       = errors.New("scheduler stopped")
)

// Recorder persists run history.
type Recorder interface {
	Start(ctx context.Context, pipeline, trigger string) (uuid.UUID, error)
	Finish(ctx context.Context, id uuid.UUID, stats etl.RunStats, runErr error) error
}

type Options struct {
	Interval   time.Duration
	Policy     config.OverlapPolicy
	RunOnStart bool
	Recorder   Recorder
	Logger     *slog.Logger
}

// PipelineStatus describes a registered pipeline for the ops API.
type PipelineStatus struct {
	Name      string     `json:"name"`
	Running   bool       `json:"running"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

type Scheduler struct {
	registry *etl.Registry
	opts     Options
	log      *slog.Logger

	mu      sync.Mutex
	guards  map[string]*semaphore.Weighted
	pending map[string]bool
	running map[string]time.Time
	stopped bool
	cancel  context.CancelFunc

	loopDone chan struct{}
	wg       sync.WaitGroup
}

func New(registry *etl.Registry, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 3 * time.Minute
	}
	if opts.Policy == "" {
		opts.Policy = config.OverlapSkip
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		registry: registry,
		opts:     opts,
		log:      log,
		guards:   make(map[string]*semaphore.Weighted),
		pending:  make(map[string]bool),
		running:  make(map[string]time.Time),
	}
}

// Start launches the tick loop. It returns immediately; cancelling ctx or
// calling Stop ends the loop.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.mu.Unlock()

	go s.loop(ctx)
	s.log.Info("scheduler started",
		"interval", s.opts.Interval.String(),
		"policy", string(s.opts.Policy),
		"pipelines", s.registry.Names())
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.loopDone)

	if s.opts.RunOnStart {
		s.dispatch(ctx, models.TriggerStartup)
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(ctx, models.TriggerSchedule)
		}
	}
}

// dispatch runs one tick in the background so a slow run never delays the ticker.
func (s *Scheduler) dispatch(ctx context.Context, trigger string) {
	if !s.track() {
		return
	}
	go func() {
		defer s.wg.Done()
		if err := s.RunAll(ctx, trigger); err != nil {
			s.log.Warn("tick finished with failures", "trigger", trigger, "error", err)
		}
	}()
}

// track registers an in-flight goroutine unless the scheduler is stopping.
func (s *Scheduler) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

// Stop prevents new runs and waits for active ones to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel, loopDone := s.cancel, s.loopDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if loopDone != nil {
		<-loopDone
	}
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// RunAll runs every registered pipeline in name order, one after another.
// Pipelines not yet started when ctx is cancelled are not started.
func (s *Scheduler) RunAll(ctx context.Context, trigger string) error {
	var errs []error
	for _, name := range s.registry.Names() {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.RunPipeline(ctx, name, trigger); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// RunPipeline runs one pipeline under the overlap policy and waits for it.
// Under the queue policy at most one run per pipeline waits behind the active
// one; further requests are merged into it and return ErrRunInProgress.
// ctx only bounds the wait for the guard; the run itself is not cancelled by it.
func (s *Scheduler) RunPipeline(ctx context.Context, name, trigger string) (etl.RunStats, error) {
	if !s.registry.Exists(name) {
		return etl.RunStats{}, fmt.Errorf("%w: %s", etl.ErrUnknownPipeline, name)
	}

	guard := s.guard(name)
	if !guard.TryAcquire(1) {
		if s.opts.Policy != config.OverlapQueue || !s.enqueue(name) {
			s.skipped(name, trigger)
			return etl.RunStats{}, ErrRunInProgress
		}
		err := guard.Acquire(ctx, 1)
		s.dequeue(name)
		if err != nil {
			return etl.RunStats{}, err
		}
	}
	defer guard.Release(1)

	return s.execute(context.WithoutCancel(ctx), name, trigger)
}

// TriggerNow starts a run in the background. It never queues: if the pipeline is
// already running it returns ErrRunInProgress.
func (s *Scheduler) TriggerNow(name string) error {
	if !s.registry.Exists(name) {
		return fmt.Errorf("%w: %s", etl.ErrUnknownPipeline, name)
	}
	guard := s.guard(name)
	if !guard.TryAcquire(1) {
		s.skipped(name, models.TriggerManual)
		return ErrRunInProgress
	}
	if !s.track() {
		guard.Release(1)
		return ErrStopped
	}

	go func() {
		defer s.wg.Done()
		defer guard.Release(1)
		s.execute(context.Background(), name, models.TriggerManual)
	}()
	return nil
}

// Pipelines reports every registered pipeline and whether it is running.
func (s *Scheduler) Pipelines() []PipelineStatus {
	names := s.registry.Names()

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PipelineStatus, 0, len(names))
	for _, name := range names {
		st := PipelineStatus{Name: name}
		if at, ok := s.running[name]; ok {
			st.Running = true
			started := at
			st.StartedAt = &started
		}
		out = append(out, st)
	}
	return out
}

func (s *Scheduler) guard(name string) *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guards[name]
	if !ok {
		g = semaphore.NewWeighted(1)
		s.guards[name] = g
	}
	return g
}

// enqueue reserves the single waiting slot of a pipeline.
func (s *Scheduler) enqueue(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[name] {
		return false
	}
	s.pending[name] = true
	return true
}

func (s *Scheduler) dequeue(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, name)
}

func (s *Scheduler) skipped(name, trigger string) {
	metrics.Inc(metrics.OverlapSkips, prometheus.Labels{"pipeline": name}, 1)
	s.log.Warn("run skipped: previous run still in progress", "pipeline", name, "trigger", trigger)
}

func (s *Scheduler) setRunning(name string, at time.Time, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.running[name] = at
	} else {
		delete(s.running, name)
	}
}

// execute builds and runs one pipeline instance. Failures are logged, reported
// and recorded; they never escape as panics.
func (s *Scheduler) execute(ctx context.Context, name, trigger string) (stats etl.RunStats, err error) {
	p, err := s.registry.Build(name)
	if err != nil {
		return etl.RunStats{}, err
	}

	runID := uuid.New()
	if s.opts.Recorder != nil {
		id, recErr := s.opts.Recorder.Start(ctx, name, trigger)
		if recErr != nil {
			s.log.Warn("failed to record run start", "pipeline", name, "error", recErr)
		} else {
			runID = id
		}
	}

	log := s.log.With("pipeline", name, "run_id", runID.String())
	ctx = logging.WithLogger(ctx, log)

	started := time.Now()
	s.setRunning(name, started, true)
	log.Info("pipeline run started", "trigger", trigger)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panicked: %v", r)
		}
		s.setRunning(name, started, false)
		s.finish(ctx, log, runID, name, time.Since(started), stats, err)
	}()

	return p.Run(ctx)
}

func (s *Scheduler) finish(ctx context.Context, log *slog.Logger, runID uuid.UUID, name string, took time.Duration, stats etl.RunStats, runErr error) {
	status := models.RunStatusSucceeded
	if runErr != nil {
		status = models.RunStatusFailed
	}
	metrics.RecordRun(name, status, took, stats.Loaded, stats.Skipped)

	if runErr != nil {
		log.Error("pipeline run failed", "error", runErr.Error(), "duration_ms", took.Milliseconds())
		hub := sentry.CurrentHub().Clone()
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("pipeline", name)
			scope.SetTag("run_id", runID.String())
			hub.CaptureException(runErr)
		})
	} else {
		log.Info("pipeline run finished",
			"duration_ms", took.Milliseconds(),
			"loaded", stats.TotalLoaded(),
			"skipped", stats.Skipped)
	}

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.Finish(ctx, runID, stats, runErr); err != nil {
			log.Warn("failed to record run result", "error", err)
		}
	}
}
