package playground

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Playground/backend/internal/logging"
	"github.com/GriffinCanCode/Playground/backend/internal/monitoring"
	"github.com/GriffinCanCode/Playground/backend/internal/protocol"
	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/shared/id"
	"github.com/GriffinCanCode/Playground/backend/internal/snippets"
)

// Config defines controller configuration.
type Config struct {
	// Origin stamps outbound envelopes; the guard rejects anything else.
	Origin string
	// GracePeriod bounds a runner's observable lifetime after its payload.
	GracePeriod time.Duration
	// ReadyTimeout is the fallback before transmitting without a ready signal.
	ReadyTimeout   time.Duration
	MaxSourceBytes int
	DefaultSource  string
	Sandbox        sandbox.Config
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Origin:         "playground://host",
		GracePeriod:    200 * time.Millisecond,
		ReadyTimeout:   50 * time.Millisecond,
		MaxSourceBytes: 65536,
		DefaultSource:  snippets.DefaultSource(),
		Sandbox:        sandbox.DefaultConfig(),
	}
}

// Run is one run request in flight.
type Run struct {
	ID   string
	done chan struct{}
}

// Done is closed once the run's runner is destroyed and its listeners are
// detached; the output log is final at that point.
func (r *Run) Done() <-chan struct{} { return r.done }

// Controller is the host side of the playground: it owns the current source
// text, issues run requests, owns the accumulated output log and error
// banner, and notifies an observer on every change. A new run supersedes
// the previous one; envelopes from superseded runners are rejected by the
// run-ID check in the guard.
type Controller struct {
	config   Config
	guard    *protocol.Guard
	gate     *sandbox.Gate
	metrics  *monitoring.Metrics
	logger   *logging.Logger
	observer Observer

	mu       sync.RWMutex
	source   string
	log      []protocol.OutputEvent
	banner   string
	activeID string
}

// New creates a controller. The source starts at the built-in default sample.
func New(config Config) *Controller {
	if config.Origin == "" {
		config.Origin = "playground://host"
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = 200 * time.Millisecond
	}
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = 50 * time.Millisecond
	}
	if config.DefaultSource == "" {
		config.DefaultSource = snippets.DefaultSource()
	}

	return &Controller{
		config:   config,
		guard:    protocol.NewGuard(config.Origin),
		logger:   logging.Nop(),
		observer: NopObserver{},
		source:   config.DefaultSource,
	}
}

// WithGate bounds the controller's runs by a shared runner gate.
func (c *Controller) WithGate(gate *sandbox.Gate) *Controller {
	c.gate = gate
	return c
}

// WithMetrics adds metrics tracking to the controller.
func (c *Controller) WithMetrics(metrics *monitoring.Metrics) *Controller {
	c.metrics = metrics
	return c
}

// WithLogger adds logging to the controller.
func (c *Controller) WithLogger(logger *logging.Logger) *Controller {
	c.logger = logger
	return c
}

// WithObserver installs the rendering observer.
func (c *Controller) WithObserver(observer Observer) *Controller {
	c.observer = observer
	return c
}

// SetSource replaces the source text wholesale and clears the error banner.
// The output log is untouched.
func (c *Controller) SetSource(text string) {
	c.mu.Lock()
	c.source = text
	c.banner = ""
	c.mu.Unlock()

	c.observer.BannerChanged("")
	c.observer.StateChanged()
}

// Reset restores the built-in default sample and clears output and banner.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.source = c.config.DefaultSource
	c.log = nil
	c.banner = ""
	c.mu.Unlock()

	c.observer.BannerChanged("")
	c.observer.StateChanged()
}

// ClearOutput clears the output log and error banner only.
func (c *Controller) ClearOutput() {
	c.mu.Lock()
	c.log = nil
	c.banner = ""
	c.mu.Unlock()

	c.observer.BannerChanged("")
	c.observer.StateChanged()
}

// Source returns the current source text.
func (c *Controller) Source() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source
}

// Output returns a copy of the ordered output log.
func (c *Controller) Output() []protocol.OutputEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]protocol.OutputEvent, len(c.log))
	copy(out, c.log)
	return out
}

// Banner returns the current error banner, empty when none.
func (c *Controller) Banner() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.banner
}

// Run clears the output log and error state, snapshots the current source,
// and executes it in a fresh runner. It returns immediately; the run's Done
// channel closes at teardown. Setup faults surface on the error banner and
// leave the (already cleared) log alone.
func (c *Controller) Run() *Run {
	c.mu.Lock()
	runID := id.NewRunID().String()
	c.log = nil
	c.banner = ""
	c.activeID = runID
	source := c.source
	c.mu.Unlock()

	run := &Run{ID: runID, done: make(chan struct{})}
	c.observer.BannerChanged("")
	c.observer.RunStarted(runID)

	if c.config.MaxSourceBytes > 0 && len(source) > c.config.MaxSourceBytes {
		c.fail(run, fmt.Sprintf("source exceeds %d bytes", c.config.MaxSourceBytes))
		return run
	}

	if c.gate != nil {
		if err := c.gate.Acquire(); err != nil {
			c.fail(run, "cannot start runner: "+err.Error())
			return run
		}
	}

	sandboxCfg := c.config.Sandbox
	if c.metrics != nil {
		sandboxCfg.OnDrop = c.metrics.RecordDroppedMessage
	}
	runner, err := sandbox.NewRunner(runID, c.config.Origin, sandboxCfg)
	if err != nil {
		if c.gate != nil {
			c.gate.Release()
		}
		c.fail(run, "cannot start runner: "+err.Error())
		return run
	}

	if c.metrics != nil {
		c.metrics.RunnerStarted()
	}
	c.logger.Debug("Run started", zap.String("run_id", runID), zap.Int("source_bytes", len(source)))

	sub := subscribe(runner.Events())
	go c.collect(run, runner, sub, source)
	return run
}

// fail records a setup fault on the banner and finishes the run.
func (c *Controller) fail(run *Run, msg string) {
	c.setBanner(run.ID, msg)
	if c.metrics != nil {
		c.metrics.RecordRun("setup_fault", 0)
	}
	c.logger.Warn("Run setup fault", zap.String("run_id", run.ID), zap.String("reason", msg))
	c.observer.RunFinished(run.ID)
	close(run.done)
}

// collect owns one run's lifecycle: wait for ready (or the fallback timer),
// transmit the payload, append validated events in arrival order, and tear
// the runner down when the grace period fires. The subscription is cancelled
// before destruction commits so nothing dangles.
func (c *Controller) collect(run *Run, runner *sandbox.Runner, sub *subscription, source string) {
	start := time.Now()
	outcome := "completed"

	var graceTimer *time.Timer
	defer func() {
		sub.Cancel()
		runner.Destroy()
		if graceTimer != nil {
			graceTimer.Stop()
		}
		if c.gate != nil {
			c.gate.Release()
		}
		if c.metrics != nil {
			c.metrics.RunnerFinished()
			c.metrics.RecordRun(outcome, time.Since(start))
		}
		c.logger.Debug("Run finished",
			zap.String("run_id", run.ID),
			zap.String("outcome", outcome),
			zap.Duration("duration", time.Since(start)),
		)
		c.observer.RunFinished(run.ID)
		close(run.done)
	}()

	sent := false
	var graceC <-chan time.Time
	readyTimer := time.NewTimer(c.config.ReadyTimeout)
	defer readyTimer.Stop()

	transmit := func() bool {
		if sent {
			return true
		}
		sent = true
		if err := runner.Send(protocol.Run(run.ID, c.config.Origin, source)); err != nil {
			c.setBanner(run.ID, "cannot transmit source: "+err.Error())
			outcome = "setup_fault"
			return false
		}
		graceTimer = time.NewTimer(c.config.GracePeriod)
		graceC = graceTimer.C
		return true
	}

	for {
		select {
		case env, ok := <-sub.Events():
			if !ok {
				// Runner exited; every event it emitted has been drained.
				return
			}
			if !c.guard.Accept(env, c.currentRunID()) {
				if c.metrics != nil {
					c.metrics.RecordDroppedMessage()
				}
				continue
			}
			if env.Kind == protocol.KindReady {
				if !transmit() {
					return
				}
				continue
			}
			if ev, ok := c.guard.Event(env); ok {
				c.append(run.ID, ev)
			}
		case <-readyTimer.C:
			// Ready never arrived; transmit on the fallback timer.
			if !transmit() {
				return
			}
		case <-graceC:
			outcome = "timeout"
			return
		}
	}
}

// currentRunID reads the active run under lock for the guard check, so a
// superseded run's collector rejects its own runner's late envelopes.
func (c *Controller) currentRunID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeID
}

// append writes ev to the log unless the run has been superseded. The guard
// already checked the run ID, but a new Run can take the lock between that
// check and this one, so the ID is re-checked under the same lock as the
// write.
func (c *Controller) append(runID string, ev protocol.OutputEvent) {
	c.mu.Lock()
	if c.activeID != runID {
		c.mu.Unlock()
		return
	}
	c.log = append(c.log, ev)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordEvent(string(ev.Kind))
	}
	c.observer.OutputAppended(runID, ev)
}

// setBanner records msg unless the run has been superseded; latest wins.
func (c *Controller) setBanner(runID, msg string) {
	c.mu.Lock()
	if c.activeID != runID {
		c.mu.Unlock()
		return
	}
	c.banner = msg
	c.mu.Unlock()

	c.observer.BannerChanged(msg)
}
