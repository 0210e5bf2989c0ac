package sandbox

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/Playground/backend/internal/protocol"
)

var (
	// ErrDestroyed is returned when sending to a runner that has been torn down.
	ErrDestroyed = errors.New("runner destroyed")
	// ErrPayloadTaken is returned on a second payload; a runner executes exactly one.
	ErrPayloadTaken = errors.New("runner already received a payload")
)

// Runner is an ephemeral, isolated execution context for one run request.
// It owns a fresh goja VM with no ambient access to host state; the only
// communication paths are one inbound payload channel and one outbound
// event channel. Faults inside the VM never cross the boundary as Go
// errors, only as error-kind envelopes.
type Runner struct {
	id     string
	origin string
	config Config

	vm   *goja.Runtime
	in   chan protocol.Envelope
	out  chan protocol.Envelope
	done chan struct{}

	destroyed   chan struct{}
	destroyOnce sync.Once
	payload     atomic.Bool
}

// NewRunner creates a runner for a single run. The runner signals readiness
// on its event channel, then waits for exactly one run envelope.
func NewRunner(id, origin string, config Config) (*Runner, error) {
	vm := goja.New()
	if config.MaxCallStack > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStack)
	}

	buffer := config.EventBuffer
	if buffer <= 0 {
		buffer = 256
	}

	r := &Runner{
		id:        id,
		origin:    origin,
		config:    config,
		vm:        vm,
		in:        make(chan protocol.Envelope, 1),
		out:       make(chan protocol.Envelope, buffer),
		done:      make(chan struct{}),
		destroyed: make(chan struct{}),
	}

	if err := r.lockdown(); err != nil {
		return nil, err
	}

	go r.loop()
	return r, nil
}

// ID returns the run identifier stamped on every envelope this runner emits.
func (r *Runner) ID() string { return r.id }

// Events is the runner's outbound channel. It is closed when the runner
// exits; nothing is ever emitted after the close.
func (r *Runner) Events() <-chan protocol.Envelope { return r.out }

// Done is closed when the runner's goroutine has exited.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Send delivers the run payload. A runner accepts exactly one payload;
// later sends and sends after destruction fail.
func (r *Runner) Send(env protocol.Envelope) error {
	select {
	case <-r.destroyed:
		return ErrDestroyed
	default:
	}
	if !r.payload.CompareAndSwap(false, true) {
		return ErrPayloadTaken
	}
	// The inbound channel has capacity 1, so the first payload never blocks.
	select {
	case r.in <- env:
		return nil
	case <-r.destroyed:
		return ErrDestroyed
	}
}

// Destroy tears the runner down: the VM is interrupted even mid-execution
// and the event channel closes once the run goroutine unwinds. Safe to call
// more than once and from any goroutine.
func (r *Runner) Destroy() {
	r.destroyOnce.Do(func() {
		close(r.destroyed)
		r.vm.Interrupt("runner destroyed")
	})
}

// loop is the runner's single goroutine: signal ready, wait for the one
// payload, execute, exit. It is the only sender on the event channel.
func (r *Runner) loop() {
	defer close(r.done)
	defer close(r.out)

	r.emit(protocol.KindReady)

	var env protocol.Envelope
	select {
	case env = <-r.in:
	case <-r.destroyed:
		return
	}

	if env.Tag != protocol.Tag || env.Kind != protocol.KindRun {
		return
	}
	r.execute(env.Payload)
}

// execute runs the payload inside the guarded region. A thrown fault
// becomes exactly one error-kind envelope carrying the fault's string
// representation; execution stops at the throwing statement. Interrupts
// from Destroy produce no output at all.
func (r *Runner) execute(source string) {
	_, err := r.vm.RunString(source)
	if err == nil {
		return
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return
	}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		r.emit(protocol.KindError, exception.Value().String())
		return
	}
	r.emit(protocol.KindError, err.Error())
}

// lockdown strips ambient capabilities and installs the shadow primitives
// that translate console/alert calls into outbound envelopes.
func (r *Runner) lockdown() error {
	// Remove dangerous globals
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	console := r.vm.NewObject()
	console.Set("log", r.makeEmitFunc(protocol.KindLog))
	console.Set("info", r.makeEmitFunc(protocol.KindLog))
	console.Set("debug", r.makeEmitFunc(protocol.KindLog))
	console.Set("warn", r.makeEmitFunc(protocol.KindError))
	console.Set("error", r.makeEmitFunc(protocol.KindError))
	r.vm.Set("console", console)

	r.vm.Set("alert", r.makeEmitFunc(protocol.KindAlert))

	// Timers are no-ops: the runner dies at the grace period anyway and
	// nothing may outlive it.
	r.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	r.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	return nil
}

// makeEmitFunc creates a shadow logging primitive
func (r *Runner) makeEmitFunc(kind protocol.Kind) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.String()
		}
		r.emit(kind, args...)
		return goja.Undefined()
	}
}

// emit queues an outbound envelope. Events after destruction are
// unobservable; a full buffer drops rather than blocking the VM.
func (r *Runner) emit(kind protocol.Kind, args ...string) {
	select {
	case <-r.destroyed:
		return
	default:
	}

	env := protocol.Envelope{
		Tag:    protocol.Tag,
		Kind:   kind,
		RunID:  r.id,
		Origin: r.origin,
		Args:   args,
	}

	select {
	case r.out <- env:
	default:
		if r.config.OnDrop != nil {
			r.config.OnDrop()
		}
	}
}
