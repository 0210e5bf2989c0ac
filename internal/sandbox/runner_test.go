package sandbox

import (
	"testing"
	"time"

	"github.com/GriffinCanCode/Playground/backend/internal/protocol"
)

const testOrigin = "playground://test"

// runScript drives a runner through its full lifecycle and returns every
// envelope it emitted after the ready signal.
func runScript(t *testing.T, source string, config Config) []protocol.Envelope {
	t.Helper()

	runner, err := NewRunner("run_test", testOrigin, config)
	if err != nil {
		t.Fatalf("Failed to create runner: %v", err)
	}
	defer runner.Destroy()
	if runner.ID() != "run_test" {
		t.Fatalf("Runner ID = %q", runner.ID())
	}

	// First envelope must be the ready signal, stamped with the runner's ID.
	select {
	case env := <-runner.Events():
		if env.Kind != protocol.KindReady {
			t.Fatalf("Expected ready envelope, got %s", env.Kind)
		}
		if env.RunID != runner.ID() {
			t.Fatalf("Ready envelope stamped %q, want %q", env.RunID, runner.ID())
		}
	case <-time.After(time.Second):
		t.Fatal("Runner never signaled ready")
	}

	if err := runner.Send(protocol.Run("run_test", testOrigin, source)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	timeout := time.After(5 * time.Second)
	var events []protocol.Envelope
	for {
		select {
		case env, ok := <-runner.Events():
			if !ok {
				return events
			}
			events = append(events, env)
		case <-timeout:
			runner.Destroy()
			t.Fatal("Runner did not finish")
		}
	}
}

func TestRunnerExecution(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []protocol.Envelope
	}{
		{
			name:   "no output",
			script: "var x = 42",
			want:   nil,
		},
		{
			name:   "single log",
			script: "console.log('hello')",
			want: []protocol.Envelope{
				{Kind: protocol.KindLog, Args: []string{"hello"}},
			},
		},
		{
			name:   "logs preserve call order",
			script: "console.log('a'); console.log('b'); console.log('c')",
			want: []protocol.Envelope{
				{Kind: protocol.KindLog, Args: []string{"a"}},
				{Kind: protocol.KindLog, Args: []string{"b"}},
				{Kind: protocol.KindLog, Args: []string{"c"}},
			},
		},
		{
			name:   "multiple arguments stringified",
			script: "console.log('x', 1, true)",
			want: []protocol.Envelope{
				{Kind: protocol.KindLog, Args: []string{"x", "1", "true"}},
			},
		},
		{
			name:   "alert",
			script: "alert('watch out')",
			want: []protocol.Envelope{
				{Kind: protocol.KindAlert, Args: []string{"watch out"}},
			},
		},
		{
			name:   "console error",
			script: "console.error('bad')",
			want: []protocol.Envelope{
				{Kind: protocol.KindError, Args: []string{"bad"}},
			},
		},
		{
			name:   "math still works",
			script: "console.log(Math.sqrt(16))",
			want: []protocol.Envelope{
				{Kind: protocol.KindLog, Args: []string{"4"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := runScript(t, tt.script, DefaultConfig())

			if len(events) != len(tt.want) {
				t.Fatalf("Got %d envelopes, want %d: %+v", len(events), len(tt.want), events)
			}
			for i, env := range events {
				if env.Tag != protocol.Tag {
					t.Errorf("Envelope %d missing tag", i)
				}
				if env.RunID != "run_test" {
					t.Errorf("Envelope %d has run ID %q", i, env.RunID)
				}
				if env.Origin != testOrigin {
					t.Errorf("Envelope %d has origin %q", i, env.Origin)
				}
				if env.Kind != tt.want[i].Kind {
					t.Errorf("Envelope %d kind = %s, want %s", i, env.Kind, tt.want[i].Kind)
				}
				if env.Text() != tt.want[i].Text() {
					t.Errorf("Envelope %d text = %q, want %q", i, env.Text(), tt.want[i].Text())
				}
			}
		})
	}
}

func TestRunnerFault(t *testing.T) {
	events := runScript(t, `
		console.log('before');
		throw new Error('boom');
		console.log('after');
	`, DefaultConfig())

	if len(events) != 2 {
		t.Fatalf("Expected 2 envelopes, got %d: %+v", len(events), events)
	}
	if events[0].Kind != protocol.KindLog || events[0].Text() != "before" {
		t.Errorf("First envelope = %+v", events[0])
	}
	if events[1].Kind != protocol.KindError {
		t.Errorf("Expected error envelope, got %s", events[1].Kind)
	}
	if events[1].Text() != "Error: boom" {
		t.Errorf("Fault text = %q, want %q", events[1].Text(), "Error: boom")
	}
}

func TestRunnerFaultCaught(t *testing.T) {
	events := runScript(t, `
		try {
			throw new Error('handled');
		} catch (e) {
			console.log('caught ' + e.message);
		}
		console.log('continued');
	`, DefaultConfig())

	if len(events) != 2 {
		t.Fatalf("Expected 2 envelopes, got %d", len(events))
	}
	if events[0].Text() != "caught handled" || events[1].Text() != "continued" {
		t.Errorf("Unexpected output: %+v", events)
	}
}

func TestRunnerSecurity(t *testing.T) {
	dangerousScripts := []struct {
		name   string
		script string
	}{
		{
			name:   "require blocked",
			script: "console.log(typeof require)",
		},
		{
			name:   "process blocked",
			script: "console.log(typeof process)",
		},
		{
			name:   "module blocked",
			script: "console.log(typeof module)",
		},
		{
			name:   "exports blocked",
			script: "console.log(typeof exports)",
		},
	}

	for _, tt := range dangerousScripts {
		t.Run(tt.name, func(t *testing.T) {
			events := runScript(t, tt.script, DefaultConfig())
			if len(events) != 1 || events[0].Text() != "undefined" {
				t.Errorf("Dangerous global reachable: %+v", events)
			}
		})
	}
}

func TestRunnerInfiniteLoop(t *testing.T) {
	runner, err := NewRunner("run_loop", testOrigin, DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runner: %v", err)
	}

	<-runner.Events() // ready
	if err := runner.Send(protocol.Run("run_loop", testOrigin, "while(true){}")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Simulates the grace period firing.
	time.Sleep(50 * time.Millisecond)
	runner.Destroy()

	select {
	case <-runner.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Interrupt did not stop the loop")
	}

	// The interrupt must not surface as an error envelope.
	for env := range runner.Events() {
		t.Errorf("Unexpected envelope after teardown: %+v", env)
	}
}

func TestRunnerSinglePayload(t *testing.T) {
	runner, err := NewRunner("run_once", testOrigin, DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runner: %v", err)
	}
	defer runner.Destroy()

	<-runner.Events()

	if err := runner.Send(protocol.Run("run_once", testOrigin, "1+1")); err != nil {
		t.Fatalf("First send failed: %v", err)
	}
	err = runner.Send(protocol.Run("run_once", testOrigin, "2+2"))
	if err == nil {
		t.Error("Second payload accepted")
	}
}

func TestRunnerSendAfterDestroy(t *testing.T) {
	runner, err := NewRunner("run_dead", testOrigin, DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runner: %v", err)
	}
	runner.Destroy()
	<-runner.Done()

	if err := runner.Send(protocol.Run("run_dead", testOrigin, "1")); err != ErrDestroyed {
		t.Errorf("Send after destroy = %v, want ErrDestroyed", err)
	}
}

func TestRunnerIgnoresForeignPayload(t *testing.T) {
	runner, err := NewRunner("run_foreign", testOrigin, DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create runner: %v", err)
	}
	defer runner.Destroy()

	<-runner.Events()

	// Untagged payloads are dropped; the runner exits without executing.
	if err := runner.Send(protocol.Envelope{Kind: protocol.KindRun, Payload: "console.log('x')"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	for env := range runner.Events() {
		t.Errorf("Foreign payload executed: %+v", env)
	}
}

func TestGateAcquireRelease(t *testing.T) {
	gate := NewGate(2)
	defer gate.Close()

	if err := gate.Acquire(); err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	if err := gate.Acquire(); err != nil {
		t.Fatalf("Second acquire failed: %v", err)
	}
	if err := gate.Acquire(); err != ErrSaturated {
		t.Errorf("Saturated acquire = %v, want ErrSaturated", err)
	}

	gate.Release()
	if err := gate.Acquire(); err != nil {
		t.Errorf("Acquire after release failed: %v", err)
	}
}

func TestGateClosed(t *testing.T) {
	gate := NewGate(1)
	gate.Close()

	if err := gate.Acquire(); err != ErrGateClosed {
		t.Errorf("Acquire on closed gate = %v, want ErrGateClosed", err)
	}
}
