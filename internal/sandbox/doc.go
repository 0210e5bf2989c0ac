/*
Package sandbox provides isolated JavaScript execution for the playground.

# Overview

Untrusted, user-authored script runs inside an ephemeral Runner backed by the
goja JavaScript engine. A runner lives for exactly one run request:

  - Created fresh per run, with an isolated global scope
  - Signals readiness, then accepts exactly one payload
  - Shadow console/alert primitives translate each call into a tagged envelope
  - Destroyed unconditionally after a fixed grace period

# Security Model

Sandboxed code cannot:
  - Reach the host page, filesystem, or network
  - Hold a synchronous handle back to the host (channel messages only)
  - Raise a native fault across the boundary (faults become error envelopes)
  - Recurse without bound (call stack cap) or outlive its grace window

Node-style globals (require, process, module, exports) are stripped and
timers are no-ops.

# Usage

	runner, err := sandbox.NewRunner(runID, origin, sandbox.DefaultConfig())
	if err != nil {
		return err
	}
	defer runner.Destroy()

	runner.Send(protocol.Run(runID, origin, source))
	for env := range runner.Events() {
		// validate and collect
	}

The Gate bounds how many runners may be live at once across all sessions.
*/
package sandbox
