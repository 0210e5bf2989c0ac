package protocol

// Guard validates inbound envelopes before the host controller trusts them.
// Validation failures are silent discards: noise suppression, not faults.
type Guard struct {
	origin string
}

// NewGuard creates a guard bound to the host's own origin.
func NewGuard(origin string) *Guard {
	return &Guard{origin: origin}
}

// Accept reports whether env may be trusted for the run identified by runID.
// An envelope passes only if its origin matches the host origin, it carries
// the playground tag, its kind is in the enumerated runner->host set, and it
// is stamped with the currently active run's ID. Everything else is dropped.
func (g *Guard) Accept(env Envelope, runID string) bool {
	if env.Origin != g.origin {
		return false
	}
	if env.Tag != Tag {
		return false
	}
	switch env.Kind {
	case KindReady, KindLog, KindError, KindAlert:
	default:
		return false
	}
	return runID != "" && env.RunID == runID
}

// Event converts an accepted runner->host envelope into an OutputEvent.
// Ready envelopes carry no output and report false.
func (g *Guard) Event(env Envelope) (OutputEvent, bool) {
	var kind EventKind
	switch env.Kind {
	case KindLog:
		kind = EventLog
	case KindError:
		kind = EventError
	case KindAlert:
		kind = EventAlert
	default:
		return OutputEvent{}, false
	}
	return OutputEvent{Kind: kind, Text: env.Text()}, true
}
