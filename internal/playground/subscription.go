package playground

import (
	"sync"

	"github.com/GriffinCanCode/Playground/backend/internal/protocol"
)

// subscription scopes a message listener to a single run. Each run owns one;
// cancellation is deterministic: once Cancel returns, the events channel
// closes and nothing the runner emits afterwards is observable.
type subscription struct {
	src  <-chan protocol.Envelope
	out  chan protocol.Envelope
	stop chan struct{}
	once sync.Once
}

func subscribe(src <-chan protocol.Envelope) *subscription {
	s := &subscription{
		src:  src,
		out:  make(chan protocol.Envelope),
		stop: make(chan struct{}),
	}
	go s.forward()
	return s
}

func (s *subscription) forward() {
	defer close(s.out)
	for {
		select {
		case <-s.stop:
			return
		case env, ok := <-s.src:
			if !ok {
				return
			}
			select {
			case s.out <- env:
			case <-s.stop:
				return
			}
		}
	}
}

// Events delivers the runner's envelopes until cancellation or runner exit.
func (s *subscription) Events() <-chan protocol.Envelope { return s.out }

// Cancel detaches the listener. Safe to call repeatedly.
func (s *subscription) Cancel() {
	s.once.Do(func() { close(s.stop) })
}
