package playground

import "github.com/GriffinCanCode/Playground/backend/internal/protocol"

// Observer receives controller state changes for rendering. The controller
// invokes it without holding internal locks, from whichever goroutine caused
// the change.
type Observer interface {
	// RunStarted fires after a run cleared the log and became active.
	RunStarted(runID string)
	// OutputAppended fires once per validated output event, in log order.
	OutputAppended(runID string, ev protocol.OutputEvent)
	// BannerChanged fires when the error banner is set or cleared.
	BannerChanged(banner string)
	// StateChanged fires on source replacement, reset, and output clears.
	StateChanged()
	// RunFinished fires after the runner is destroyed and listeners detached.
	RunFinished(runID string)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) RunStarted(string)                           {}
func (NopObserver) OutputAppended(string, protocol.OutputEvent) {}
func (NopObserver) BannerChanged(string)                        {}
func (NopObserver) StateChanged()                               {}
func (NopObserver) RunFinished(string)                          {}
