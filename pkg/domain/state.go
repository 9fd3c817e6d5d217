package domain

// EngineStatus is the lifecycle state of an engine instance.
type EngineStatus string

const (
	StatusIdle    EngineStatus = "idle"    // Created, not subscribed to graph events
	StatusRunning EngineStatus = "running" // Subscribed; reacts to changes
	StatusPaused  EngineStatus = "paused"  // Subscribed; recalculation deferred
	StatusStopped EngineStatus = "stopped" // Unsubscribed until started again
)

// CanTransition reports whether a lifecycle operation may move from s to next.
func (s EngineStatus) CanTransition(next EngineStatus) bool {
	switch next {
	case StatusRunning:
		return s == StatusIdle || s == StatusStopped || s == StatusPaused
	case StatusPaused:
		return s == StatusRunning
	case StatusStopped:
		return s == StatusIdle || s == StatusRunning || s == StatusPaused
	}
	return false
}
