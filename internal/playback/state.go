package playback

// State is a controller lifecycle state.
type State int

const (
	StateIdle State = iota
	StateAttached
	StatePlaying
	StateRecovering
	StateFailed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttached:
		return "attached"
	case StatePlaying:
		return "playing"
	case StateRecovering:
		return "recovering"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	}
	return "unknown"
}

// active reports whether an attempt is in flight and owns the engine.
func (s State) active() bool {
	return s == StateAttached || s == StatePlaying || s == StateRecovering
}

var transitions = map[State][]State{
	StateIdle:       {StateAttached, StateDisposed},
	StateAttached:   {StatePlaying, StateFailed, StateIdle, StateDisposed},
	StatePlaying:    {StateRecovering, StateFailed, StateIdle, StateDisposed},
	StateRecovering: {StatePlaying, StateFailed, StateIdle, StateDisposed},
	StateFailed:     {StateAttached, StateIdle, StateDisposed},
	StateDisposed:   nil,
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
