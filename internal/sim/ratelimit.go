package sim

// Sliding-window rate limiting per player+action, measured in ticks.
// The limiter lives on the world context so multiple world instances
// never share state.

// ActionKind names a rate-limited action class.
type ActionKind string

const (
	ActionInput    ActionKind = "input"
	ActionBuild    ActionKind = "build"
	ActionInteract ActionKind = "interact"
	ActionFire     ActionKind = "fire"
)

type windowKey struct {
	player string
	action ActionKind
}

type rateWindow struct {
	start uint64
	count int
}

// ActionLimiter tracks per player+action submission windows.
type ActionLimiter struct {
	windows map[windowKey]*rateWindow
}

// NewActionLimiter creates an empty limiter.
func NewActionLimiter() *ActionLimiter {
	return &ActionLimiter{windows: make(map[windowKey]*rateWindow)}
}

// Allow consumes one slot in the player's window for the action.
// The window restarts once windowTicks have elapsed since it opened.
func (l *ActionLimiter) Allow(player string, action ActionKind, tick, windowTicks uint64, max int) bool {
	if max <= 0 || windowTicks == 0 {
		return true
	}
	key := windowKey{player: player, action: action}
	w, ok := l.windows[key]
	if !ok {
		w = &rateWindow{start: tick}
		l.windows[key] = w
	}
	if tick-w.start >= windowTicks {
		w.start = tick
		w.count = 0
	}
	if w.count >= max {
		return false
	}
	w.count++
	return true
}

// Forget drops all windows for a player. Called on final disconnect so
// the map does not grow without bound.
func (l *ActionLimiter) Forget(player string) {
	for key := range l.windows {
		if key.player == player {
			delete(l.windows, key)
		}
	}
}
