package monitor

// State is the scheduler's position in its pass loop.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateDeciding
	StateEnforcing
	StateSleeping
	StateStopping
	StateTerminated
)

var stateStrings = map[State]string{
	StateIdle:       "idle",
	StateFetching:   "fetching",
	StateDeciding:   "deciding",
	StateEnforcing:  "enforcing",
	StateSleeping:   "sleeping",
	StateStopping:   "stopping",
	StateTerminated: "terminated",
}

// String returns the State in human-readable form.
func (s State) String() string {
	if str, ok := stateStrings[s]; ok {
		return str
	}
	return "unknown"
}
