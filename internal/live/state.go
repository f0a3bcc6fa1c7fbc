package live

// State is a phase of the decision loop.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateDeciding
	StateActing
	StateSleeping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateDeciding:
		return "deciding"
	case StateActing:
		return "acting"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Outcome classifies how a cycle ended.
type Outcome string

const (
	OutcomeHold     Outcome = "hold"
	OutcomeTraded   Outcome = "traded"
	OutcomeBlocked  Outcome = "blocked" // guard refusal or dry run
	OutcomeSkipped  Outcome = "skipped"
	OutcomeRejected Outcome = "rejected"
)
