package devloop

// Phase is the lifecycle position of a session.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseWatching
	PhasePlanning
	PhaseBuilding
	PhaseDeploying
	PhaseReloading
	PhaseCancelling
)

// String returns the string representation of the Phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWatching:
		return "watching"
	case PhasePlanning:
		return "planning"
	case PhaseBuilding:
		return "building"
	case PhaseDeploying:
		return "deploying"
	case PhaseReloading:
		return "reloading"
	case PhaseCancelling:
		return "cancelling"
	default:
		return "unknown"
	}
}
