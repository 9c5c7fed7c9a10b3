package trainer

// State is a state of the epoch loop.
type State int

const (
	Resuming State = iota
	Running
	Checkpointing
	Terminated
)

func (s State) String() string {
	switch s {
	case Resuming:
		return "resuming"
	case Running:
		return "running"
	case Checkpointing:
		return "checkpointing"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}
