package timer

type State uint8

const (
	Idle State = iota
	Running
	Paused
	Overtime
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Overtime:
		return "overtime"
	default:
		return "unknown"
	}
}

// active reports whether a run interval is open.
func (s State) active() bool {
	return s == Running || s == Overtime
}

// Snapshot is a consistent read of the engine's derived values.
type Snapshot struct {
	State           State
	ElapsedSeconds  int
	TargetSeconds   int
	OvertimeSeconds int
	IsOvertime      bool
	Display         string
}

// Progress is elapsed over target in [0,1].
func (s Snapshot) Progress() float64 {
	if s.TargetSeconds <= 0 || s.State == Idle {
		return 0
	}
	return min(1, float64(s.ElapsedSeconds)/float64(s.TargetSeconds))
}
