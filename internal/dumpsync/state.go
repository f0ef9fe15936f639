package dumpsync

import "github.com/usher2/u2dumpsync/internal/logger"

// State - step of a sync cycle.
type State string

// Cycle states.
const (
	StateIdle            State = "Idle"
	StateCheckingVersion State = "CheckingVersion"
	StateCheckingDump    State = "CheckingDump"
	StateNoChange        State = "NoChange"
	StateFetching        State = "Fetching"
	StateParsing         State = "Parsing"
	StateReconciling     State = "Reconciling"
	StateCommitted       State = "Committed"
	StateError           State = "Error"
)

func (s State) String() string { return string(s) }

func (s *Syncer) transition(to State) {
	logger.Info.Printf("State: %s -> %s\n", s.state, to)

	s.state = to
}
