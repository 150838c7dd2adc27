package workflow

// State represents a phase of an editing session
type State string

const (
	StateLoading State = "LOADING"
	StateReady   State = "READY"
)

var validStates = map[State]bool{
	StateLoading: true,
	StateReady:   true,
}

var terminalStates = map[State]bool{
	StateReady: true,
}

// IsTerminal returns true if no further transitions leave the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known session state
func (s State) IsValid() bool {
	return validStates[s]
}
