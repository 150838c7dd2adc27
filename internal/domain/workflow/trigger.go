package workflow

// Trigger represents an outcome that moves a session between states
type Trigger string

const (
	TriggerLoadSucceeded Trigger = "LOAD_SUCCEEDED"
	TriggerLoadFailed    Trigger = "LOAD_FAILED"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
