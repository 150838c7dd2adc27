package workflow

// SessionLifecycle is the transition table of an editing session.
// Loading ends in Ready whether or not the initial listing succeeded; the
// error flag is tracked outside the lifecycle.
var SessionLifecycle = NewBuilder().
	Permit(StateLoading, TriggerLoadSucceeded, StateReady).
	Permit(StateLoading, TriggerLoadFailed, StateReady).
	Build()
