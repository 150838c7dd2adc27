package workflow

import (
	"context"
	"fmt"
)

// GuardFunc evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

type transition struct {
	toState State
	guard   GuardFunc
}

// Builder collects permitted transitions and freezes them into a Table
type Builder struct {
	transitions map[State]map[Trigger][]transition
}

// NewBuilder creates an empty transition builder
func NewBuilder() *Builder {
	return &Builder{transitions: make(map[State]map[Trigger][]transition)}
}

// Permit allows trigger to move from one state to another
func (b *Builder) Permit(from State, trigger Trigger, to State) *Builder {
	return b.PermitIf(from, trigger, to, nil)
}

// PermitIf allows trigger to move from one state to another when guard passes.
// Guards are tried in registration order.
func (b *Builder) PermitIf(from State, trigger Trigger, to State, guard GuardFunc) *Builder {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid source state: %s", from))
	}
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}

	byTrigger, ok := b.transitions[from]
	if !ok {
		byTrigger = make(map[Trigger][]transition)
		b.transitions[from] = byTrigger
	}
	byTrigger[trigger] = append(byTrigger[trigger], transition{toState: to, guard: guard})
	return b
}

// Build freezes the configured transitions. Later Permit calls do not affect the Table.
func (b *Builder) Build() *Table {
	frozen := make(map[State]map[Trigger][]transition, len(b.transitions))
	for state, byTrigger := range b.transitions {
		copied := make(map[Trigger][]transition, len(byTrigger))
		for trigger, ts := range byTrigger {
			copied[trigger] = append([]transition(nil), ts...)
		}
		frozen[state] = copied
	}
	return &Table{transitions: frozen}
}

// Table is an immutable transition table. Next is a pure function of its inputs.
type Table struct {
	transitions map[State]map[Trigger][]transition
}

// Next returns the state reached by firing trigger in state from
func (t *Table) Next(ctx context.Context, from State, trigger Trigger) (State, error) {
	candidates := t.transitions[from][trigger]
	if len(candidates) == 0 {
		return from, fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, from)
	}

	for _, c := range candidates {
		if c.guard == nil || c.guard(ctx) {
			return c.toState, nil
		}
	}
	return from, fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, from)
}

// Permitted returns the triggers configured for state
func (t *Table) Permitted(state State) []Trigger {
	triggers := make([]Trigger, 0, len(t.transitions[state]))
	for trigger := range t.transitions[state] {
		triggers = append(triggers, trigger)
	}
	return triggers
}
