package meeting

import "fmt"

// State is a stage of the planning pipeline. Transitions only move forward.
type State string

const (
	StateParsing               State = "parsing"
	StateResolvingParticipants State = "resolving_participants"
	StateComputingAvailability State = "computing_availability"
	StateRankingVenues         State = "ranking_venues"
	StateReady                 State = "ready"
	StateFailed                State = "failed"
)

var stateOrder = map[State]int{
	StateParsing:               0,
	StateResolvingParticipants: 1,
	StateComputingAvailability: 2,
	StateRankingVenues:         3,
	StateReady:                 4,
	StateFailed:                5,
}

func (s State) Terminal() bool { return s == StateReady || s == StateFailed }

// CanAdvance reports whether moving from s to next is a legal forward step.
func (s State) CanAdvance(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	return stateOrder[next] > stateOrder[s]
}

// StageError records the stage in which a request failed.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Advance moves the request to next, refusing backward or post-terminal moves.
func (m *MeetingRequest) Advance(next State) error {
	if !m.State.CanAdvance(next) {
		return fmt.Errorf("illegal transition %s -> %s", m.State, next)
	}
	m.State = next
	return nil
}
