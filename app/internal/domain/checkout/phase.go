package checkout

type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseValidating Phase = "VALIDATING"
	PhaseSubmitting Phase = "SUBMITTING"
	PhaseSuccess    Phase = "SUCCESS"
	PhaseFailed     Phase = "FAILED"
)

var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseValidating},
	PhaseValidating: {PhaseIdle, PhaseSubmitting},
	PhaseSubmitting: {PhaseSuccess, PhaseFailed},
	PhaseFailed:     {PhaseIdle},
	PhaseSuccess:    nil,
}

func (p Phase) CanTransitionTo(next Phase) bool {
	for _, allowed := range phaseTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition moves s to next or fails with ErrInvalidTransition.
func (s State) Transition(next Phase) (State, error) {
	if !s.Phase.CanTransitionTo(next) {
		if s.Phase == PhaseSubmitting || s.Phase == PhaseValidating {
			return s, ErrSubmissionInProgress
		}
		return s, ErrInvalidTransition
	}
	s.Phase = next
	return s, nil
}

// Editable reports whether form data may change in the current phase.
func (p Phase) Editable() bool {
	return p == PhaseIdle
}
