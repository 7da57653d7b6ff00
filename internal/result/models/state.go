package models

// State is the lifecycle state of a counting circle result. States are
// ordered; every state from AuditedTentatively on counts as done.
type State int

const (
	StateInitial State = iota
	StateSubmissionOngoing
	StateReadyForCorrection
	StateSubmissionDone
	StateCorrectionDone
	StateAuditedTentatively
	StatePlausibilised
)

var stateNames = map[State]string{
	StateInitial:            "initial",
	StateSubmissionOngoing:  "submission_ongoing",
	StateReadyForCorrection: "ready_for_correction",
	StateSubmissionDone:     "submission_done",
	StateCorrectionDone:     "correction_done",
	StateAuditedTentatively: "audited_tentatively",
	StatePlausibilised:      "plausibilised",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsDone reports whether the result contributes to the end result.
func (s State) IsDone() bool {
	return s >= StateAuditedTentatively
}

// IsSubmissionDone reports whether the submission milestone was reached,
// including after a finished correction.
func (s State) IsSubmissionDone() bool {
	return s == StateSubmissionDone || s == StateCorrectionDone
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for state, name := range stateNames {
		if name == string(b) {
			*s = state
			return nil
		}
	}
	*s = StateInitial
	return nil
}
