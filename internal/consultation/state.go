package consultation

import (
	"errors"
	"fmt"

	"post-discharge-assistant/internal/record"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("action not allowed in the current step")
	ErrChatUnavailable   = errors.New("questions can only be asked once a report is confirmed")
	ErrEmptyInput        = errors.New("input is empty")
	ErrLookupFailed      = errors.New("unexpected error while searching for the patient")
)

// Event is a discrete user action that drives the session state machine.
type Event interface {
	name() string
}

type SearchRequested struct {
	Name string
}

type ClarificationProvided struct {
	Detail string
}

type QuestionAsked struct {
	Question string
}

func (SearchRequested) name() string       { return "search" }
func (ClarificationProvided) name() string { return "clarify" }
func (QuestionAsked) name() string         { return "question" }

// accepts reports whether ev is valid in the session's current state.
func (s *Session) accepts(ev Event) error {
	switch ev.(type) {
	case SearchRequested:
		if s.State == StateSearching {
			return nil
		}
	case ClarificationProvided:
		if s.State == StateDisambiguating {
			return nil
		}
	case QuestionAsked:
		if s.State == StateResolved && s.Confirmed != nil {
			return nil
		}
		return ErrChatUnavailable
	default:
		return fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
	}
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, ev.name(), s.State)
}

// awaitClarification moves searching -> disambiguating.
func (s *Session) awaitClarification(name string, candidates []record.PatientRecord) {
	s.PatientName = name
	s.Candidates = candidates
	s.State = StateDisambiguating
}

// confirm is the only way into the resolved state.
func (s *Session) confirm(rec record.PatientRecord) {
	s.Confirmed = &rec
	s.Candidates = nil
	s.State = StateResolved
}
