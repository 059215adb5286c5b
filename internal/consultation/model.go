package consultation

import (
	"time"

	"github.com/google/uuid"

	"post-discharge-assistant/internal/record"
)

// State is the step of the conversation the patient is on.
type State string

const (
	StateSearching      State = "searching"
	StateDisambiguating State = "disambiguating"
	StateResolved       State = "resolved"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the aggregate root of one patient conversation.
type Session struct {
	ID    uuid.UUID `json:"id" db:"id"`
	State State     `json:"state" db:"state"`

	// Receptionist stage
	PatientName string                 `json:"patient_name,omitempty" db:"patient_name"`
	Candidates  []record.PatientRecord `json:"candidates,omitempty" db:"candidates"`

	// Set only by confirm; never cleared within a session.
	Confirmed *record.PatientRecord `json:"confirmed,omitempty" db:"confirmed"`

	History []Message `json:"history" db:"history"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		State:     StateSearching,
		History:   []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) appendMessage(role, content string) {
	s.History = append(s.History, Message{Role: role, Content: content, Timestamp: time.Now()})
}
