package consultation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"post-discharge-assistant/internal/composer"
	"post-discharge-assistant/internal/metrics"
	"post-discharge-assistant/internal/record"
)

// RecordFinder looks patients up by full name.
type RecordFinder interface {
	Lookup(name string) (record.Result, error)
}

// AnswerComposer produces the assistant's side of the conversation.
type AnswerComposer interface {
	Answer(ctx context.Context, req composer.Request) (composer.Answer, error)
	Greeting(ctx context.Context, rec record.PatientRecord) string
}

// ReportService renders and delivers a session transcript.
type ReportService interface {
	Render(ctx context.Context, s Session) ([]byte, error)
	SendToCareTeam(ctx context.Context, s Session) error
}

// Status tells the caller what the last action achieved.
type Status string

const (
	StatusResolved  Status = "resolved"
	StatusNotFound  Status = "not_found"
	StatusAmbiguous Status = "ambiguous"
	StatusNoMatch   Status = "no_match"
	StatusAnswered  Status = "answered"
)

const (
	msgAmbiguousDetail = "Your input matches multiple reports. Please be more specific (e.g., provide the full diagnosis or exact date)."
	msgNoDetailMatch   = "Could not find a matching report based on the details provided. Please check the information and try again."
)

// Reply is the outcome of one event.
type Reply struct {
	State      State                  `json:"state"`
	Status     Status                 `json:"status"`
	Message    string                 `json:"message"`
	Candidates []record.PatientRecord `json:"candidates,omitempty"`
	Record     *record.PatientRecord  `json:"record,omitempty"`
}

type Service interface {
	CreateSession(ctx context.Context) (*Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	Handle(ctx context.Context, id uuid.UUID, ev Event) (Reply, error)
	RenderReport(ctx context.Context, id uuid.UUID) ([]byte, error)
	SendReport(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     Repository
	records  RecordFinder
	composer AnswerComposer
	reports  ReportService
	log      zerolog.Logger

	locks *sessionLocks
}

func NewService(repo Repository, records RecordFinder, composer AnswerComposer, reports ReportService, log zerolog.Logger) Service {
	return &service{
		repo:     repo,
		records:  records,
		composer: composer,
		reports:  reports,
		log:      log,
		locks:    newSessionLocks(),
	}
}

func (s *service) CreateSession(ctx context.Context) (*Session, error) {
	session := NewSession()
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}
	s.log.Info().Str("session", session.ID.String()).Msg("New session started")
	return session, nil
}

func (s *service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.repo.GetByID(ctx, id)
}

// Handle runs one event to completion. Events on the same session are
// serialised.
func (s *service) Handle(ctx context.Context, id uuid.UUID, ev Event) (Reply, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return Reply{}, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	// Reload under the lock; the first read only proves the session exists.
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Reply{}, err
	}
	if err := session.accepts(ev); err != nil {
		return Reply{State: session.State}, err
	}

	var reply Reply
	switch e := ev.(type) {
	case SearchRequested:
		reply, err = s.search(ctx, session, e.Name)
	case ClarificationProvided:
		reply, err = s.clarify(ctx, session, e.Detail)
	case QuestionAsked:
		reply, err = s.ask(ctx, session, e.Question)
	}
	if err != nil {
		return Reply{State: session.State}, err
	}

	session.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, session); err != nil {
		return Reply{}, fmt.Errorf("save session: %w", err)
	}
	reply.State = session.State
	return reply, nil
}

func (s *service) search(ctx context.Context, session *Session, name string) (Reply, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Reply{}, fmt.Errorf("%w: please enter your name", ErrEmptyInput)
	}
	log := s.log.With().Str("session", session.ID.String()).Str("patient", name).Logger()
	log.Info().Msg("Searching for patient")

	res, err := s.records.Lookup(name)
	if err != nil {
		metrics.RecordLookup("error")
		log.Error().Err(err).Msg("Patient lookup failed")
		return Reply{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	metrics.RecordLookup(res.Outcome.String())

	switch res.Outcome {
	case record.Resolved:
		log.Info().Msg("Successfully found report for patient")
		return s.resolve(ctx, session, *res.Record), nil
	case record.Ambiguous:
		log.Warn().Int("candidates", len(res.Candidates)).Msg("Multiple reports found. Awaiting clarification")
		session.awaitClarification(name, res.Candidates)
		return Reply{
			Status:     StatusAmbiguous,
			Message:    record.ClarificationMessage(name, res.Candidates),
			Candidates: res.Candidates,
		}, nil
	default:
		log.Warn().Msg("No patient report found")
		session.PatientName = name
		return Reply{
			Status:  StatusNotFound,
			Message: fmt.Sprintf("No patient report found for the name %s.", name),
		}, nil
	}
}

func (s *service) clarify(ctx context.Context, session *Session, detail string) (Reply, error) {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return Reply{}, fmt.Errorf("%w: please enter the discharge date or diagnosis", ErrEmptyInput)
	}
	log := s.log.With().Str("session", session.ID.String()).Str("patient", session.PatientName).Str("detail", detail).Logger()

	res := record.Resolve(session.Candidates, detail)
	metrics.RecordDisambiguation(res.Outcome.String())

	switch res.Outcome {
	case record.Resolved:
		log.Info().Msg("Clarification successful")
		return s.resolve(ctx, session, *res.Record), nil
	case record.Ambiguous:
		log.Warn().Msg("Ambiguous clarification provided")
		return Reply{Status: StatusAmbiguous, Message: msgAmbiguousDetail, Candidates: session.Candidates}, nil
	default:
		log.Warn().Msg("Clarification failed")
		return Reply{Status: StatusNoMatch, Message: msgNoDetailMatch, Candidates: session.Candidates}, nil
	}
}

func (s *service) resolve(ctx context.Context, session *Session, rec record.PatientRecord) Reply {
	session.confirm(rec)
	greeting := s.composer.Greeting(ctx, rec)
	session.appendMessage(RoleAssistant, greeting)
	return Reply{Status: StatusResolved, Message: greeting, Record: session.Confirmed}
}

// ask answers one clinical question. A failed answer leaves the history
// untouched.
func (s *service) ask(ctx context.Context, session *Session, question string) (Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{}, fmt.Errorf("%w: please enter a question", ErrEmptyInput)
	}
	s.log.Info().Str("session", session.ID.String()).Str("patient", session.Confirmed.Name).
		Str("question", question).Msg("Patient asked new clinical question")

	answer, err := s.composer.Answer(ctx, composer.Request{Record: *session.Confirmed, Question: question})
	if err != nil {
		s.log.Error().Err(err).Str("session", session.ID.String()).Msg("Clinical answer failed")
		return Reply{}, err
	}

	session.appendMessage(RoleUser, question)
	session.appendMessage(RoleAssistant, answer.Text)
	return Reply{Status: StatusAnswered, Message: answer.Text}, nil
}

func (s *service) RenderReport(ctx context.Context, id uuid.UUID) ([]byte, error) {
	session, err := s.confirmedSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.reports.Render(ctx, *session)
}

func (s *service) SendReport(ctx context.Context, id uuid.UUID) error {
	session, err := s.confirmedSession(ctx, id)
	if err != nil {
		return err
	}
	if err := s.reports.SendToCareTeam(ctx, *session); err != nil {
		s.log.Error().Err(err).Str("session", id.String()).Msg("Failed to send report")
		return err
	}
	s.log.Info().Str("session", id.String()).Msg("Report sent to care team")
	return nil
}

func (s *service) confirmedSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.State != StateResolved || session.Confirmed == nil {
		return nil, fmt.Errorf("%w: report needs a confirmed record", ErrInvalidTransition)
	}
	return session, nil
}
