package consultation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"post-discharge-assistant/internal/record"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `SELECT id, state, patient_name, candidates, confirmed, history, created_at, updated_at FROM sessions WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	var s Session
	var candidatesJSON, confirmedJSON, historyJSON []byte

	err := row.Scan(
		&s.ID,
		&s.State,
		&s.PatientName,
		&candidatesJSON,
		&confirmedJSON,
		&historyJSON,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if len(candidatesJSON) > 0 {
		if err := json.Unmarshal(candidatesJSON, &s.Candidates); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidates: %w", err)
		}
	}
	if len(confirmedJSON) > 0 && string(confirmedJSON) != "null" {
		var rec record.PatientRecord
		if err := json.Unmarshal(confirmedJSON, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal confirmed record: %w", err)
		}
		s.Confirmed = &rec
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &s.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history: %w", err)
		}
	}

	return &s, nil
}

func (r *postgresRepo) Save(ctx context.Context, s *Session) error {
	candidatesJSON, err := json.Marshal(s.Candidates)
	if err != nil {
		return err
	}
	confirmedJSON, err := json.Marshal(s.Confirmed)
	if err != nil {
		return err
	}
	historyJSON, err := json.Marshal(s.History)
	if err != nil {
		return err
	}

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.UpdatedAt = time.Now()

	query := `
		INSERT INTO sessions (id, state, patient_name, candidates, confirmed, history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			state = $2,
			patient_name = $3,
			candidates = $4,
			confirmed = $5,
			history = $6,
			updated_at = $8
	`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.State, s.PatientName, candidatesJSON, confirmedJSON, historyJSON, s.CreatedAt, s.UpdatedAt)
	return err
}

// memoryRepo keeps sessions in process memory. Used when no database is
// configured.
type memoryRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID][]byte
}

func NewMemoryRepository() Repository {
	return &memoryRepo{sessions: map[uuid.UUID][]byte{}}
}

// Sessions are stored serialised so callers never share slices with the
// repository.
func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	data, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *memoryRepo) Save(ctx context.Context, s *Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.UpdatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sessions[s.ID] = data
	r.mu.Unlock()
	return nil
}
