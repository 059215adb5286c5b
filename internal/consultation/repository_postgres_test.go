package consultation

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"post-discharge-assistant/internal/record"
)

var (
	selectSession = regexp.QuoteMeta(`SELECT id, state, patient_name, candidates, confirmed, history, created_at, updated_at FROM sessions WHERE id = $1`)
	sessionCols   = []string{"id", "state", "patient_name", "candidates", "confirmed", "history", "created_at", "updated_at"}
)

// jsonArg matches a JSONB argument by its decoded content.
type jsonArg struct {
	want string
}

func (a jsonArg) Match(v driver.Value) bool {
	b, ok := v.([]byte)
	if !ok {
		return false
	}
	var got, want any
	if json.Unmarshal(b, &got) != nil || json.Unmarshal([]byte(a.want), &want) != nil {
		return false
	}
	return assert.ObjectsAreEqual(want, got)
}

func TestPostgresRepositoryGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	created := time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(selectSession).WithArgs(id).WillReturnRows(
		sqlmock.NewRows(sessionCols).AddRow(
			id.String(), "resolved", "Jane Doe",
			[]byte(`null`),
			[]byte(`{"patient_name":"Jane Doe","primary_diagnosis":"CKD Stage 4","discharge_date":"2024-02-20","source":"002.json","fields":{"medications":["Calcitriol"]}}`),
			[]byte(`[{"role":"assistant","content":"Hello Jane!","timestamp":"2024-02-20T09:00:00Z"}]`),
			created, created,
		))

	s, err := NewRepository(db).GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
	assert.Equal(t, StateResolved, s.State)
	assert.Nil(t, s.Candidates)
	require.NotNil(t, s.Confirmed)
	assert.Equal(t, "002.json", s.Confirmed.Source)
	assert.Equal(t, []any{"Calcitriol"}, s.Confirmed.Fields["medications"])
	require.Len(t, s.History, 1)
	assert.Equal(t, RoleAssistant, s.History[0].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryDisambiguatingSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(selectSession).WithArgs(id).WillReturnRows(
		sqlmock.NewRows(sessionCols).AddRow(
			id.String(), "disambiguating", "Jane Doe",
			[]byte(`[{"patient_name":"Jane Doe","primary_diagnosis":"CKD Stage 3"},{"patient_name":"Jane Doe","primary_diagnosis":"CKD Stage 4"}]`),
			[]byte(`null`),
			[]byte(`[]`),
			time.Now(), time.Now(),
		))

	s, err := NewRepository(db).GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StateDisambiguating, s.State)
	assert.Nil(t, s.Confirmed)
	require.Len(t, s.Candidates, 2)
	assert.Equal(t, "CKD Stage 4", s.Candidates[1].Diagnosis)
	assert.ErrorIs(t, s.accepts(QuestionAsked{Question: "q"}), ErrChatUnavailable)
}

func TestPostgresRepositoryNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(selectSession).WithArgs(id).WillReturnRows(sqlmock.NewRows(sessionCols))

	_, err = NewRepository(db).GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPostgresRepositoryCorruptColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(selectSession).WithArgs(id).WillReturnRows(
		sqlmock.NewRows(sessionCols).AddRow(id.String(), "resolved", "Jane Doe", []byte(`null`), []byte(`{"patient_name":`), []byte(`[]`), time.Now(), time.Now()))

	_, err = NewRepository(db).GetByID(context.Background(), id)
	assert.ErrorContains(t, err, "confirmed record")
}

func TestPostgresRepositorySave(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSession()
	s.awaitClarification("Jane Doe", []record.PatientRecord{
		{Name: "Jane Doe", Diagnosis: "CKD Stage 3", DischargeDate: "2024-01-10", Source: "001.json"},
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs(
			s.ID.String(), "disambiguating", "Jane Doe",
			jsonArg{`[{"patient_name":"Jane Doe","primary_diagnosis":"CKD Stage 3","discharge_date":"2024-01-10","source":"001.json","fields":null}]`},
			jsonArg{`null`},
			jsonArg{`[]`},
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewRepository(db).Save(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositorySaveError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).WillReturnError(errors.New("connection reset"))

	err = NewRepository(db).Save(context.Background(), NewSession())
	assert.ErrorContains(t, err, "connection reset")
}
