package consultation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"post-discharge-assistant/internal/composer"
	"post-discharge-assistant/internal/record"
)

type composerMock struct {
	answer    string
	err       error
	greetings int
	questions []string
	records   []record.PatientRecord
}

func (m *composerMock) Answer(ctx context.Context, req composer.Request) (composer.Answer, error) {
	m.questions = append(m.questions, req.Question)
	m.records = append(m.records, req.Record)
	if m.err != nil {
		return composer.Answer{}, m.err
	}
	return composer.Answer{Text: m.answer}, nil
}

func (m *composerMock) Greeting(ctx context.Context, rec record.PatientRecord) string {
	m.greetings++
	return "Hello " + rec.Name + "!"
}

type reportMock struct {
	rendered int
	sent     int
	sendErr  error
}

func (m *reportMock) Render(ctx context.Context, s Session) ([]byte, error) {
	m.rendered++
	return []byte("%PDF-1.4"), nil
}

func (m *reportMock) SendToCareTeam(ctx context.Context, s Session) error {
	m.sent++
	return m.sendErr
}

type brokenFinder struct{}

func (brokenFinder) Lookup(name string) (record.Result, error) {
	return record.Result{}, errors.New("malformed record file 003.json")
}

func recordStore(t *testing.T) *record.Store {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"001.json": `{"patient_name": "Jane Doe", "primary_diagnosis": "CKD Stage 3", "discharge_date": "2024-01-10"}`,
		"002.json": `{"patient_name": "Jane Doe", "primary_diagnosis": "CKD Stage 4", "discharge_date": "2024-02-20"}`,
		"003.json": `{"patient_name": "John Smith", "primary_diagnosis": "Acute Kidney Injury", "discharge_date": "2024-03-05"}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return record.NewStore(dir)
}

type fixture struct {
	svc      Service
	repo     Repository
	composer *composerMock
	reports  *reportMock
}

func newFixture(t *testing.T, finder RecordFinder) fixture {
	t.Helper()
	if finder == nil {
		finder = recordStore(t)
	}
	repo := NewMemoryRepository()
	cm := &composerMock{answer: "Limit potassium (Source: Reference Book).\n\n" + composer.Disclaimer}
	rm := &reportMock{}
	return fixture{
		svc:      NewService(repo, finder, cm, rm, zerolog.Nop()),
		repo:     repo,
		composer: cm,
		reports:  rm,
	}
}
