package consultation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"post-discharge-assistant/internal/record"
)

func TestMemoryRepositoryRoundTrip(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	s := NewSession()
	s.confirm(record.PatientRecord{
		Name:      "John Smith",
		Diagnosis: "Acute Kidney Injury",
		Source:    "003.json",
		Fields:    map[string]any{"medications": []any{"Lisinopril"}},
	})
	s.appendMessage(RoleAssistant, "Hello John Smith!")
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateResolved, got.State)
	assert.Equal(t, "003.json", got.Confirmed.Source)
	assert.Equal(t, []any{"Lisinopril"}, got.Confirmed.Fields["medications"])
	require.Len(t, got.History, 1)

	got.appendMessage(RoleUser, "not saved")
	again, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, again.History, 1)
}

func TestMemoryRepositoryUnknownSession(t *testing.T) {
	_, err := NewMemoryRepository().GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
