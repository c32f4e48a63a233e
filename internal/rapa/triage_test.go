package rapa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/collect-bot/internal/models"
	"github.com/xaenox/collect-bot/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	return NewService(store, NewClassifier(DefaultAreaRules()), zap.NewNop()), store
}

func TestIngestProposesAutomatically(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	note, err := svc.Ingest(ctx, IngestRequest{
		UserID:  42,
		ChatID:  1,
		Content: "Need to call mom #family",
		Source:  "Telegram",
	})
	require.NoError(t, err)

	assert.Equal(t, "Need to call mom", note.Content)
	assert.Equal(t, []string{"family"}, note.Tags)
	assert.Equal(t, models.GTDTask, note.GTDType)
	assert.Equal(t, models.ParaProject, note.ParaType)
	assert.Equal(t, models.StageAssign, note.Stage)
	require.NotNil(t, note.AreaID)
	require.NotNil(t, note.AssignProposedAt)

	area, err := store.GetAreaBySlug(ctx, 42, "family")
	require.NoError(t, err)
	assert.Equal(t, area.ID, *note.AreaID)
}

func TestIngestRejectsEmptyContent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, IngestRequest{UserID: 42, Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyContent)

	notes, err := store.ListNotesSince(ctx, 42, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestProposeIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	note, err := svc.Ingest(ctx, IngestRequest{UserID: 42, Content: "need to check my sleep", Source: "Telegram"})
	require.NoError(t, err)

	first, err := store.GetNote(ctx, note.ID, 42)
	require.NoError(t, err)

	_, err = svc.Propose(ctx, note.ID, 42, "need to check my sleep")
	require.NoError(t, err)

	second, err := store.GetNote(ctx, note.ID, 42)
	require.NoError(t, err)

	assert.Equal(t, first.GTDType, second.GTDType)
	assert.Equal(t, first.ParaType, second.ParaType)
	assert.Equal(t, first.AreaID, second.AreaID)
	assert.Equal(t, first.Stage, second.Stage)

	notes, err := store.ListNotesSince(ctx, 42, time.Time{})
	require.NoError(t, err)
	assert.Len(t, notes, 1, "re-proposing must not create a second note")
}

func TestProposeUnknownNote(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Propose(context.Background(), 999, 42, "whatever")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAssignGuardsOwnership(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	note, err := svc.Ingest(ctx, IngestRequest{UserID: 42, Content: "an idea worth keeping", Source: "Telegram"})
	require.NoError(t, err)

	err = svc.Assign(ctx, note.ID, 43, models.ParaArchive, nil, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	unchanged, err := store.GetNote(ctx, note.ID, 42)
	require.NoError(t, err)
	assert.NotEqual(t, models.ParaArchive, unchanged.ParaType)

	err = svc.Assign(ctx, note.ID, 42, models.ParaArchive, nil, nil)
	require.NoError(t, err)

	archived, err := store.GetNote(ctx, note.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, models.ParaArchive, archived.ParaType)
	assert.Equal(t, models.StageAssign, archived.Stage)
	// A manual assign keeps whatever gtd_type was proposed.
	assert.Equal(t, unchanged.GTDType, archived.GTDType)
}

func TestAddTagSetSemantics(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	note, err := svc.Ingest(ctx, IngestRequest{UserID: 42, Content: "leg day notes", Source: "Telegram"})
	require.NoError(t, err)

	require.NoError(t, svc.AddTag(ctx, note.ID, 42, "gym"))
	require.NoError(t, svc.AddTag(ctx, note.ID, 42, "gym"))

	tagged, err := store.GetNote(ctx, note.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"gym"}, tagged.Tags)
}

func TestAddTagWrongOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	note, err := svc.Ingest(ctx, IngestRequest{UserID: 42, Content: "private note", Source: "Telegram"})
	require.NoError(t, err)

	err = svc.AddTag(ctx, note.ID, 43, "sneaky")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 80))

	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	cut := Preview(long, 80)
	assert.Len(t, []rune(cut), 81)
	assert.Equal(t, "…", string([]rune(cut)[80]))
}
