package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/collect-bot/internal/models"
)

func newTestStorage(t *testing.T) *SQLStorage {
	t.Helper()
	store, err := NewSQLStorage(DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "collect.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSchemaBootstrapIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collect.db")

	first, err := NewSQLStorage(DatabaseConfig{Driver: "sqlite", Path: path}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLStorage(DatabaseConfig{Driver: "sqlite", Path: path}, zap.NewNop())
	require.NoError(t, err, "bootstrap must be re-runnable")
	defer second.Close()

	areas, err := second.ListAreas(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, areas, len(DefaultAreas), "defaults must not be duplicated")

	business := 0
	for _, area := range areas {
		if area.Slug == "business" {
			business++
		}
	}
	assert.Equal(t, 1, business)
}

func TestNoteRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	note := &models.Note{
		UserID:   42,
		ChatID:   100,
		Title:    "Call mom",
		Content:  "Call mom about the weekend",
		Source:   "Telegram",
		Tags:     []string{"family", "calls"},
		Metadata: map[string]string{"origin": "test"},
	}
	require.NoError(t, store.CreateNote(ctx, note))
	require.NotZero(t, note.ID)

	loaded, err := store.GetNote(ctx, note.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, note.Content, loaded.Content)
	assert.Equal(t, []string{"family", "calls"}, loaded.Tags)
	assert.Equal(t, map[string]string{"origin": "test"}, loaded.Metadata)
	assert.Equal(t, models.StageRaw, loaded.Stage)
	assert.Equal(t, models.ParaRaw, loaded.ParaType)
	assert.Nil(t, loaded.AreaID)
	assert.Nil(t, loaded.AssignProposedAt)

	_, err = store.GetNote(ctx, note.ID, 43)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateNoteAssignment(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	note := &models.Note{UserID: 42, Content: "need to swim more"}
	require.NoError(t, store.CreateNote(ctx, note))

	area, err := store.GetAreaBySlug(ctx, 42, "ironman")
	require.NoError(t, err)

	gtd := models.GTDTask
	upd := NoteAssignment{
		GTDType:    &gtd,
		ParaType:   models.ParaProject,
		AreaID:     &area.ID,
		ProposedAt: time.Now().UTC(),
	}

	assert.ErrorIs(t, store.UpdateNoteAssignment(ctx, note.ID, 43, upd), ErrNotFound)
	require.NoError(t, store.UpdateNoteAssignment(ctx, note.ID, 42, upd))

	loaded, err := store.GetNote(ctx, note.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, models.GTDTask, loaded.GTDType)
	assert.Equal(t, models.ParaProject, loaded.ParaType)
	assert.Equal(t, models.StageAssign, loaded.Stage)
	require.NotNil(t, loaded.AreaID)
	assert.Equal(t, area.ID, *loaded.AreaID)
	require.NotNil(t, loaded.AssignProposedAt)

	// Manual assign without a GTD type keeps the proposed one.
	require.NoError(t, store.UpdateNoteAssignment(ctx, note.ID, 42, NoteAssignment{
		ParaType:   models.ParaArchive,
		ProposedAt: time.Now().UTC(),
	}))
	loaded, err = store.GetNote(ctx, note.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, models.GTDTask, loaded.GTDType)
	assert.Equal(t, models.ParaArchive, loaded.ParaType)
	assert.Nil(t, loaded.AreaID)
}

func TestListNotesSinceOrdering(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		note := &models.Note{
			UserID:    42,
			Content:   "note",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.CreateNote(ctx, note))
	}
	old := &models.Note{UserID: 42, Content: "old", CreatedAt: base.Add(-48 * time.Hour)}
	require.NoError(t, store.CreateNote(ctx, old))

	notes, err := store.ListNotesSince(ctx, 42, base.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.True(t, notes[0].CreatedAt.After(notes[1].CreatedAt))
	assert.True(t, notes[1].CreatedAt.After(notes[2].CreatedAt))
}

func TestUpdateNoteTagsGuard(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	note := &models.Note{UserID: 42, Content: "tagged"}
	require.NoError(t, store.CreateNote(ctx, note))

	assert.ErrorIs(t, store.UpdateNoteTags(ctx, note.ID, 43, []string{"x"}), ErrNotFound)
	require.NoError(t, store.UpdateNoteTags(ctx, note.ID, 42, []string{"x", "y"}))

	loaded, err := store.GetNote(ctx, note.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, loaded.Tags)
}

func TestAreaShadowResolution(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	area, err := store.GetAreaBySlug(ctx, 42, "family")
	require.NoError(t, err)
	assert.Equal(t, models.SystemUserID, area.UserID)
	assert.Equal(t, "Family", area.Name)

	_, err = store.GetAreaBySlug(ctx, 42, "no-such-area")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntriesLifecycle(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	first := &models.CollectEntry{UserID: 42, ChatID: 1, MessageID: 10, PhotoFileID: "photo-1", Comment: "day one"}
	second := &models.CollectEntry{UserID: 42, ChatID: 1, MessageID: 11, PhotoFileID: "photo-2"}
	require.NoError(t, store.SaveEntry(ctx, first))
	require.NoError(t, store.SaveEntry(ctx, second))

	queued, err := store.UnpublishedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, first.ID, queued[0].ID, "queue is oldest first")

	mine, err := store.UnpublishedEntriesForUser(ctx, 42)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "user list is newest first")

	require.NoError(t, store.SetEntryPublished(ctx, first.ID, true))

	published, err := store.PublishedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "day one", published[0].Comment)

	_, err = store.GetPublishedEntry(ctx, second.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := store.GetPublishedEntry(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "photo-1", got.PhotoFileID)

	// Rollback path of mark-before-send.
	require.NoError(t, store.SetEntryPublished(ctx, first.ID, false))
	queued, err = store.UnpublishedEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, queued, 2)

	assert.ErrorIs(t, store.CancelEntry(ctx, second.ID, 43), ErrNotFound)
	require.NoError(t, store.CancelEntry(ctx, second.ID, 42))

	count, err := store.CountEntriesSince(ctx, 42, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	owner, err := store.OwnerUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), owner)
}

func TestOwnerUserIDEmptyStore(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.OwnerUserID(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFallbackLifecycle(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	a := &models.FallbackPhoto{UserID: 42, PhotoFileID: "stock-1"}
	b := &models.FallbackPhoto{UserID: 42, PhotoFileID: "stock-2"}
	require.NoError(t, store.AddFallbackPhoto(ctx, a))
	require.NoError(t, store.AddFallbackPhoto(ctx, b))

	count, err := store.CountUnusedFallback(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	picked, err := store.RandomUnusedFallback(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SetFallbackUsed(ctx, picked.ID, true))

	count, err = store.CountUnusedFallback(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Rollback makes it eligible again.
	require.NoError(t, store.SetFallbackUsed(ctx, picked.ID, false))
	count, err = store.CountUnusedFallback(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, store.SetFallbackUsed(ctx, a.ID, true))
	require.NoError(t, store.SetFallbackUsed(ctx, b.ID, true))
	_, err = store.RandomUnusedFallback(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGoals(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	area, err := store.GetAreaBySlug(ctx, 42, "coach")
	require.NoError(t, err)

	goal := &models.Goal{
		UserID: 42,
		Year:   2026,
		Name:   "Run a marathon",
		AreaID: &area.ID,
	}
	require.NoError(t, store.CreateGoal(ctx, goal))
	require.NotZero(t, goal.ID)
	assert.Equal(t, "active", goal.Status)

	goals, err := store.ListGoals(ctx, 42, 2026)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "Run a marathon", goals[0].Name)
	assert.Equal(t, "Coach", goals[0].AreaName)

	none, err := store.ListGoals(ctx, 42, 2025)
	require.NoError(t, err)
	assert.Empty(t, none)
}
