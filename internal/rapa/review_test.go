package rapa

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/collect-bot/internal/models"
	"github.com/xaenox/collect-bot/internal/storage"
)

func TestDailyReviewEmptyWindow(t *testing.T) {
	store := storage.NewMemoryStorage()
	reviewer := NewReviewer(store)

	text, err := reviewer.Daily(context.Background(), 42)
	require.NoError(t, err)

	assert.Contains(t, text, "No new raw notes")
	assert.NotContains(t, text, "#", "empty review must not list notes")
}

func TestDailyReviewListsNotes(t *testing.T) {
	store := storage.NewMemoryStorage()
	svc := NewService(store, NewClassifier(DefaultAreaRules()), zap.NewNop())
	reviewer := NewReviewer(store)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, IngestRequest{UserID: 42, Content: "need to call the doctor", Source: "Telegram"})
	require.NoError(t, err)

	long := strings.Repeat("thoughts ", 20) // > 80 chars
	_, err = svc.Ingest(ctx, IngestRequest{UserID: 42, Content: long, Source: "Plaud"})
	require.NoError(t, err)

	text, err := reviewer.Daily(ctx, 42)
	require.NoError(t, err)

	assert.Contains(t, text, "New raw notes: 2")
	assert.Contains(t, text, "#1")
	assert.Contains(t, text, "#2")
	assert.Contains(t, text, "…", "long content must be truncated with an ellipsis")
	assert.Contains(t, text, string(models.StageAssign))
}

func TestDailyReviewScopedToOwner(t *testing.T) {
	store := storage.NewMemoryStorage()
	svc := NewService(store, NewClassifier(DefaultAreaRules()), zap.NewNop())
	reviewer := NewReviewer(store)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, IngestRequest{UserID: 7, Content: "someone else's note", Source: "Telegram"})
	require.NoError(t, err)

	text, err := reviewer.Daily(ctx, 42)
	require.NoError(t, err)
	assert.Contains(t, text, "No new raw notes")
}

func TestWeeklyReview(t *testing.T) {
	store := storage.NewMemoryStorage()
	svc := NewService(store, NewClassifier(DefaultAreaRules()), zap.NewNop())
	reviewer := NewReviewer(store)
	ctx := context.Background()

	store.AddProject(&models.Project{
		UserID:   42,
		Name:     "Ship the landing page",
		Status:   models.ProjectStatusActive,
		Deadline: "2026-09-15",
	})
	store.AddProject(&models.Project{
		UserID: 42,
		Name:   "Shelved experiment",
		Status: "paused",
	})

	_, err := svc.Ingest(ctx, IngestRequest{UserID: 42, Content: "morning pages", Source: "Telegram"})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, IngestRequest{UserID: 42, Content: "meeting transcript", Source: "Plaud"})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, IngestRequest{UserID: 42, Content: "another transcript", Source: "Plaud"})
	require.NoError(t, err)

	text, err := reviewer.Weekly(ctx, 42)
	require.NoError(t, err)

	assert.Contains(t, text, "Ship the landing page")
	assert.Contains(t, text, "due 2026-09-15")
	assert.NotContains(t, text, "Shelved experiment", "only active projects are listed")
	assert.Contains(t, text, "Raw notes this week: 3")
	assert.Contains(t, text, "Plaud: 2")
	assert.Contains(t, text, "Telegram: 1")
}

func TestWeeklyReviewNoProjects(t *testing.T) {
	store := storage.NewMemoryStorage()
	reviewer := NewReviewer(store)

	text, err := reviewer.Weekly(context.Background(), 42)
	require.NoError(t, err)

	assert.Contains(t, text, "(none)")
	assert.Contains(t, text, "Raw notes this week: 0")
}

func TestMonthlyReviewListsAllAreas(t *testing.T) {
	store := storage.NewMemoryStorage()
	reviewer := NewReviewer(store)

	text, err := reviewer.Monthly(context.Background(), 42)
	require.NoError(t, err)

	assert.Contains(t, text, "Raw notes this month: 0")
	assert.Contains(t, text, "Active projects: 0")
	for _, area := range storage.DefaultAreas {
		assert.Contains(t, text, area.Name)
	}
}
