package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xaenox/collect-bot/internal/models"
)

// ErrNotFound is returned when a row does not exist or is owned by a
// different user. Callers treat both cases the same way.
var ErrNotFound = errors.New("not found")

// NoteAssignment is the set of fields a triage transition writes back onto a
// note. GTDType is nil for manual assigns, which leave the proposed type alone.
type NoteAssignment struct {
	GTDType    *models.GTDType
	ParaType   models.ParaType
	AreaID     *int64
	ProjectID  *int64
	ProposedAt time.Time
}

type Storage interface {
	// Raw notes
	CreateNote(ctx context.Context, note *models.Note) error
	GetNote(ctx context.Context, id, userID int64) (*models.Note, error)
	UpdateNoteAssignment(ctx context.Context, id, userID int64, upd NoteAssignment) error
	UpdateNoteTags(ctx context.Context, id, userID int64, tags []string) error
	ListNotesSince(ctx context.Context, userID int64, since time.Time) ([]*models.Note, error)

	// Areas: user-owned rows shadow the shared defaults with the same slug.
	GetAreaBySlug(ctx context.Context, userID int64, slug string) (*models.Area, error)
	ListAreas(ctx context.Context, userID int64) ([]*models.Area, error)

	// Projects
	ListProjects(ctx context.Context, userID int64) ([]*models.Project, error)
	ListActiveProjects(ctx context.Context, userID int64) ([]*models.Project, error)

	// Goals
	ListGoals(ctx context.Context, userID int64, year int) ([]*models.Goal, error)
	CreateGoal(ctx context.Context, goal *models.Goal) error

	// Collect entries
	SaveEntry(ctx context.Context, entry *models.CollectEntry) error
	UnpublishedEntries(ctx context.Context) ([]*models.CollectEntry, error)
	UnpublishedEntriesForUser(ctx context.Context, userID int64) ([]*models.CollectEntry, error)
	PublishedEntries(ctx context.Context) ([]*models.CollectEntry, error)
	GetPublishedEntry(ctx context.Context, id int64) (*models.CollectEntry, error)
	SetEntryPublished(ctx context.Context, id int64, published bool) error
	CancelEntry(ctx context.Context, id, userID int64) error
	CountEntriesSince(ctx context.Context, userID int64, since time.Time) (int, error)
	// OwnerUserID reports the user behind the latest entry or fallback photo,
	// or ErrNotFound when the store is empty.
	OwnerUserID(ctx context.Context) (int64, error)

	// Fallback stock
	AddFallbackPhoto(ctx context.Context, photo *models.FallbackPhoto) error
	CountUnusedFallback(ctx context.Context, userID int64) (int, error)
	RandomUnusedFallback(ctx context.Context) (*models.FallbackPhoto, error)
	SetFallbackUsed(ctx context.Context, id int64, used bool) error

	Close() error
}
