package storage

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xaenox/collect-bot/internal/models"
)

// MemoryStorage is the test double behind the same Storage interface.
// It seeds the same default areas as the SQL bootstrap.
type MemoryStorage struct {
	mu        sync.RWMutex
	notes     map[int64]*models.Note
	areas     map[int64]*models.Area
	projects  map[int64]*models.Project
	goals     map[int64]*models.Goal
	entries   map[int64]*models.CollectEntry
	fallbacks map[int64]*models.FallbackPhoto
	nextID    map[string]int64
}

func NewMemoryStorage() *MemoryStorage {
	s := &MemoryStorage{
		notes:     make(map[int64]*models.Note),
		areas:     make(map[int64]*models.Area),
		projects:  make(map[int64]*models.Project),
		goals:     make(map[int64]*models.Goal),
		entries:   make(map[int64]*models.CollectEntry),
		fallbacks: make(map[int64]*models.FallbackPhoto),
		nextID:    make(map[string]int64),
	}
	for _, a := range DefaultAreas {
		id := s.allocID("areas")
		s.areas[id] = &models.Area{
			ID:     id,
			UserID: models.SystemUserID,
			Name:   a.Name,
			Slug:   a.Slug,
			Type:   a.Type,
			Goal:   a.Goal,
			Role:   a.Name,
		}
	}
	return s
}

func (s *MemoryStorage) allocID(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func (s *MemoryStorage) Close() error {
	return nil
}

// --- Raw notes ---

func (s *MemoryStorage) CreateNote(ctx context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	if note.Stage == "" {
		note.Stage = models.StageRaw
	}
	if note.ParaType == "" {
		note.ParaType = models.ParaRaw
	}
	note.ID = s.allocID("notes")

	stored := *note
	s.notes[note.ID] = &stored
	return nil
}

func (s *MemoryStorage) GetNote(ctx context.Context, id, userID int64) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	note, exists := s.notes[id]
	if !exists || note.UserID != userID {
		return nil, ErrNotFound
	}
	copied := *note
	return &copied, nil
}

func (s *MemoryStorage) UpdateNoteAssignment(ctx context.Context, id, userID int64, upd NoteAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	note, exists := s.notes[id]
	if !exists || note.UserID != userID {
		return ErrNotFound
	}
	if upd.GTDType != nil {
		note.GTDType = *upd.GTDType
	}
	note.Stage = models.StageAssign
	note.ParaType = upd.ParaType
	note.AreaID = upd.AreaID
	note.ProjectID = upd.ProjectID
	proposedAt := upd.ProposedAt
	note.AssignProposedAt = &proposedAt
	return nil
}

func (s *MemoryStorage) UpdateNoteTags(ctx context.Context, id, userID int64, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	note, exists := s.notes[id]
	if !exists || note.UserID != userID {
		return ErrNotFound
	}
	note.Tags = append([]string(nil), tags...)
	return nil
}

func (s *MemoryStorage) ListNotesSince(ctx context.Context, userID int64, since time.Time) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var notes []*models.Note
	for _, note := range s.notes {
		if note.UserID == userID && !note.CreatedAt.Before(since) {
			copied := *note
			notes = append(notes, &copied)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	return notes, nil
}

// --- Areas ---

func (s *MemoryStorage) GetAreaBySlug(ctx context.Context, userID int64, slug string) (*models.Area, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fallback *models.Area
	for _, area := range s.areas {
		if area.Slug != slug {
			continue
		}
		if area.UserID == userID {
			copied := *area
			return &copied, nil
		}
		if area.UserID == models.SystemUserID {
			fallback = area
		}
	}
	if fallback != nil {
		copied := *fallback
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) ListAreas(ctx context.Context, userID int64) ([]*models.Area, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var areas []*models.Area
	for _, area := range s.areas {
		if area.UserID == userID || area.UserID == models.SystemUserID {
			copied := *area
			areas = append(areas, &copied)
		}
	}
	sort.Slice(areas, func(i, j int) bool {
		return areas[i].Name < areas[j].Name
	})
	return areas, nil
}

// --- Projects ---

// AddProject exists for tests; the core never creates projects.
func (s *MemoryStorage) AddProject(project *models.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project.ID = s.allocID("projects")
	if project.AreaID != nil {
		if area, ok := s.areas[*project.AreaID]; ok {
			project.AreaName = area.Name
		}
	}
	stored := *project
	s.projects[project.ID] = &stored
}

func sortProjectsByDeadline(projects []*models.Project) {
	sort.Slice(projects, func(i, j int) bool {
		a, b := projects[i], projects[j]
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		if (a.Deadline == "") != (b.Deadline == "") {
			return a.Deadline != ""
		}
		if a.Deadline != b.Deadline {
			return a.Deadline < b.Deadline
		}
		return a.ID < b.ID
	})
}

func (s *MemoryStorage) ListProjects(ctx context.Context, userID int64) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var projects []*models.Project
	for _, p := range s.projects {
		if p.UserID == userID {
			copied := *p
			projects = append(projects, &copied)
		}
	}
	sortProjectsByDeadline(projects)
	return projects, nil
}

func (s *MemoryStorage) ListActiveProjects(ctx context.Context, userID int64) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var projects []*models.Project
	for _, p := range s.projects {
		if p.UserID == userID && p.Status == models.ProjectStatusActive {
			copied := *p
			projects = append(projects, &copied)
		}
	}
	sortProjectsByDeadline(projects)
	return projects, nil
}

// --- Goals ---

func (s *MemoryStorage) ListGoals(ctx context.Context, userID int64, year int) ([]*models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var goals []*models.Goal
	for _, g := range s.goals {
		if g.UserID == userID && g.Year == year {
			copied := *g
			goals = append(goals, &copied)
		}
	}
	sort.Slice(goals, func(i, j int) bool {
		if goals[i].AreaName != goals[j].AreaName {
			return goals[i].AreaName < goals[j].AreaName
		}
		return strings.ToLower(goals[i].Name) < strings.ToLower(goals[j].Name)
	})
	return goals, nil
}

func (s *MemoryStorage) CreateGoal(ctx context.Context, goal *models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now().UTC()
	}
	if goal.Status == "" {
		goal.Status = "active"
	}
	goal.ID = s.allocID("goals")
	if goal.AreaID != nil {
		if area, ok := s.areas[*goal.AreaID]; ok {
			goal.AreaName = area.Name
		}
	}
	stored := *goal
	s.goals[goal.ID] = &stored
	return nil
}

// --- Collect entries ---

func (s *MemoryStorage) SaveEntry(ctx context.Context, entry *models.CollectEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.ID = s.allocID("entries")
	stored := *entry
	s.entries[entry.ID] = &stored
	return nil
}

func (s *MemoryStorage) listEntries(match func(*models.CollectEntry) bool, newestFirst bool) []*models.CollectEntry {
	var entries []*models.CollectEntry
	for _, e := range s.entries {
		if match(e) {
			copied := *e
			entries = append(entries, &copied)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if newestFirst {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}

func (s *MemoryStorage) UnpublishedEntries(ctx context.Context) ([]*models.CollectEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEntries(func(e *models.CollectEntry) bool { return !e.Published }, false), nil
}

func (s *MemoryStorage) UnpublishedEntriesForUser(ctx context.Context, userID int64) ([]*models.CollectEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEntries(func(e *models.CollectEntry) bool {
		return !e.Published && e.UserID == userID
	}, true), nil
}

func (s *MemoryStorage) PublishedEntries(ctx context.Context) ([]*models.CollectEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.listEntries(func(e *models.CollectEntry) bool { return e.Published }, false)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (s *MemoryStorage) GetPublishedEntry(ctx context.Context, id int64) (*models.CollectEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[id]
	if !exists || !entry.Published {
		return nil, ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (s *MemoryStorage) SetEntryPublished(ctx context.Context, id int64, published bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, exists := s.entries[id]; exists {
		entry.Published = published
	}
	return nil
}

func (s *MemoryStorage) CancelEntry(ctx context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[id]
	if !exists || entry.UserID != userID || entry.Published {
		return ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *MemoryStorage) CountEntriesSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) OwnerUserID(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.CollectEntry
	for _, e := range s.entries {
		if latest == nil || e.ID > latest.ID {
			latest = e
		}
	}
	if latest != nil {
		return latest.UserID, nil
	}
	var latestFallback *models.FallbackPhoto
	for _, f := range s.fallbacks {
		if latestFallback == nil || f.ID > latestFallback.ID {
			latestFallback = f
		}
	}
	if latestFallback != nil {
		return latestFallback.UserID, nil
	}
	return 0, ErrNotFound
}

// --- Fallback stock ---

func (s *MemoryStorage) AddFallbackPhoto(ctx context.Context, photo *models.FallbackPhoto) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now().UTC()
	}
	photo.ID = s.allocID("fallbacks")
	stored := *photo
	s.fallbacks[photo.ID] = &stored
	return nil
}

func (s *MemoryStorage) CountUnusedFallback(ctx context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, f := range s.fallbacks {
		if f.UserID == userID && f.UsedAt == nil {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) RandomUnusedFallback(ctx context.Context) (*models.FallbackPhoto, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var unused []*models.FallbackPhoto
	for _, f := range s.fallbacks {
		if f.UsedAt == nil {
			unused = append(unused, f)
		}
	}
	if len(unused) == 0 {
		return nil, ErrNotFound
	}
	copied := *unused[rand.Intn(len(unused))]
	return &copied, nil
}

func (s *MemoryStorage) SetFallbackUsed(ctx context.Context, id int64, used bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	photo, exists := s.fallbacks[id]
	if !exists {
		return nil
	}
	if used {
		now := time.Now().UTC()
		photo.UsedAt = &now
	} else {
		photo.UsedAt = nil
	}
	return nil
}
