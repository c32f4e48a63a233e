package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/xaenox/collect-bot/internal/models"
)

type DatabaseConfig struct {
	Driver      string
	Path        string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

// SQLStorage runs the same query set against sqlite (default) or postgres.
// Both drivers accept $N placeholders, so only the DDL is dialect-aware.
type SQLStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// Timestamps are stored as fixed-width UTC text so lexicographic comparison
// in SQL matches chronological order on both drivers.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func NewSQLStorage(config DatabaseConfig, logger *zap.Logger) (*SQLStorage, error) {
	var db *sql.DB
	var err error

	switch config.Driver {
	case "", "sqlite":
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", config.Path)
		db, err = sql.Open("sqlite", dsn)
	case "postgres":
		connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)
		db, err = sql.Open("postgres", connStr)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", config.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	driver := config.Driver
	if driver == "" {
		driver = "sqlite"
	}
	if err := initializeSchema(db, driver); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	logger.Info("Database ready", zap.String("driver", driver))
	return &SQLStorage{db: db, logger: logger}, nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func encodeMetadata(meta map[string]string) (sql.NullString, error) {
	if len(meta) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeMetadata(raw sql.NullString) map[string]string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(raw.String), &meta); err != nil {
		return nil
	}
	return meta
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Raw notes ---

func (s *SQLStorage) CreateNote(ctx context.Context, note *models.Note) error {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	if note.Stage == "" {
		note.Stage = models.StageRaw
	}
	if note.ParaType == "" {
		note.ParaType = models.ParaRaw
	}

	meta, err := encodeMetadata(note.Metadata)
	if err != nil {
		return fmt.Errorf("error encoding note metadata: %v", err)
	}

	query := `
		INSERT INTO raw (user_id, chat_id, title, content, source, tags, metadata, gtd_type, rapa_stage, para_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err = s.db.QueryRowContext(ctx, query,
		note.UserID,
		note.ChatID,
		note.Title,
		note.Content,
		note.Source,
		joinTags(note.Tags),
		meta,
		string(note.GTDType),
		string(note.Stage),
		string(note.ParaType),
		formatTime(note.CreatedAt),
	).Scan(&note.ID)
	if err != nil {
		return fmt.Errorf("error creating note: %v", err)
	}
	return nil
}

const noteColumns = `id, user_id, chat_id, title, content, source, tags, metadata,
	gtd_type, rapa_stage, para_type, area_id, project_id, next_action, created_at, assign_proposed_at`

func scanNote(scanner interface{ Scan(...any) error }) (*models.Note, error) {
	var (
		note       models.Note
		title      sql.NullString
		source     sql.NullString
		tags       sql.NullString
		meta       sql.NullString
		gtdType    sql.NullString
		paraType   sql.NullString
		areaID     sql.NullInt64
		projectID  sql.NullInt64
		nextAction sql.NullString
		createdAt  string
		proposedAt sql.NullString
	)
	err := scanner.Scan(
		&note.ID, &note.UserID, &note.ChatID, &title, &note.Content, &source, &tags, &meta,
		&gtdType, (*string)(&note.Stage), &paraType, &areaID, &projectID, &nextAction, &createdAt, &proposedAt,
	)
	if err != nil {
		return nil, err
	}
	note.Title = title.String
	note.Source = source.String
	note.Tags = splitTags(tags.String)
	note.Metadata = decodeMetadata(meta)
	note.GTDType = models.GTDType(gtdType.String)
	note.ParaType = models.ParaType(paraType.String)
	if note.ParaType == "" {
		note.ParaType = models.ParaRaw
	}
	if areaID.Valid {
		note.AreaID = &areaID.Int64
	}
	if projectID.Valid {
		note.ProjectID = &projectID.Int64
	}
	note.NextAction = nextAction.String
	note.CreatedAt = parseTime(createdAt)
	if proposedAt.Valid && proposedAt.String != "" {
		t := parseTime(proposedAt.String)
		note.AssignProposedAt = &t
	}
	return &note, nil
}

func (s *SQLStorage) GetNote(ctx context.Context, id, userID int64) (*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM raw WHERE id = $1 AND user_id = $2`
	note, err := scanNote(s.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying note: %v", err)
	}
	return note, nil
}

func (s *SQLStorage) UpdateNoteAssignment(ctx context.Context, id, userID int64, upd NoteAssignment) error {
	var (
		result sql.Result
		err    error
	)
	if upd.GTDType != nil {
		result, err = s.db.ExecContext(ctx, `
			UPDATE raw
			SET gtd_type = $1, rapa_stage = $2, para_type = $3, area_id = $4, project_id = $5, assign_proposed_at = $6
			WHERE id = $7 AND user_id = $8`,
			string(*upd.GTDType), string(models.StageAssign), string(upd.ParaType),
			upd.AreaID, upd.ProjectID, formatTime(upd.ProposedAt), id, userID)
	} else {
		result, err = s.db.ExecContext(ctx, `
			UPDATE raw
			SET rapa_stage = $1, para_type = $2, area_id = $3, project_id = $4, assign_proposed_at = $5
			WHERE id = $6 AND user_id = $7`,
			string(models.StageAssign), string(upd.ParaType),
			upd.AreaID, upd.ProjectID, formatTime(upd.ProposedAt), id, userID)
	}
	if err != nil {
		return fmt.Errorf("error updating note assignment: %v", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStorage) UpdateNoteTags(ctx context.Context, id, userID int64, tags []string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE raw SET tags = $1 WHERE id = $2 AND user_id = $3`,
		joinTags(tags), id, userID)
	if err != nil {
		return fmt.Errorf("error updating note tags: %v", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStorage) ListNotesSince(ctx context.Context, userID int64, since time.Time) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + `
		FROM raw
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("error querying notes: %v", err)
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning note: %v", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// --- Areas ---

func (s *SQLStorage) GetAreaBySlug(ctx context.Context, userID int64, slug string) (*models.Area, error) {
	// A user-owned area shadows the shared default with the same slug.
	query := `
		SELECT id, user_id, name, slug, type, goal, role
		FROM rapa_areas
		WHERE (user_id = $1 OR user_id = 0) AND slug = $2
		ORDER BY user_id DESC
		LIMIT 1`

	area, err := scanArea(s.db.QueryRowContext(ctx, query, userID, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying area: %v", err)
	}
	return area, nil
}

func scanArea(scanner interface{ Scan(...any) error }) (*models.Area, error) {
	var (
		area models.Area
		typ  sql.NullString
		goal sql.NullString
		role sql.NullString
	)
	if err := scanner.Scan(&area.ID, &area.UserID, &area.Name, &area.Slug, &typ, &goal, &role); err != nil {
		return nil, err
	}
	area.Type = typ.String
	area.Goal = goal.String
	area.Role = role.String
	return &area, nil
}

func (s *SQLStorage) ListAreas(ctx context.Context, userID int64) ([]*models.Area, error) {
	query := `
		SELECT id, user_id, name, slug, type, goal, role
		FROM rapa_areas
		WHERE user_id = $1 OR user_id = 0
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying areas: %v", err)
	}
	defer rows.Close()

	var areas []*models.Area
	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning area: %v", err)
		}
		areas = append(areas, area)
	}
	return areas, rows.Err()
}

// --- Projects ---

const projectColumns = `p.id, p.user_id, p.area_id, p.name, p.outcome, p.status, p.horizon, p.impact,
	p.effort, p.start_date, p.deadline, p.next_review, p.daily_focus_count, a.name AS area_name`

func scanProject(scanner interface{ Scan(...any) error }) (*models.Project, error) {
	var (
		p          models.Project
		areaID     sql.NullInt64
		outcome    sql.NullString
		horizon    sql.NullString
		impact     sql.NullString
		effort     sql.NullString
		startDate  sql.NullString
		deadline   sql.NullString
		nextReview sql.NullString
		focusCount sql.NullInt64
		areaName   sql.NullString
	)
	err := scanner.Scan(&p.ID, &p.UserID, &areaID, &p.Name, &outcome, &p.Status, &horizon, &impact,
		&effort, &startDate, &deadline, &nextReview, &focusCount, &areaName)
	if err != nil {
		return nil, err
	}
	if areaID.Valid {
		p.AreaID = &areaID.Int64
	}
	p.Outcome = outcome.String
	p.Horizon = horizon.String
	p.Impact = impact.String
	p.Effort = effort.String
	p.StartDate = startDate.String
	p.Deadline = deadline.String
	p.NextReview = nextReview.String
	p.DailyFocusCount = int(focusCount.Int64)
	p.AreaName = areaName.String
	return &p, nil
}

func (s *SQLStorage) listProjects(ctx context.Context, query string, args ...any) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying projects: %v", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning project: %v", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLStorage) ListProjects(ctx context.Context, userID int64) ([]*models.Project, error) {
	return s.listProjects(ctx, `
		SELECT `+projectColumns+`
		FROM rapa_projects p
		LEFT JOIN rapa_areas a ON p.area_id = a.id
		WHERE p.user_id = $1
		ORDER BY p.status, p.deadline IS NULL, p.deadline`, userID)
}

func (s *SQLStorage) ListActiveProjects(ctx context.Context, userID int64) ([]*models.Project, error) {
	return s.listProjects(ctx, `
		SELECT `+projectColumns+`
		FROM rapa_projects p
		LEFT JOIN rapa_areas a ON p.area_id = a.id
		WHERE p.user_id = $1 AND p.status = $2
		ORDER BY p.deadline IS NULL, p.deadline`, userID, models.ProjectStatusActive)
}

// --- Goals ---

func (s *SQLStorage) ListGoals(ctx context.Context, userID int64, year int) ([]*models.Goal, error) {
	query := `
		SELECT g.id, g.user_id, g.area_id, g.year, g.name, g.description, g.status, g.created_at, a.name AS area_name
		FROM rapa_goals g
		LEFT JOIN rapa_areas a ON g.area_id = a.id
		WHERE g.user_id = $1 AND g.year = $2
		ORDER BY a.name, g.name`

	rows, err := s.db.QueryContext(ctx, query, userID, year)
	if err != nil {
		return nil, fmt.Errorf("error querying goals: %v", err)
	}
	defer rows.Close()

	var goals []*models.Goal
	for rows.Next() {
		var (
			g           models.Goal
			areaID      sql.NullInt64
			description sql.NullString
			createdAt   string
			areaName    sql.NullString
		)
		err := rows.Scan(&g.ID, &g.UserID, &areaID, &g.Year, &g.Name, &description, &g.Status, &createdAt, &areaName)
		if err != nil {
			return nil, fmt.Errorf("error scanning goal: %v", err)
		}
		if areaID.Valid {
			g.AreaID = &areaID.Int64
		}
		g.Description = description.String
		g.CreatedAt = parseTime(createdAt)
		g.AreaName = areaName.String
		goals = append(goals, &g)
	}
	return goals, rows.Err()
}

func (s *SQLStorage) CreateGoal(ctx context.Context, goal *models.Goal) error {
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = time.Now().UTC()
	}
	if goal.Status == "" {
		goal.Status = "active"
	}

	query := `
		INSERT INTO rapa_goals (user_id, area_id, year, name, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		goal.UserID, goal.AreaID, goal.Year, goal.Name, goal.Description, goal.Status, formatTime(goal.CreatedAt),
	).Scan(&goal.ID)
	if err != nil {
		return fmt.Errorf("error creating goal: %v", err)
	}
	return nil
}

// --- Collect entries ---

func (s *SQLStorage) SaveEntry(ctx context.Context, entry *models.CollectEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO collect_entries (user_id, chat_id, message_id, photo_file_id, comment, created_at, published_to_channel)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		entry.UserID, entry.ChatID, entry.MessageID, entry.PhotoFileID, entry.Comment,
		formatTime(entry.CreatedAt), boolToInt(entry.Published),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("error saving entry: %v", err)
	}
	return nil
}

const entryColumns = `id, user_id, chat_id, message_id, photo_file_id, comment, created_at, published_to_channel`

func scanEntry(scanner interface{ Scan(...any) error }) (*models.CollectEntry, error) {
	var (
		e         models.CollectEntry
		comment   sql.NullString
		createdAt string
		published int
	)
	err := scanner.Scan(&e.ID, &e.UserID, &e.ChatID, &e.MessageID, &e.PhotoFileID, &comment, &createdAt, &published)
	if err != nil {
		return nil, err
	}
	e.Comment = comment.String
	e.CreatedAt = parseTime(createdAt)
	e.Published = published != 0
	return &e, nil
}

func (s *SQLStorage) listEntries(ctx context.Context, query string, args ...any) ([]*models.CollectEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying entries: %v", err)
	}
	defer rows.Close()

	var entries []*models.CollectEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning entry: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *SQLStorage) UnpublishedEntries(ctx context.Context) ([]*models.CollectEntry, error) {
	return s.listEntries(ctx,
		`SELECT `+entryColumns+` FROM collect_entries WHERE published_to_channel = 0 ORDER BY id`)
}

func (s *SQLStorage) UnpublishedEntriesForUser(ctx context.Context, userID int64) ([]*models.CollectEntry, error) {
	return s.listEntries(ctx,
		`SELECT `+entryColumns+` FROM collect_entries WHERE published_to_channel = 0 AND user_id = $1 ORDER BY id DESC`,
		userID)
}

func (s *SQLStorage) PublishedEntries(ctx context.Context) ([]*models.CollectEntry, error) {
	return s.listEntries(ctx,
		`SELECT `+entryColumns+` FROM collect_entries WHERE published_to_channel = 1 ORDER BY created_at DESC`)
}

func (s *SQLStorage) GetPublishedEntry(ctx context.Context, id int64) (*models.CollectEntry, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM collect_entries WHERE id = $1 AND published_to_channel = 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying entry: %v", err)
	}
	return entry, nil
}

func (s *SQLStorage) SetEntryPublished(ctx context.Context, id int64, published bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE collect_entries SET published_to_channel = $1 WHERE id = $2`,
		boolToInt(published), id)
	if err != nil {
		return fmt.Errorf("error updating entry: %v", err)
	}
	return nil
}

func (s *SQLStorage) CancelEntry(ctx context.Context, id, userID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM collect_entries WHERE id = $1 AND user_id = $2 AND published_to_channel = 0`,
		id, userID)
	if err != nil {
		return fmt.Errorf("error cancelling entry: %v", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStorage) CountEntriesSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collect_entries WHERE user_id = $1 AND created_at >= $2`,
		userID, formatTime(since)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting entries: %v", err)
	}
	return count, nil
}

func (s *SQLStorage) OwnerUserID(ctx context.Context) (int64, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM collect_entries ORDER BY id DESC LIMIT 1`).Scan(&userID)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("error resolving owner: %v", err)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT user_id FROM fallback_photos ORDER BY id DESC LIMIT 1`).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("error resolving owner: %v", err)
	}
	return userID, nil
}

// --- Fallback stock ---

func (s *SQLStorage) AddFallbackPhoto(ctx context.Context, photo *models.FallbackPhoto) error {
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO fallback_photos (user_id, photo_file_id, created_at, used_at)
		 VALUES ($1, $2, $3, NULL)
		 RETURNING id`,
		photo.UserID, photo.PhotoFileID, formatTime(photo.CreatedAt)).Scan(&photo.ID)
	if err != nil {
		return fmt.Errorf("error adding fallback photo: %v", err)
	}
	return nil
}

func (s *SQLStorage) CountUnusedFallback(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fallback_photos WHERE used_at IS NULL AND user_id = $1`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting fallback photos: %v", err)
	}
	return count, nil
}

func (s *SQLStorage) RandomUnusedFallback(ctx context.Context) (*models.FallbackPhoto, error) {
	var (
		photo     models.FallbackPhoto
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, photo_file_id, created_at
		 FROM fallback_photos
		 WHERE used_at IS NULL
		 ORDER BY RANDOM()
		 LIMIT 1`).Scan(&photo.ID, &photo.UserID, &photo.PhotoFileID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error picking fallback photo: %v", err)
	}
	photo.CreatedAt = parseTime(createdAt)
	return &photo, nil
}

func (s *SQLStorage) SetFallbackUsed(ctx context.Context, id int64, used bool) error {
	var usedAt any
	if used {
		usedAt = formatTime(time.Now().UTC())
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE fallback_photos SET used_at = $1 WHERE id = $2`, usedAt, id)
	if err != nil {
		return fmt.Errorf("error updating fallback photo: %v", err)
	}
	return nil
}
