package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// Area declarations seeded at bootstrap under the system user. Declaration
// order matters: the classifier resolves "first match wins" against it.
type DefaultArea struct {
	Name string
	Slug string
	Type string
	Goal string
}

var DefaultAreas = []DefaultArea{
	{"Business", "business", "Personal", "Business, products, startups"},
	{"Family", "family", "Personal", "Family and close people"},
	{"WCS", "wcs", "Creative", "West Coast Swing, dancing"},
	{"Ironman", "ironman", "Personal", "Triathlon, endurance"},
	{"Coach", "coach", "Personal", "Personal growth, reflection"},
	{"Doctor", "doctor", "Personal", "Health"},
	{"Trainer", "trainer", "Personal", "Sport, workouts"},
	{"CEO of projects", "ceo", "Work", "Projects, strategy"},
}

// serialPK is the only DDL fragment the two drivers disagree on.
func serialPK(driver string) string {
	if driver == "postgres" {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func createStatements(driver string) []string {
	pk := serialPK(driver)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS raw (
			id %s,
			user_id BIGINT NOT NULL,
			chat_id BIGINT NOT NULL DEFAULT 0,
			title TEXT,
			content TEXT NOT NULL,
			source TEXT,
			tags TEXT,
			metadata TEXT,
			gtd_type TEXT,
			rapa_stage TEXT NOT NULL DEFAULT 'Raw',
			created_at TEXT NOT NULL
		)`, pk),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS collect_entries (
			id %s,
			user_id BIGINT NOT NULL,
			chat_id BIGINT NOT NULL,
			message_id BIGINT NOT NULL,
			photo_file_id TEXT NOT NULL,
			photo_file_path TEXT,
			comment TEXT,
			tags TEXT,
			created_at TEXT NOT NULL
		)`, pk),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS fallback_photos (
			id %s,
			user_id BIGINT NOT NULL,
			photo_file_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			used_at TEXT
		)`, pk),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rapa_areas (
			id %s,
			user_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			slug TEXT NOT NULL,
			role TEXT,
			UNIQUE (user_id, slug)
		)`, pk),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rapa_projects (
			id %s,
			user_id BIGINT NOT NULL,
			area_id BIGINT,
			name TEXT NOT NULL,
			outcome TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			deadline TEXT
		)`, pk),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rapa_goals (
			id %s,
			user_id BIGINT NOT NULL,
			area_id BIGINT,
			year BIGINT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TEXT NOT NULL
		)`, pk),
		`CREATE INDEX IF NOT EXISTS idx_fallback_used ON fallback_photos (used_at)`,
	}
}

// Additive column migrations. Older databases predate these columns, so each
// one is applied blind and a "column already exists" error is ignored.
var columnMigrations = []string{
	`ALTER TABLE raw ADD COLUMN para_type TEXT DEFAULT 'Raw'`,
	`ALTER TABLE raw ADD COLUMN project_id BIGINT`,
	`ALTER TABLE raw ADD COLUMN area_id BIGINT`,
	`ALTER TABLE raw ADD COLUMN next_action TEXT`,
	`ALTER TABLE raw ADD COLUMN assign_proposed_at TEXT`,
	`ALTER TABLE collect_entries ADD COLUMN published_to_channel BIGINT DEFAULT 0`,
	`ALTER TABLE rapa_areas ADD COLUMN type TEXT`,
	`ALTER TABLE rapa_areas ADD COLUMN goal TEXT`,
	`ALTER TABLE rapa_projects ADD COLUMN horizon TEXT`,
	`ALTER TABLE rapa_projects ADD COLUMN impact TEXT`,
	`ALTER TABLE rapa_projects ADD COLUMN effort TEXT`,
	`ALTER TABLE rapa_projects ADD COLUMN start_date TEXT`,
	`ALTER TABLE rapa_projects ADD COLUMN next_review TEXT`,
	`ALTER TABLE rapa_projects ADD COLUMN daily_focus_count BIGINT DEFAULT 0`,
}

var postMigrationIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_collect_published ON collect_entries (published_to_channel)`,
}

func isDuplicateColumn(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// sqlite: "duplicate column name: x"; postgres: 42701 "... already exists"
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}

// initializeSchema creates missing tables, applies additive column
// migrations and seeds the default areas. Safe to run on every start.
func initializeSchema(db *sql.DB, driver string) error {
	for _, stmt := range createStatements(driver) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("error creating schema: %v", err)
		}
	}
	for _, stmt := range columnMigrations {
		if _, err := db.Exec(stmt); err != nil && !isDuplicateColumn(err) {
			return fmt.Errorf("error migrating schema: %v", err)
		}
	}
	for _, stmt := range postMigrationIndexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("error creating index: %v", err)
		}
	}
	for _, area := range DefaultAreas {
		_, err := db.Exec(
			`INSERT INTO rapa_areas (user_id, name, slug, type, goal, role)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (user_id, slug) DO NOTHING`,
			0, area.Name, area.Slug, area.Type, area.Goal, area.Name,
		)
		if err != nil {
			return fmt.Errorf("error seeding default area %q: %v", area.Slug, err)
		}
	}
	return nil
}
