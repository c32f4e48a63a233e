package models

import "time"

// SystemUserID owns the shared default areas visible to every user.
const SystemUserID int64 = 0

// Area is a fixed life-domain bucket ("Business", "Family", ...).
// Areas owned by SystemUserID are shared defaults; a user-owned area with
// the same slug shadows the default.
type Area struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Type   string `json:"type,omitempty"`
	Goal   string `json:"goal,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Project is a bounded unit of work, optionally filed under an Area.
type Project struct {
	ID              int64  `json:"id"`
	UserID          int64  `json:"user_id"`
	Name            string `json:"name"`
	Outcome         string `json:"outcome,omitempty"`
	Status          string `json:"status"`
	Horizon         string `json:"horizon,omitempty"`
	Impact          string `json:"impact,omitempty"`
	Effort          string `json:"effort,omitempty"`
	StartDate       string `json:"start_date,omitempty"`
	Deadline        string `json:"deadline,omitempty"`
	NextReview      string `json:"next_review,omitempty"`
	DailyFocusCount int    `json:"daily_focus_count"`
	AreaID          *int64 `json:"area_id,omitempty"`
	AreaName        string `json:"area_name,omitempty"`
}

// ProjectStatusActive is the only status the weekly review cares about.
const ProjectStatusActive = "active"

// Goal is a yearly objective, optionally linked to an Area.
type Goal struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Year        int       `json:"year"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	AreaID      *int64    `json:"area_id,omitempty"`
	AreaName    string    `json:"area_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
