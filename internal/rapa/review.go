package rapa

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xaenox/collect-bot/internal/models"
	"github.com/xaenox/collect-bot/internal/storage"
)

const reviewPreviewLen = 80

// Reviewer builds the daily/weekly/monthly plain-text reports. Reports are
// read-only; a report only fails when the store does.
type Reviewer struct {
	store storage.Storage
}

func NewReviewer(store storage.Storage) *Reviewer {
	return &Reviewer{store: store}
}

func (r *Reviewer) notesSince(ctx context.Context, userID int64, days int) ([]*models.Note, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	return r.store.ListNotesSince(ctx, userID, since)
}

// Daily lists the raw notes of the last day with their proposed
// classification.
func (r *Reviewer) Daily(ctx context.Context, userID int64) (string, error) {
	notes, err := r.notesSince(ctx, userID, 1)
	if err != nil {
		return "", fmt.Errorf("error building daily review: %v", err)
	}

	lines := []string{"📋 Daily review (today)\n"}
	if len(notes) == 0 {
		lines = append(lines, "• No new raw notes. Send anything to the bot and it will be sorted.")
		return strings.Join(lines, "\n"), nil
	}

	lines = append(lines, fmt.Sprintf("• New raw notes: %d\n", len(notes)))
	for _, n := range notes {
		stage := n.Stage
		if stage == "" {
			stage = models.StageRaw
		}
		para := n.ParaType
		if para == "" {
			para = models.ParaRaw
		}
		lines = append(lines,
			fmt.Sprintf("  #%d [%s] %s %s", n.ID, stage, para, n.GTDType),
			fmt.Sprintf("      «%s»", Preview(n.Content, reviewPreviewLen)),
			"")
	}
	lines = append(lines, "— Confirm or adjust the proposed Assign.")
	return strings.Join(lines, "\n"), nil
}

// Weekly lists active projects and a per-source breakdown of the week's raw
// notes.
func (r *Reviewer) Weekly(ctx context.Context, userID int64) (string, error) {
	notes, err := r.notesSince(ctx, userID, 7)
	if err != nil {
		return "", fmt.Errorf("error building weekly review: %v", err)
	}
	projects, err := r.store.ListActiveProjects(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("error building weekly review: %v", err)
	}

	lines := []string{"📊 Weekly review\n"}

	lines = append(lines, "Active projects:")
	if len(projects) == 0 {
		lines = append(lines, "  (none)")
	} else {
		for _, p := range projects {
			line := "  • " + p.Name
			if p.AreaName != "" {
				line += fmt.Sprintf(" [%s]", p.AreaName)
			}
			if p.Deadline != "" {
				line += " due " + p.Deadline
			}
			lines = append(lines, line)
		}
	}

	lines = append(lines, "", fmt.Sprintf("Raw notes this week: %d", len(notes)))
	if len(notes) > 0 {
		bySource := make(map[string]int)
		for _, n := range notes {
			source := n.Source
			if source == "" {
				source = "Other"
			}
			bySource[source]++
		}
		sources := make([]string, 0, len(bySource))
		for source := range bySource {
			sources = append(sources, source)
		}
		sort.Strings(sources)
		for _, source := range sources {
			lines = append(lines, fmt.Sprintf("  — %s: %d", source, bySource[source]))
		}
	}

	lines = append(lines, "", "— What moves to Archive? Which projects get the focus this week?")
	return strings.Join(lines, "\n"), nil
}

// Monthly reports aggregate counts and the fixed area checklist. The area
// list is the static declaration, not a per-area query.
func (r *Reviewer) Monthly(ctx context.Context, userID int64) (string, error) {
	notes, err := r.notesSince(ctx, userID, 30)
	if err != nil {
		return "", fmt.Errorf("error building monthly review: %v", err)
	}
	projects, err := r.store.ListActiveProjects(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("error building monthly review: %v", err)
	}

	lines := []string{"📆 Monthly review\n"}
	lines = append(lines,
		fmt.Sprintf("• Raw notes this month: %d", len(notes)),
		fmt.Sprintf("• Active projects: %d", len(projects)),
		"",
		"Areas:")
	for _, area := range storage.DefaultAreas {
		lines = append(lines, "  — "+area.Name)
	}
	lines = append(lines, "", "— Review the Areas. Clean up Resources and Archive.")
	return strings.Join(lines, "\n"), nil
}
