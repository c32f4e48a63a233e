package rapa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/collect-bot/internal/models"
	"github.com/xaenox/collect-bot/internal/storage"
)

// ErrEmptyContent rejects ingestion before any row is created.
var ErrEmptyContent = errors.New("content is empty")

const titlePreviewLen = 80

// Service drives the note lifecycle: Raw on creation, Assign once a
// classification has been proposed or applied, para_type as the terminal
// bucket.
type Service struct {
	store      storage.Storage
	classifier *Classifier
	logger     *zap.Logger
}

func NewService(store storage.Storage, classifier *Classifier, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		classifier: classifier,
		logger:     logger,
	}
}

// IngestRequest is one piece of inbound raw content from any front end.
type IngestRequest struct {
	UserID   int64
	ChatID   int64
	Content  string
	Source   string
	Metadata map[string]string
	Tags     []string
}

// Ingest creates a Raw note and immediately proposes a classification for
// it. Hashtags are extracted into tags and stripped from the stored content;
// the classifier still sees the original text. A proposal failure is logged
// and swallowed: the note stays valid in stage Raw.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*models.Note, error) {
	original := strings.TrimSpace(req.Content)
	if original == "" {
		return nil, ErrEmptyContent
	}

	content, tags := ExtractTags(original)
	if content == "" {
		// Tag-only message: keep the original so the note is not blank.
		content = original
	}
	tags = append(tags, req.Tags...)

	note := &models.Note{
		UserID:   req.UserID,
		ChatID:   req.ChatID,
		Title:    Preview(content, titlePreviewLen),
		Content:  content,
		Source:   req.Source,
		Tags:     dedupe(tags),
		Metadata: req.Metadata,
	}
	if err := s.store.CreateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("error creating raw note: %v", err)
	}

	if _, err := s.Propose(ctx, note.ID, note.UserID, original); err != nil {
		s.logger.Warn("Assign proposal failed, note stays Raw",
			zap.Error(err),
			zap.Int64("note_id", note.ID),
			zap.Int64("user_id", note.UserID))
		return note, nil
	}

	proposed, err := s.store.GetNote(ctx, note.ID, note.UserID)
	if err != nil {
		return note, nil
	}
	return proposed, nil
}

// Propose runs the classifier over the content and writes the proposal back
// onto the note: gtd_type, para_type, resolved area and stage Assign.
// Re-running overwrites the previous proposal.
func (s *Service) Propose(ctx context.Context, noteID, userID int64, content string) (models.Classification, error) {
	cls := s.classifier.Classify(content)

	var areaID *int64
	if cls.AreaSlug != "" {
		area, err := s.store.GetAreaBySlug(ctx, userID, cls.AreaSlug)
		switch {
		case err == nil:
			areaID = &area.ID
		case errors.Is(err, storage.ErrNotFound):
			// Slug without a backing area row: keep the proposal, drop the reference.
		default:
			return cls, err
		}
	}

	gtdType := cls.GTDType
	err := s.store.UpdateNoteAssignment(ctx, noteID, userID, storage.NoteAssignment{
		GTDType:    &gtdType,
		ParaType:   cls.ParaType,
		AreaID:     areaID,
		ProposedAt: time.Now().UTC(),
	})
	if err != nil {
		return cls, err
	}
	return cls, nil
}

// Assign applies a caller-supplied classification, overriding any proposal.
// Only rows owned by userID are touched; otherwise storage.ErrNotFound.
func (s *Service) Assign(ctx context.Context, noteID, userID int64, paraType models.ParaType, projectID, areaID *int64) error {
	return s.store.UpdateNoteAssignment(ctx, noteID, userID, storage.NoteAssignment{
		ParaType:   paraType,
		AreaID:     areaID,
		ProjectID:  projectID,
		ProposedAt: time.Now().UTC(),
	})
}

// AddTag appends a tag to the note's tag set. Adding a tag that is already
// present is a successful no-op.
func (s *Service) AddTag(ctx context.Context, noteID, userID int64, tag string) error {
	note, err := s.store.GetNote(ctx, noteID, userID)
	if err != nil {
		return err
	}
	for _, t := range note.Tags {
		if t == tag {
			return nil
		}
	}
	return s.store.UpdateNoteTags(ctx, noteID, userID, append(note.Tags, tag))
}

// Preview truncates content to max runes, appending an ellipsis when cut.
func Preview(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "…"
}

func dedupe(tags []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
