package models

import "time"

// GTDType is the Getting-Things-Done classification of a raw note.
type GTDType string

const (
	GTDTask      GTDType = "task"
	GTDIdea      GTDType = "idea"
	GTDReference GTDType = "reference"
	GTDSomeday   GTDType = "someday"
	GTDTrash     GTDType = "trash"
)

// ParaType is the PARA bucket a note resolves into. Raw means "not filed yet".
type ParaType string

const (
	ParaRaw      ParaType = "Raw"
	ParaProject  ParaType = "Project"
	ParaArea     ParaType = "Area"
	ParaResource ParaType = "Resource"
	ParaArchive  ParaType = "Archive"
)

// Stage tracks whether classification has been proposed for a note.
type Stage string

const (
	StageRaw    Stage = "Raw"
	StageAssign Stage = "Assign"
	StageDone   Stage = "Done"
)

// Note is a raw inbound record: a text message, a photo caption or an
// externally posted transcript, waiting to be filed into PARA.
type Note struct {
	ID               int64             `json:"id"`
	UserID           int64             `json:"user_id"`
	ChatID           int64             `json:"chat_id"`
	Title            string            `json:"title"`
	Content          string            `json:"content"`
	Source           string            `json:"source"`
	Tags             []string          `json:"tags"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	GTDType          GTDType           `json:"gtd_type"`
	ParaType         ParaType          `json:"para_type"`
	Stage            Stage             `json:"rapa_stage"`
	AreaID           *int64            `json:"area_id,omitempty"`
	ProjectID        *int64            `json:"project_id,omitempty"`
	NextAction       string            `json:"next_action,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	AssignProposedAt *time.Time        `json:"assign_proposed_at,omitempty"`
}

// Classification is the rule engine's proposal for a note.
type Classification struct {
	GTDType  GTDType  `json:"gtd_type"`
	AreaSlug string   `json:"area_slug,omitempty"`
	ParaType ParaType `json:"para_type"`
}
