// Package jobs implements the job session store and progress channel for the
// processing pipeline. The store is the single source of truth for a job's
// stage, readable by polling clients; the broker pushes the same state as
// ordered events to per-job subscribers.
package jobs

import (
	"time"

	"github.com/google/uuid"

	"github.com/scopeline/scopeline/internal/extraction"
	"github.com/scopeline/scopeline/internal/vision"
)

// Status identifies the pipeline stage a job is in.
type Status string

// Job statuses. A job reaches exactly one terminal state and never
// transitions afterward.
const (
	StatusQueued              Status = "queued"
	StatusTranscribing        Status = "transcribing"
	StatusParsing             Status = "parsing"
	StatusAnalyzingPhotos     Status = "analyzing_photos"
	StatusGeneratingDocuments Status = "generating_documents"
	StatusCompleted           Status = "completed"
	StatusFailed              Status = "failed"
)

// Terminal reports whether the status is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// DocumentRef points at one generated document in blob storage.
type DocumentRef struct {
	Format   string `json:"format"`
	Template string `json:"template"`
	FileName string `json:"file_name"`
	URL      string `json:"url"`
}

// Result holds the output of a completed job. PhotoGaps lists photo file
// names whose analysis failed; RenderErrors records per-format render
// failures without affecting overall job status.
type Result struct {
	Transcript        string                     `json:"transcript"`
	Summary           *extraction.ProjectSummary `json:"project_summary,omitempty"`
	ScopeItems        []extraction.ScopeItem     `json:"scope_items"`
	CompletenessScore int                        `json:"completeness_score"`
	Photos            []vision.Annotation        `json:"photo_annotations"`
	PhotoGaps         []string                   `json:"photo_gaps,omitempty"`
	Documents         []DocumentRef              `json:"documents"`
	RenderErrors      map[string]string          `json:"render_errors,omitempty"`
	CostUSD           float64                    `json:"cost_usd"`
	ProcessingSeconds int                        `json:"processing_seconds"`
}

// Failure carries the classified reason surfaced to callers. Full diagnostic
// detail stays in the service log.
type Failure struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// Job is the keyed, TTL-bounded record of one pipeline run.
type Job struct {
	ID          uuid.UUID `json:"id"`
	TenantID    string    `json:"tenant_id"`
	ProjectName string    `json:"project_name"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message"`
	Result      *Result   `json:"result,omitempty"`
	Error       *Failure  `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a shallow copy safe to hand to readers while the
// orchestrator keeps mutating its own instance.
func (j *Job) Clone() *Job {
	c := *j
	return &c
}
