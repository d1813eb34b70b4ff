// Package analyses implements the persistence domain for completed
// walkthrough analyses. Each analysis row archives the extraction output
// for one job alongside its generated documents, scoped to the tenant that
// submitted the walkthrough.
package analyses

import (
	"time"

	"github.com/google/uuid"

	"github.com/scopeline/scopeline/internal/extraction"
	"github.com/scopeline/scopeline/internal/vision"
)

// Analysis is one archived walkthrough result.
type Analysis struct {
	ID                uuid.UUID                  `json:"id"`
	TenantID          string                     `json:"tenant_id"`
	ProjectName       string                     `json:"project_name"`
	Template          string                     `json:"template"`
	Transcript        string                     `json:"transcript,omitempty"`
	Summary           *extraction.ProjectSummary `json:"project_summary,omitempty"`
	ScopeItems        []extraction.ScopeItem     `json:"scope_items"`
	CompletenessScore int                        `json:"completeness_score"`
	Photos            []vision.Annotation        `json:"photo_annotations"`
	CostUSD           float64                    `json:"cost_usd"`
	ProcessingSeconds int                        `json:"processing_seconds"`
	CreatedAt         time.Time                  `json:"created_at"`
	Documents         []Document                 `json:"documents,omitempty"`
}

// Document is one generated file stored in blob storage.
type Document struct {
	ID          uuid.UUID `json:"id"`
	AnalysisID  uuid.UUID `json:"analysis_id"`
	Format      string    `json:"format"`
	FileName    string    `json:"file_name"`
	StorageKey  string    `json:"storage_key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// SaveCommand carries a completed job's output into the archive.
type SaveCommand struct {
	ID                uuid.UUID
	TenantID          string
	ProjectName       string
	Template          string
	Transcript        string
	Summary           *extraction.ProjectSummary
	ScopeItems        []extraction.ScopeItem
	CompletenessScore int
	Photos            []vision.Annotation
	CostUSD           float64
	ProcessingSeconds int
	Documents         []SaveDocument
}

// SaveDocument describes one document already uploaded to blob storage.
type SaveDocument struct {
	Format      string
	FileName    string
	StorageKey  string
	ContentType string
	Size        int64
}
