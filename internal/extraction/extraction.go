// Package extraction turns walkthrough transcripts into structured scope
// data keyed to the configured cost-code taxonomy.
package extraction

import (
	"context"

	"github.com/scopeline/scopeline/internal/taxonomy"
)

// RiskLevel grades a scope item's execution risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ScopeItem is one unit of work identified in the transcript. CodeResolved
// reports whether CostCode matched the taxonomy the extraction ran with;
// unmatched codes pass through flagged rather than being reassigned.
type ScopeItem struct {
	CostCode     string    `json:"cost_code"`
	Category     string    `json:"category"`
	CodeResolved bool      `json:"code_resolved"`
	SubCode      string    `json:"sub_code,omitempty"`
	SubCategory  string    `json:"sub_category,omitempty"`
	Description  string    `json:"description"`
	Location     string    `json:"location,omitempty"`
	Materials    []string  `json:"materials,omitempty"`
	Quantity     string    `json:"quantity,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	RiskLevel    RiskLevel `json:"risk_level"`
}

// ProjectSummary captures the narrative shape of the walkthrough.
type ProjectSummary struct {
	Overview        string   `json:"overview"`
	KeyRequirements []string `json:"key_requirements"`
	Concerns        []string `json:"concerns"`
	DecisionPoints  []string `json:"decision_points"`
	ImportantNotes  []string `json:"important_notes"`
}

// Extraction is the normalized model output plus accounting detail.
type Extraction struct {
	Summary           *ProjectSummary `json:"project_summary"`
	ScopeItems        []ScopeItem     `json:"scope_items"`
	CompletenessScore int             `json:"completeness_score"`
	InputTokens       int             `json:"input_tokens"`
	OutputTokens      int             `json:"output_tokens"`
	CostUSD           float64         `json:"cost_usd"`
}

// Extractor produces structured scope from free text. Implementations own
// one schema-repair retry; a second malformed response surfaces ErrSchema.
type Extractor interface {
	Extract(ctx context.Context, transcript string, tax *taxonomy.Taxonomy) (*Extraction, error)
}
