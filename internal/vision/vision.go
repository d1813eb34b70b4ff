// Package vision annotates walkthrough photos with captions and scope
// context through a multimodal model.
package vision

import (
	"context"

	"github.com/scopeline/scopeline/internal/taxonomy"
)

// Photo identifies one assembled image file on local disk.
type Photo struct {
	Path        string
	FileName    string
	ContentType string
}

// Annotation is the structured description of one photo. CostCode is set
// when the model's scope category resolves against the job's taxonomy.
type Annotation struct {
	FileName      string   `json:"file_name"`
	Caption       string   `json:"caption"`
	ScopeCategory string   `json:"scope_category,omitempty"`
	CostCode      string   `json:"cost_code,omitempty"`
	Materials     []string `json:"materials,omitempty"`
	Conditions    []string `json:"conditions,omitempty"`
	Risks         []string `json:"risks,omitempty"`
	CostUSD       float64  `json:"cost_usd"`
}

// Analyzer annotates a single photo. projectContext carries the extraction
// overview so annotations stay anchored to the job's scope.
type Analyzer interface {
	Analyze(ctx context.Context, photo Photo, projectContext string, tax *taxonomy.Taxonomy) (*Annotation, error)
}
