package analyses

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/scopeline/scopeline/internal/extraction"
	"github.com/scopeline/scopeline/pkg/query"
	"github.com/scopeline/scopeline/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "analyses", "a").
	Project("id", "ID").
	Project("tenant_id", "TenantID").
	Project("project_name", "ProjectName").
	Project("template", "Template").
	Project("transcript", "Transcript").
	Project("summary", "Summary").
	Project("scope_items", "ScopeItems").
	Project("photo_annotations", "Photos").
	Project("completeness_score", "CompletenessScore").
	Project("cost_usd", "CostUSD").
	Project("processing_seconds", "ProcessingSeconds").
	Project("created_at", "CreatedAt")

var documentProjection = query.
	NewProjectionMap("public", "analysis_documents", "d").
	Project("id", "ID").
	Project("analysis_id", "AnalysisID").
	Project("format", "Format").
	Project("file_name", "FileName").
	Project("storage_key", "StorageKey").
	Project("content_type", "ContentType").
	Project("size", "Size").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for analysis queries.
// Nil fields are ignored.
type Filters struct {
	ProjectName *string `json:"project_name,omitempty"`
	Template    *string `json:"template,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("ProjectName", f.ProjectName).
		WhereEquals("Template", f.Template)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if p := values.Get("project_name"); p != "" {
		f.ProjectName = &p
	}
	if t := values.Get("template"); t != "" {
		f.Template = &t
	}
	return f
}

func scanAnalysis(s repository.Scanner) (Analysis, error) {
	var a Analysis
	var summaryRaw, itemsRaw, photosRaw []byte

	err := s.Scan(
		&a.ID,
		&a.TenantID,
		&a.ProjectName,
		&a.Template,
		&a.Transcript,
		&summaryRaw,
		&itemsRaw,
		&photosRaw,
		&a.CompletenessScore,
		&a.CostUSD,
		&a.ProcessingSeconds,
		&a.CreatedAt,
	)
	if err != nil {
		return a, err
	}

	if len(summaryRaw) > 0 {
		if err := json.Unmarshal(summaryRaw, &a.Summary); err != nil {
			return a, fmt.Errorf("unmarshal summary: %w", err)
		}
	}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &a.ScopeItems); err != nil {
			return a, fmt.Errorf("unmarshal scope_items: %w", err)
		}
	}
	if len(photosRaw) > 0 {
		if err := json.Unmarshal(photosRaw, &a.Photos); err != nil {
			return a, fmt.Errorf("unmarshal photo_annotations: %w", err)
		}
	}

	if a.ScopeItems == nil {
		a.ScopeItems = []extraction.ScopeItem{}
	}
	return a, nil
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.AnalysisID,
		&d.Format,
		&d.FileName,
		&d.StorageKey,
		&d.ContentType,
		&d.Size,
		&d.CreatedAt,
	)
	return d, err
}
