package extraction

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/scopeline/scopeline/internal/taxonomy"
)

// flexString tolerates models emitting numbers where strings belong.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
		return nil
	}
	*f = ""
	return nil
}

// flexStrings tolerates a single string, a list, or null.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			*f = []string{s}
		}
		return nil
	}
	*f = nil
	return nil
}

// flexInt tolerates numbers arriving as floats or quoted strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = flexInt(parsed)
		}
		return nil
	}
	*f = 0
	return nil
}

type rawItem struct {
	CostCode    flexString  `json:"cost_code"`
	Category    string      `json:"category"`
	SubCode     flexString  `json:"sub_code"`
	SubCategory string      `json:"sub_category"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	Materials   flexStrings `json:"materials"`
	Quantity    flexString  `json:"quantity"`
	Notes       string      `json:"notes"`
	RiskLevel   string      `json:"risk_level"`
}

type rawExtraction struct {
	ProjectSummary *ProjectSummary `json:"project_summary"`
	ScopeItems     []rawItem       `json:"scope_items"`
	Completeness   flexInt         `json:"scope_completeness_score"`
}

// normalize validates the loose model output against the taxonomy. It
// returns an error only when the output carries no usable content, which
// callers treat as a schema failure.
func normalize(raw rawExtraction, tax *taxonomy.Taxonomy) (*Extraction, error) {
	out := &Extraction{
		Summary:           raw.ProjectSummary,
		CompletenessScore: clampScore(int(raw.Completeness)),
	}
	if out.Summary == nil {
		out.Summary = &ProjectSummary{}
	}

	for _, item := range raw.ScopeItems {
		description := strings.TrimSpace(item.Description)
		if description == "" {
			continue
		}

		normalized := ScopeItem{
			Description: description,
			Location:    strings.TrimSpace(item.Location),
			Materials:   item.Materials,
			Quantity:    strings.TrimSpace(string(item.Quantity)),
			Notes:       strings.TrimSpace(item.Notes),
			RiskLevel:   normalizeRisk(item.RiskLevel),
		}

		// Codes outside the taxonomy pass through flagged rather than
		// being remapped, so the document still shows the model's bucket.
		code := padCode(string(item.CostCode))
		if name, ok := tax.Resolve(code); ok {
			normalized.CostCode = code
			normalized.Category = name
			normalized.CodeResolved = true
		} else if byName, ok := tax.FindByName(item.Category); ok {
			normalized.CostCode = byName.Code
			normalized.Category = byName.Name
			normalized.CodeResolved = true
		} else {
			normalized.CostCode = code
			normalized.Category = strings.TrimSpace(item.Category)
		}

		if sub := padCode(string(item.SubCode)); sub != "" {
			if name, ok := tax.ResolveSub(normalized.CostCode, sub); ok {
				normalized.SubCode = sub
				normalized.SubCategory = name
			}
		}

		out.ScopeItems = append(out.ScopeItems, normalized)
	}

	if len(out.ScopeItems) == 0 && strings.TrimSpace(out.Summary.Overview) == "" {
		return nil, fmt.Errorf("no scope items or summary in output")
	}
	return out, nil
}

// padCode restores the leading zero models tend to strip from codes.
func padCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) == 1 && code >= "1" && code <= "9" {
		return "0" + code
	}
	return code
}

func normalizeRisk(level string) RiskLevel {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(level))) {
	case RiskLow:
		return RiskLow
	case RiskHigh:
		return RiskHigh
	default:
		return RiskMedium
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
