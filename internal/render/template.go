package render

import (
	"fmt"
	"strings"

	"github.com/scopeline/scopeline/internal/extraction"
	"github.com/scopeline/scopeline/internal/taxonomy"
	"github.com/scopeline/scopeline/internal/vision"
)

// Build assembles the format-neutral document for the request's template.
func Build(req Request) (*Document, error) {
	template := req.Template
	if template == "" {
		template = TemplateJRAL
	}

	if req.Summary == nil && len(req.ScopeItems) == 0 && len(req.Photos) == 0 {
		return nil, ErrNoContent
	}

	tax := req.Taxonomy
	if tax == nil {
		tax = taxonomy.Default()
	}

	doc := &Document{
		Title:       titleFor(req),
		Subtitle:    fmt.Sprintf("Scope of Work, prepared %s", req.GeneratedAt.UTC().Format("January 2, 2006")),
		GeneratedAt: req.GeneratedAt,
		Branding:    req.Branding,
	}

	doc.Sections = append(doc.Sections, summarySection(req))

	switch template {
	case TemplateJRAL:
		doc.Sections = append(doc.Sections, jralSections(req.ScopeItems, tax)...)
	case TemplateTrade:
		doc.Sections = append(doc.Sections, tradeSections(req.ScopeItems, tax)...)
	case TemplateNarrative:
		doc.Sections = append(doc.Sections, narrativeSections(req.ScopeItems, tax)...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, template)
	}

	if template == TemplateNarrative {
		doc.Sections = attachPhotos(doc.Sections, req)
	} else if section, ok := photoSection(req); ok {
		doc.Sections = append(doc.Sections, section)
	}
	return doc, nil
}

func titleFor(req Request) string {
	name := strings.TrimSpace(req.ProjectName)
	if name == "" {
		name = "Site Walkthrough"
	}
	return name
}

func summarySection(req Request) Section {
	section := Section{Heading: "Project Summary"}

	if req.Summary != nil {
		if req.Summary.Overview != "" {
			section.Paragraphs = append(section.Paragraphs, req.Summary.Overview)
		}
		section.Bullets = append(section.Bullets, labeled("Requirement", req.Summary.KeyRequirements)...)
		section.Bullets = append(section.Bullets, labeled("Concern", req.Summary.Concerns)...)
		section.Bullets = append(section.Bullets, labeled("Decision needed", req.Summary.DecisionPoints)...)
		section.Bullets = append(section.Bullets, labeled("Note", req.Summary.ImportantNotes)...)
	}

	section.Paragraphs = append(section.Paragraphs,
		fmt.Sprintf("Scope completeness: %d of 100 based on walkthrough coverage.", req.Score))
	return section
}

func labeled(label string, items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, label+": "+item)
		}
	}
	return out
}

// groupItems buckets scope items by cost code in taxonomy order.
func groupItems(items []extraction.ScopeItem, tax *taxonomy.Taxonomy) ([]string, map[string][]extraction.ScopeItem) {
	groups := make(map[string][]extraction.ScopeItem)
	var codes []string
	for _, item := range items {
		if _, ok := groups[item.CostCode]; !ok {
			codes = append(codes, item.CostCode)
		}
		groups[item.CostCode] = append(groups[item.CostCode], item)
	}
	tax.SortCodes(codes)
	return codes, groups
}

// jralSections renders demolition work as a checklist, then every other
// trade as a table.
func jralSections(items []extraction.ScopeItem, tax *taxonomy.Taxonomy) []Section {
	var demolition, trades []extraction.ScopeItem
	for _, item := range items {
		if item.CostCode == taxonomy.DemolitionCode {
			demolition = append(demolition, item)
		} else {
			trades = append(trades, item)
		}
	}

	sections := checklistSections(demolition, tax)
	return append(sections, tradeSections(trades, tax)...)
}

func checklistSections(items []extraction.ScopeItem, tax *taxonomy.Taxonomy) []Section {
	codes, groups := groupItems(items, tax)

	sections := make([]Section, 0, len(codes))
	for _, code := range codes {
		group := groups[code]
		section := Section{Heading: fmt.Sprintf("%s %s", code, group[0].Category)}
		for _, item := range group {
			section.Checklist = append(section.Checklist, itemLine(item))
		}
		sections = append(sections, section)
	}
	return sections
}

func tradeSections(items []extraction.ScopeItem, tax *taxonomy.Taxonomy) []Section {
	codes, groups := groupItems(items, tax)

	sections := make([]Section, 0, len(codes))
	for _, code := range codes {
		group := groups[code]
		table := &Table{Header: []string{"Description", "Location", "Quantity", "Risk"}}
		for _, item := range group {
			table.Rows = append(table.Rows, []string{
				itemDescription(item),
				item.Location,
				item.Quantity,
				string(item.RiskLevel),
			})
		}
		sections = append(sections, Section{
			Heading: fmt.Sprintf("%s %s", code, group[0].Category),
			Table:   table,
		})
	}
	return sections
}

func narrativeSections(items []extraction.ScopeItem, tax *taxonomy.Taxonomy) []Section {
	codes, groups := groupItems(items, tax)

	sections := make([]Section, 0, len(codes))
	for _, code := range codes {
		group := groups[code]
		section := Section{Heading: group[0].Category}
		for _, item := range group {
			section.Paragraphs = append(section.Paragraphs, narrate(item))
		}
		sections = append(sections, section)
	}
	return sections
}

func itemLine(item extraction.ScopeItem) string {
	parts := []string{itemDescription(item)}
	if item.Location != "" {
		parts = append(parts, "at "+item.Location)
	}
	if item.Quantity != "" {
		parts = append(parts, "qty "+item.Quantity)
	}
	if len(item.Materials) > 0 {
		parts = append(parts, "materials: "+strings.Join(item.Materials, ", "))
	}
	if item.RiskLevel == extraction.RiskHigh {
		parts = append(parts, "HIGH RISK")
	}
	if item.Notes != "" {
		parts = append(parts, item.Notes)
	}
	return strings.Join(parts, "; ")
}

func itemDescription(item extraction.ScopeItem) string {
	if item.SubCategory != "" {
		return item.SubCategory + ": " + item.Description
	}
	return item.Description
}

func narrate(item extraction.ScopeItem) string {
	var b strings.Builder
	b.WriteString(item.Description)
	if item.Location != "" {
		b.WriteString(" This work is located at the ")
		b.WriteString(item.Location)
		b.WriteString(".")
	}
	if len(item.Materials) > 0 {
		b.WriteString(" Materials include ")
		b.WriteString(strings.Join(item.Materials, ", "))
		b.WriteString(".")
	}
	if item.RiskLevel == extraction.RiskHigh {
		b.WriteString(" Flagged as high risk.")
	}
	if item.Notes != "" {
		b.WriteString(" ")
		b.WriteString(item.Notes)
	}
	return b.String()
}

// attachPhotos places each photo inside the section whose heading matches
// its scope category. Photos with no matching section collect at the end.
func attachPhotos(sections []Section, req Request) []Section {
	var leftover []vision.Annotation
	for _, photo := range req.Photos {
		placed := false
		for i := range sections {
			if photo.ScopeCategory != "" && strings.EqualFold(sections[i].Heading, photo.ScopeCategory) {
				sections[i].Photos = append(sections[i].Photos, photoFigure(req, photo))
				placed = true
				break
			}
		}
		if !placed {
			leftover = append(leftover, photo)
		}
	}

	if len(leftover) > 0 {
		section := Section{Heading: "Site Photos"}
		for _, photo := range leftover {
			section.Photos = append(section.Photos, photoFigure(req, photo))
		}
		sections = append(sections, section)
	}
	return sections
}

func photoSection(req Request) (Section, bool) {
	if len(req.Photos) == 0 {
		return Section{}, false
	}

	section := Section{Heading: "Site Photos"}
	for _, photo := range req.Photos {
		section.Photos = append(section.Photos, photoFigure(req, photo))
	}
	return section, true
}

func photoFigure(req Request, photo vision.Annotation) PhotoFigure {
	figure := PhotoFigure{
		Caption: photo.Caption,
		Path:    req.PhotoPaths[photo.FileName],
	}
	if photo.ScopeCategory != "" {
		figure.Details = append(figure.Details, "Scope: "+photo.ScopeCategory)
	}
	if len(photo.Materials) > 0 {
		figure.Details = append(figure.Details, "Materials: "+strings.Join(photo.Materials, ", "))
	}
	if len(photo.Conditions) > 0 {
		figure.Details = append(figure.Details, "Conditions: "+strings.Join(photo.Conditions, ", "))
	}
	if len(photo.Risks) > 0 {
		figure.Details = append(figure.Details, "Risks: "+strings.Join(photo.Risks, ", "))
	}
	return figure
}
