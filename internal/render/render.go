// Package render generates scope-of-work documents from extraction results.
// A format-neutral Document is built from one of three templates, then
// written as DOCX or PDF.
package render

import (
	"time"

	"github.com/scopeline/scopeline/internal/extraction"
	"github.com/scopeline/scopeline/internal/taxonomy"
	"github.com/scopeline/scopeline/internal/vision"
)

// Template identifiers.
const (
	TemplateJRAL      = "jral"
	TemplateTrade     = "trade"
	TemplateNarrative = "narrative"
)

// Format identifiers.
const (
	FormatDOCX = "docx"
	FormatPDF  = "pdf"
)

// Request carries everything document generation needs for one job.
type Request struct {
	ProjectName string
	Template    string
	GeneratedAt time.Time
	Summary     *extraction.ProjectSummary
	ScopeItems  []extraction.ScopeItem
	Score       int
	Photos      []vision.Annotation
	PhotoPaths  map[string]string
	Branding    Branding
	Taxonomy    *taxonomy.Taxonomy
}

// Output is one rendered document ready for storage.
type Output struct {
	Format      string
	FileName    string
	ContentType string
	Data        []byte
}

// Document is the format-neutral intermediate both writers consume.
type Document struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Branding    Branding
	Sections    []Section
}

// Section is one titled block of document content. Only the populated
// fields render.
type Section struct {
	Heading    string
	Paragraphs []string
	Bullets    []string
	Checklist  []string
	Table      *Table
	Photos     []PhotoFigure
}

// Table is a simple header-plus-rows grid.
type Table struct {
	Header []string
	Rows   [][]string
}

// PhotoFigure pairs an image on disk with its annotation text.
type PhotoFigure struct {
	Caption string
	Path    string
	Details []string
}

var contentTypes = map[string]string{
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatPDF:  "application/pdf",
}

// Render builds the document for the request's template and writes it in
// the given format.
func Render(req Request, format string) (*Output, error) {
	doc, err := Build(req)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case FormatDOCX:
		data, err = WriteDOCX(doc)
	case FormatPDF:
		data, err = WritePDF(doc)
	default:
		return nil, &RenderError{Format: format, Err: ErrUnknownFormat}
	}
	if err != nil {
		return nil, &RenderError{Format: format, Err: err}
	}

	return &Output{
		Format:      format,
		FileName:    FileName(req.ProjectName, req.Template, format, req.GeneratedAt),
		ContentType: contentTypes[format],
		Data:        data,
	}, nil
}
