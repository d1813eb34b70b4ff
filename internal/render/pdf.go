package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf/v2"
)

// WritePDF renders the document as an A4 portrait PDF.
func WritePDF(doc *Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(doc.Branding.CompanyName, true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 22)

	footer := footerLine(doc.Branding)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-16)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, footer, "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pr, pg, pb := hexRGB(doc.Branding.PrimaryColor)
	ar, ag, ab := hexRGB(doc.Branding.AccentColor)

	if doc.Branding.LogoPath != "" {
		options := gofpdf.ImageOptions{ReadDpi: true}
		pdf.ImageOptions(doc.Branding.LogoPath, -1, -1, 40, 0, true, options, 0, "")
		pdf.Ln(2)
	}

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(pr, pg, pb)
	pdf.MultiCell(0, 9, doc.Title, "", "L", false)

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(80, 80, 80)
	pdf.MultiCell(0, 6, doc.Subtitle, "", "L", false)
	if doc.Branding.CompanyName != "" {
		company := doc.Branding.CompanyName
		if doc.Branding.Tagline != "" {
			company += ", " + doc.Branding.Tagline
		}
		pdf.MultiCell(0, 6, company, "", "L", false)
	}
	pdf.Ln(4)

	for _, section := range doc.Sections {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(ar, ag, ab)
		pdf.MultiCell(0, 8, section.Heading, "", "L", false)
		pdf.SetTextColor(20, 20, 20)

		pdf.SetFont("Helvetica", "", 11)
		for _, paragraph := range section.Paragraphs {
			pdf.MultiCell(0, 6, paragraph, "", "L", false)
			pdf.Ln(1)
		}
		for _, bullet := range section.Bullets {
			pdf.MultiCell(0, 6, "- "+bullet, "", "L", false)
		}
		for _, entry := range section.Checklist {
			pdf.MultiCell(0, 6, "[ ] "+entry, "", "L", false)
		}

		if section.Table != nil {
			writePDFTable(pdf, section.Table, pr, pg, pb)
		}
		for _, photo := range section.Photos {
			writePDFPhoto(pdf, photo)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writePDFTable(pdf *gofpdf.Fpdf, table *Table, r, g, b int) {
	widths := columnWidths(len(table.Header))

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(r, g, b)
	pdf.SetTextColor(255, 255, 255)
	for i, cell := range table.Header {
		pdf.CellFormat(widths[i], 7, cell, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(20, 20, 20)
	for _, row := range table.Rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			pdf.CellFormat(widths[i], 7, truncate(cell, 60), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(2)
}

func writePDFPhoto(pdf *gofpdf.Fpdf, photo PhotoFigure) {
	if photo.Path != "" {
		options := gofpdf.ImageOptions{ReadDpi: true}
		pdf.ImageOptions(photo.Path, -1, -1, 120, 0, true, options, 0, "")
	}
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 5, photo.Caption, "", "L", false)
	pdf.SetFont("Helvetica", "", 9)
	for _, detail := range photo.Details {
		pdf.MultiCell(0, 5, detail, "", "L", false)
	}
	pdf.Ln(3)
}

// columnWidths splits the 174mm printable width, giving the first column
// double weight.
func columnWidths(count int) []float64 {
	if count == 0 {
		return nil
	}
	const printable = 174.0
	unit := printable / float64(count+1)

	widths := make([]float64, count)
	widths[0] = unit * 2
	for i := 1; i < count; i++ {
		widths[i] = unit
	}
	return widths
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func footerLine(branding Branding) string {
	parts := make([]string, 0, 2)
	if branding.FooterText != "" {
		parts = append(parts, branding.FooterText)
	}
	if branding.Contact != "" {
		parts = append(parts, branding.Contact)
	}
	return strings.Join(parts, " | ")
}

// hexRGB parses a six-digit hex color, falling back to near-black.
func hexRGB(hex string) (int, int, int) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return 30, 30, 30
	}
	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 30, 30, 30
	}
	return int(value >> 16), int(value >> 8 & 0xFF), int(value & 0xFF)
}
