package render

import (
	"bytes"
	"fmt"
	"os"

	"github.com/fumiama/go-docx"
)

// WriteDOCX renders the document as a Word file.
func WriteDOCX(doc *Document) ([]byte, error) {
	w := docx.New().WithDefaultTheme()

	if doc.Branding.LogoPath != "" {
		data, err := os.ReadFile(doc.Branding.LogoPath)
		if err != nil {
			return nil, fmt.Errorf("read logo %s: %w", doc.Branding.LogoPath, err)
		}
		if _, err := w.AddParagraph().AddInlineDrawing(data); err != nil {
			return nil, fmt.Errorf("embed logo %s: %w", doc.Branding.LogoPath, err)
		}
	}

	title := w.AddParagraph()
	title.AddText(doc.Title).Size("40").Bold().Color(doc.Branding.PrimaryColor)

	subtitle := w.AddParagraph()
	subtitle.AddText(doc.Subtitle).Size("22").Color("666666")

	if doc.Branding.CompanyName != "" {
		company := doc.Branding.CompanyName
		if doc.Branding.Tagline != "" {
			company += ", " + doc.Branding.Tagline
		}
		w.AddParagraph().AddText(company).Size("22").Color("666666")
	}
	w.AddParagraph()

	for _, section := range doc.Sections {
		heading := w.AddParagraph()
		heading.AddText(section.Heading).Size("28").Bold().Color(doc.Branding.AccentColor)

		for _, paragraph := range section.Paragraphs {
			w.AddParagraph().AddText(paragraph).Size("22")
		}
		for _, bullet := range section.Bullets {
			w.AddParagraph().AddText("- " + bullet).Size("22")
		}
		for _, entry := range section.Checklist {
			w.AddParagraph().AddText("☐ " + entry).Size("22")
		}

		if section.Table != nil {
			if err := writeDOCXTable(w, section.Table, doc.Branding); err != nil {
				return nil, err
			}
		}
		for _, photo := range section.Photos {
			if err := writeDOCXPhoto(w, photo); err != nil {
				return nil, err
			}
		}
		w.AddParagraph()
	}

	if footer := footerLine(doc.Branding); footer != "" {
		w.AddParagraph().AddText(footer).Size("18").Color("999999")
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeDOCXTable(w *docx.Docx, table *Table, branding Branding) error {
	rows := len(table.Rows) + 1
	cols := len(table.Header)
	if cols == 0 {
		return nil
	}

	t := w.AddTable(rows, cols, 0, nil)
	for c, cell := range table.Header {
		t.TableRows[0].TableCells[c].AddParagraph().AddText(cell).Bold().Color(branding.PrimaryColor)
	}
	for r, row := range table.Rows {
		for c, cell := range row {
			if c >= cols {
				break
			}
			t.TableRows[r+1].TableCells[c].AddParagraph().AddText(cell)
		}
	}
	return nil
}

func writeDOCXPhoto(w *docx.Docx, photo PhotoFigure) error {
	if photo.Path != "" {
		data, err := os.ReadFile(photo.Path)
		if err != nil {
			return fmt.Errorf("read photo %s: %w", photo.Path, err)
		}
		if _, err := w.AddParagraph().AddInlineDrawing(data); err != nil {
			return fmt.Errorf("embed photo %s: %w", photo.Path, err)
		}
	}

	w.AddParagraph().AddText(photo.Caption).Size("20").Color("666666")
	for _, detail := range photo.Details {
		w.AddParagraph().AddText(detail).Size("18").Color("666666")
	}
	return nil
}
