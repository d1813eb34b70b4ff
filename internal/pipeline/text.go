package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
	ledongthuc "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// extractText pulls plain text from one text-kind input. PDF inputs are
// structurally validated and page-count gated before extraction.
func (o *Orchestrator) extractText(path, fileName string) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return o.extractPDFText(path, fileName)
	case ".docx":
		return o.extractDOCXText(path, fileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text input %s: %w", fileName, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (o *Orchestrator) extractDOCXText(path, fileName string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open docx %s: %w", fileName, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat docx %s: %w", fileName, err)
	}

	doc, err := docx.Parse(file, info.Size())
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a readable DOCX", ErrUnsupportedMedia, fileName)
	}

	var b strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch block := item.(type) {
		case *docx.Paragraph, *docx.Table:
			fmt.Fprintln(&b, block)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func (o *Orchestrator) extractPDFText(path, fileName string) (string, error) {
	if err := api.ValidateFile(path, nil); err != nil {
		return "", fmt.Errorf("%w: %s is not a readable PDF", ErrUnsupportedMedia, fileName)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s page count unknown", ErrUnsupportedMedia, fileName)
	}
	if pages > o.config.MaxPDFPages {
		return "", fmt.Errorf("%w: %s has %d pages", ErrUnsupportedMedia, fileName, pages)
	}

	file, reader, err := ledongthuc.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", fileName, err)
	}
	defer file.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text %s: %w", fileName, err)
	}

	text, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", fileName, err)
	}
	return strings.TrimSpace(string(text)), nil
}

// combineSources joins per-file text with labeled delimiters. A single
// source passes through unlabeled.
func combineSources(sources []string) string {
	filled := make([]string, 0, len(sources))
	for _, source := range sources {
		if source = strings.TrimSpace(source); source != "" {
			filled = append(filled, source)
		}
	}

	if len(filled) <= 1 {
		return strings.Join(filled, "")
	}

	var b strings.Builder
	for i, source := range filled {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- File %d ---\n%s", i+1, source)
	}
	return b.String()
}
