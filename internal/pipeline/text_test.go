package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
)

func TestExtractDOCXText(t *testing.T) {
	w := docx.New().WithDefaultTheme()
	w.AddParagraph().AddText("Replace the subfloor in the hallway.")
	w.AddParagraph().AddText("Client wants matching oak throughout.")

	path := filepath.Join(t.TempDir(), "notes.docx")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create docx: %v", err)
	}
	if _, err := w.WriteTo(file); err != nil {
		t.Fatalf("write docx: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close docx: %v", err)
	}

	o := &Orchestrator{}
	text, err := o.extractText(path, "notes.docx")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for _, want := range []string{"subfloor", "matching oak"} {
		if !strings.Contains(text, want) {
			t.Errorf("extracted text missing %q: %q", want, text)
		}
	}
}

func TestExtractDOCXTextRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.docx")
	if err := os.WriteFile(path, []byte("not a zip archive"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	o := &Orchestrator{}
	if _, err := o.extractText(path, "bad.docx"); !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
}
