package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/scopeline/scopeline/internal/uploads"
)

var (
	// ErrUnsupportedMedia indicates a file outside the accepted type set.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrNoUsableInput indicates a start request with nothing to process.
	ErrNoUsableInput = errors.New("no audio, video, or text input")
)

// Kind buckets an input file by how the pipeline consumes it.
type Kind int

const (
	KindVideo Kind = iota
	KindAudio
	KindPhoto
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindPhoto:
		return "photo"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

var extKinds = map[string]Kind{
	".mp4":  KindVideo,
	".mov":  KindVideo,
	".webm": KindVideo,
	".mp3":  KindAudio,
	".wav":  KindAudio,
	".m4a":  KindAudio,
	".ogg":  KindAudio,
	".jpg":  KindPhoto,
	".jpeg": KindPhoto,
	".png":  KindPhoto,
	".heic": KindPhoto,
	".txt":  KindText,
	".pdf":  KindText,
	".docx": KindText,
}

// input pairs an assembled upload with its classified kind.
type input struct {
	file *uploads.Assembled
	kind Kind
}

// classifyInputs validates every assembled file against the accepted type
// set. Classification happens before the job starts so an unsupported file
// rejects the request instead of failing the job later.
func classifyInputs(req uploads.StartRequest) ([]input, error) {
	files := make([]*uploads.Assembled, 0, len(req.Attached)+1)
	if req.Primary != nil {
		files = append(files, req.Primary)
	}
	files = append(files, req.Attached...)

	inputs := make([]input, 0, len(files))
	usable := strings.TrimSpace(req.RawText) != ""

	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.FileName))
		kind, ok := extKinds[ext]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, file.FileName)
		}
		if kind != KindPhoto {
			usable = true
		}
		inputs = append(inputs, input{file: file, kind: kind})
	}

	if !usable {
		return nil, ErrNoUsableInput
	}
	return inputs, nil
}

func filterInputs(inputs []input, kinds ...Kind) []input {
	out := make([]input, 0, len(inputs))
	for _, in := range inputs {
		for _, kind := range kinds {
			if in.kind == kind {
				out = append(out, in)
				break
			}
		}
	}
	return out
}
