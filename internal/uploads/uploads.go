// Package uploads implements the chunked upload assembler. Large files arrive
// as indexed byte ranges tagged by a session id, are staged durably on disk,
// and are reassembled in index order at finalize time.
package uploads

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/scopeline/scopeline/pkg/lifecycle"
)

// ChunkCommand carries one chunk of an in-flight upload.
// SessionID is empty on the first chunk of a new session.
type ChunkCommand struct {
	SessionID   string
	Data        []byte
	ChunkIndex  int
	TotalChunks int
	FileName    string
	ContentType string
}

// ChunkReceipt reports session progress after a chunk is accepted.
type ChunkReceipt struct {
	SessionID      string `json:"session_id"`
	ChunkIndex     int    `json:"chunk_index"`
	ReceivedChunks int    `json:"received_chunks"`
	TotalChunks    int    `json:"total_chunks"`
	Progress       int    `json:"progress"`
	Complete       bool   `json:"complete"`
}

// Assembled is a fully reassembled upload handed off to the pipeline.
// The receiver owns the backing file and must call Cleanup when done.
type Assembled struct {
	SessionID   uuid.UUID
	FileName    string
	ContentType string
	Path        string
	Size        int64
}

// Open returns a reader over the assembled bytes.
func (a *Assembled) Open() (io.ReadCloser, error) {
	return os.Open(a.Path)
}

// Cleanup removes the assembled file and its per-session staging directory.
func (a *Assembled) Cleanup() {
	os.RemoveAll(filepath.Dir(a.Path))
}

// System defines the public contract for the upload assembler.
type System interface {
	Handler(starter Starter) *Handler

	// Start registers the idle-session janitor with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error

	// AcceptChunk stages one chunk, creating the session when SessionID is
	// empty. Re-delivery of a received index is idempotent.
	AcceptChunk(ctx context.Context, cmd ChunkCommand) (*ChunkReceipt, error)

	// Finalize reassembles a complete session into one contiguous file and
	// releases the per-chunk staging storage. Fails with ErrIncompleteUpload
	// when chunks are missing.
	Finalize(ctx context.Context, sessionID string) (*Assembled, error)

	// Discard removes a session and its staged bytes without assembling.
	Discard(sessionID string) error
}
