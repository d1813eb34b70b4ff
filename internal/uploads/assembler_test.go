package uploads_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/scopeline/scopeline/internal/uploads"
)

func newAssembler(t *testing.T) uploads.System {
	t.Helper()
	cfg := &uploads.Config{
		StagingDir:  t.TempDir(),
		MaxFileSize: "1KB",
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}
	return uploads.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sendChunk(t *testing.T, sys uploads.System, sessionID string, index, total int, data []byte) *uploads.ChunkReceipt {
	t.Helper()
	receipt, err := sys.AcceptChunk(context.Background(), uploads.ChunkCommand{
		SessionID:   sessionID,
		Data:        data,
		ChunkIndex:  index,
		TotalChunks: total,
		FileName:    "walkthrough.mp4",
		ContentType: "video/mp4",
	})
	if err != nil {
		t.Fatalf("chunk %d: %v", index, err)
	}
	return receipt
}

func TestAssembleInOrder(t *testing.T) {
	sys := newAssembler(t)

	first := sendChunk(t, sys, "", 0, 3, []byte("aaa"))
	if first.SessionID == "" {
		t.Fatal("expected session id on first chunk")
	}
	if first.ReceivedChunks != 1 || first.Complete {
		t.Errorf("unexpected first receipt: %+v", first)
	}

	sendChunk(t, sys, first.SessionID, 1, 3, []byte("bbb"))
	last := sendChunk(t, sys, first.SessionID, 2, 3, []byte("ccc"))
	if !last.Complete || last.Progress != 100 {
		t.Errorf("expected complete session, got %+v", last)
	}

	assembled, err := sys.Finalize(context.Background(), first.SessionID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	defer assembled.Cleanup()

	data, err := os.ReadFile(assembled.Path)
	if err != nil {
		t.Fatalf("read assembled: %v", err)
	}
	if !bytes.Equal(data, []byte("aaabbbccc")) {
		t.Errorf("assembled bytes: got %q", data)
	}
	if assembled.Size != 9 || assembled.FileName != "walkthrough.mp4" {
		t.Errorf("unexpected metadata: %+v", assembled)
	}
}

func TestAssembleOutOfOrder(t *testing.T) {
	sys := newAssembler(t)

	first := sendChunk(t, sys, "", 2, 3, []byte("ccc"))
	sendChunk(t, sys, first.SessionID, 0, 3, []byte("aaa"))
	sendChunk(t, sys, first.SessionID, 1, 3, []byte("bbb"))

	assembled, err := sys.Finalize(context.Background(), first.SessionID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	defer assembled.Cleanup()

	data, _ := os.ReadFile(assembled.Path)
	if !bytes.Equal(data, []byte("aaabbbccc")) {
		t.Errorf("out-of-order chunks must assemble by index, got %q", data)
	}
}

func TestDuplicateChunkIsIdempotent(t *testing.T) {
	sys := newAssembler(t)

	first := sendChunk(t, sys, "", 0, 2, []byte("aaa"))
	dup := sendChunk(t, sys, first.SessionID, 0, 2, []byte("aaa"))
	if dup.ReceivedChunks != 1 {
		t.Errorf("duplicate chunk counted twice: %+v", dup)
	}

	sendChunk(t, sys, first.SessionID, 1, 2, []byte("bbb"))
	assembled, err := sys.Finalize(context.Background(), first.SessionID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	defer assembled.Cleanup()
	if assembled.Size != 6 {
		t.Errorf("expected 6 bytes, got %d", assembled.Size)
	}
}

func TestCleanupRemovesSessionDirectory(t *testing.T) {
	sys := newAssembler(t)

	first := sendChunk(t, sys, "", 0, 1, []byte("aaa"))
	assembled, err := sys.Finalize(context.Background(), first.SessionID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	sessionDir := filepath.Dir(assembled.Path)
	if _, err := os.Stat(sessionDir); err != nil {
		t.Fatalf("expected session directory before cleanup: %v", err)
	}

	assembled.Cleanup()
	if _, err := os.Stat(sessionDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected session directory removed, got %v", err)
	}
}

func TestFinalizeIncompleteSession(t *testing.T) {
	sys := newAssembler(t)

	first := sendChunk(t, sys, "", 0, 3, []byte("aaa"))
	if _, err := sys.Finalize(context.Background(), first.SessionID); !errors.Is(err, uploads.ErrIncompleteUpload) {
		t.Fatalf("expected ErrIncompleteUpload, got %v", err)
	}

	// The failed finalize must leave the session intact.
	sendChunk(t, sys, first.SessionID, 1, 3, []byte("bbb"))
	sendChunk(t, sys, first.SessionID, 2, 3, []byte("ccc"))
	assembled, err := sys.Finalize(context.Background(), first.SessionID)
	if err != nil {
		t.Fatalf("finalize after completion: %v", err)
	}
	assembled.Cleanup()
}

func TestConflictingMetadataRejected(t *testing.T) {
	sys := newAssembler(t)

	first := sendChunk(t, sys, "", 0, 3, []byte("aaa"))

	_, err := sys.AcceptChunk(context.Background(), uploads.ChunkCommand{
		SessionID:   first.SessionID,
		Data:        []byte("bbb"),
		ChunkIndex:  1,
		TotalChunks: 5,
		FileName:    "walkthrough.mp4",
	})
	if !errors.Is(err, uploads.ErrConflictingMetadata) {
		t.Fatalf("expected ErrConflictingMetadata, got %v", err)
	}

	// The rejected chunk must not corrupt session state.
	receipt := sendChunk(t, sys, first.SessionID, 1, 3, []byte("bbb"))
	if receipt.ReceivedChunks != 2 {
		t.Errorf("expected 2 received chunks, got %d", receipt.ReceivedChunks)
	}
}

func TestChunkValidation(t *testing.T) {
	sys := newAssembler(t)

	tests := []struct {
		name    string
		cmd     uploads.ChunkCommand
		wantErr error
	}{
		{
			name:    "empty data",
			cmd:     uploads.ChunkCommand{ChunkIndex: 0, TotalChunks: 1},
			wantErr: uploads.ErrEmptyChunk,
		},
		{
			name:    "negative index",
			cmd:     uploads.ChunkCommand{Data: []byte("x"), ChunkIndex: -1, TotalChunks: 2},
			wantErr: uploads.ErrChunkOutOfRange,
		},
		{
			name:    "index beyond total",
			cmd:     uploads.ChunkCommand{Data: []byte("x"), ChunkIndex: 2, TotalChunks: 2},
			wantErr: uploads.ErrChunkOutOfRange,
		},
		{
			name:    "zero total",
			cmd:     uploads.ChunkCommand{Data: []byte("x"), ChunkIndex: 0, TotalChunks: 0},
			wantErr: uploads.ErrChunkOutOfRange,
		},
		{
			name:    "unknown session",
			cmd:     uploads.ChunkCommand{SessionID: "missing", Data: []byte("x"), ChunkIndex: 0, TotalChunks: 1},
			wantErr: uploads.ErrSessionNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := sys.AcceptChunk(context.Background(), tc.cmd); !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFileSizeLimit(t *testing.T) {
	sys := newAssembler(t)

	big := bytes.Repeat([]byte("x"), 600)
	first := sendChunk(t, sys, "", 0, 2, big)

	_, err := sys.AcceptChunk(context.Background(), uploads.ChunkCommand{
		SessionID:   first.SessionID,
		Data:        bytes.Repeat([]byte("y"), 600),
		ChunkIndex:  1,
		TotalChunks: 2,
	})
	if !errors.Is(err, uploads.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestDiscard(t *testing.T) {
	sys := newAssembler(t)

	first := sendChunk(t, sys, "", 0, 2, []byte("aaa"))
	if err := sys.Discard(first.SessionID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if err := sys.Discard(first.SessionID); !errors.Is(err, uploads.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on second discard, got %v", err)
	}
	if _, err := sys.Finalize(context.Background(), first.SessionID); !errors.Is(err, uploads.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after discard, got %v", err)
	}
}
