package uploads

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scopeline/scopeline/pkg/lifecycle"
)

type session struct {
	id          uuid.UUID
	fileName    string
	contentType string
	totalChunks int
	dir         string

	mu         sync.Mutex
	received   map[int]struct{}
	stagedSize int64
	lastSeen   time.Time
}

type assembler struct {
	cfg    *Config
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates an upload assembler staging chunks under cfg.StagingDir.
func New(cfg *Config, logger *slog.Logger) System {
	return &assembler{
		cfg:      cfg,
		logger:   logger.With("system", "uploads"),
		sessions: make(map[string]*session),
	}
}

func (a *assembler) Handler(starter Starter) *Handler {
	return NewHandler(a, starter, a.logger)
}

// Start registers the idle-session janitor with the lifecycle coordinator.
func (a *assembler) Start(lc *lifecycle.Coordinator) error {
	a.logger.Info("starting upload assembler", "staging_dir", a.cfg.StagingDir)

	if err := os.MkdirAll(a.cfg.StagingDir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	lc.OnShutdown(func() {
		ticker := time.NewTicker(a.cfg.SweepIntervalDuration())
		defer ticker.Stop()

		for {
			select {
			case <-lc.Context().Done():
				return
			case <-ticker.C:
				a.sweep()
			}
		}
	})

	return nil
}

func (a *assembler) AcceptChunk(ctx context.Context, cmd ChunkCommand) (*ChunkReceipt, error) {
	if len(cmd.Data) == 0 {
		return nil, ErrEmptyChunk
	}
	if cmd.TotalChunks < 1 || cmd.ChunkIndex < 0 || cmd.ChunkIndex >= cmd.TotalChunks {
		return nil, fmt.Errorf(
			"%w: index %d of %d",
			ErrChunkOutOfRange, cmd.ChunkIndex, cmd.TotalChunks,
		)
	}

	s, err := a.resolveSession(cmd)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cmd.TotalChunks != s.totalChunks {
		return nil, fmt.Errorf(
			"%w: session declares %d chunks, chunk declares %d",
			ErrConflictingMetadata, s.totalChunks, cmd.TotalChunks,
		)
	}

	_, duplicate := s.received[cmd.ChunkIndex]
	if !duplicate && s.stagedSize+int64(len(cmd.Data)) > a.cfg.MaxFileSizeBytes() {
		return nil, ErrFileTooLarge
	}

	if err := a.stageChunk(s, cmd.ChunkIndex, cmd.Data); err != nil {
		return nil, err
	}

	if !duplicate {
		s.received[cmd.ChunkIndex] = struct{}{}
		s.stagedSize += int64(len(cmd.Data))
	}
	s.lastSeen = time.Now()

	received := len(s.received)
	return &ChunkReceipt{
		SessionID:      s.id.String(),
		ChunkIndex:     cmd.ChunkIndex,
		ReceivedChunks: received,
		TotalChunks:    s.totalChunks,
		Progress:       received * 100 / s.totalChunks,
		Complete:       received == s.totalChunks,
	}, nil
}

func (a *assembler) Finalize(ctx context.Context, sessionID string) (*Assembled, error) {
	a.mu.Lock()
	s, ok := a.sessions[sessionID]
	a.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.received) < s.totalChunks {
		return nil, fmt.Errorf(
			"%w: %d of %d chunks received",
			ErrIncompleteUpload, len(s.received), s.totalChunks,
		)
	}

	path := filepath.Join(s.dir, "assembled")
	size, err := a.concatenate(s, path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	for i := range s.totalChunks {
		os.Remove(chunkPath(s.dir, i))
	}

	a.mu.Lock()
	delete(a.sessions, sessionID)
	a.mu.Unlock()

	a.logger.Info(
		"upload assembled",
		"session", sessionID,
		"filename", s.fileName,
		"size", size,
	)

	return &Assembled{
		SessionID:   s.id,
		FileName:    s.fileName,
		ContentType: s.contentType,
		Path:        path,
		Size:        size,
	}, nil
}

func (a *assembler) Discard(sessionID string) error {
	a.mu.Lock()
	s, ok := a.sessions[sessionID]
	delete(a.sessions, sessionID)
	a.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	os.RemoveAll(s.dir)
	return nil
}

// resolveSession finds the session for cmd, creating one when no id is given.
func (a *assembler) resolveSession(cmd ChunkCommand) (*session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cmd.SessionID != "" {
		s, ok := a.sessions[cmd.SessionID]
		if !ok {
			return nil, ErrSessionNotFound
		}
		return s, nil
	}

	id := uuid.New()
	dir := filepath.Join(a.cfg.StagingDir, id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	s := &session{
		id:          id,
		fileName:    cmd.FileName,
		contentType: cmd.ContentType,
		totalChunks: cmd.TotalChunks,
		dir:         dir,
		received:    make(map[int]struct{}),
		lastSeen:    time.Now(),
	}
	a.sessions[id.String()] = s

	a.logger.Info(
		"upload session created",
		"session", id,
		"filename", cmd.FileName,
		"total_chunks", cmd.TotalChunks,
	)
	return s, nil
}

// stageChunk writes chunk bytes durably: to a temp file first, then renamed
// into place so a crashed write never leaves a truncated chunk behind.
func (a *assembler) stageChunk(s *session, index int, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "chunk-partial-*")
	if err != nil {
		return fmt.Errorf("stage chunk %d: %w", index, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("stage chunk %d: %w", index, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("stage chunk %d: %w", index, err)
	}

	if err := os.Rename(tmp.Name(), chunkPath(s.dir, index)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("stage chunk %d: %w", index, err)
	}
	return nil
}

// concatenate writes chunks to path in index order, regardless of arrival order.
func (a *assembler) concatenate(s *session, path string) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create assembled file: %w", err)
	}
	defer out.Close()

	var size int64
	for i := range s.totalChunks {
		chunk, err := os.Open(chunkPath(s.dir, i))
		if err != nil {
			return 0, fmt.Errorf("open chunk %d: %w", i, err)
		}

		n, err := io.Copy(out, chunk)
		chunk.Close()
		if err != nil {
			return 0, fmt.Errorf("append chunk %d: %w", i, err)
		}
		size += n
	}

	return size, nil
}

func (a *assembler) sweep() {
	cutoff := time.Now().Add(-a.cfg.IdleTimeoutDuration())

	a.mu.Lock()
	var stale []*session
	for id, s := range a.sessions {
		s.mu.Lock()
		idle := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if idle {
			stale = append(stale, s)
			delete(a.sessions, id)
		}
	}
	a.mu.Unlock()

	for _, s := range stale {
		os.RemoveAll(s.dir)
		a.logger.Info("idle upload session discarded", "session", s.id)
	}
}

func chunkPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("chunk_%06d", index))
}
