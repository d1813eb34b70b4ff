package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/scopeline/scopeline/internal/analyses"
	"github.com/scopeline/scopeline/internal/extraction"
	"github.com/scopeline/scopeline/internal/jobs"
	"github.com/scopeline/scopeline/internal/metrics"
	"github.com/scopeline/scopeline/internal/pipeline"
	"github.com/scopeline/scopeline/internal/render"
	"github.com/scopeline/scopeline/internal/taxonomy"
	"github.com/scopeline/scopeline/internal/transcription"
	"github.com/scopeline/scopeline/internal/uploads"
	"github.com/scopeline/scopeline/internal/vision"
	"github.com/scopeline/scopeline/pkg/lifecycle"
	"github.com/scopeline/scopeline/pkg/middleware"
	"github.com/scopeline/scopeline/pkg/pagination"
	"github.com/scopeline/scopeline/pkg/resilience"
	"github.com/scopeline/scopeline/pkg/storage"
)

type fakeTranscriber struct {
	err   error
	texts map[string]string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, media transcription.Media) (*transcription.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	text, ok := f.texts[media.FileName]
	if !ok {
		text = "transcript of " + media.FileName
	}
	return &transcription.Transcript{Text: text, DurationSeconds: 60, CostUSD: 0.36}, nil
}

type fakeExtractor struct {
	mu      sync.Mutex
	err     error
	seen    string
	release chan struct{}
}

func (f *fakeExtractor) Extract(_ context.Context, transcript string, _ *taxonomy.Taxonomy) (*extraction.Extraction, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.seen = transcript
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &extraction.Extraction{
		Summary: &extraction.ProjectSummary{Overview: "Kitchen remodel."},
		ScopeItems: []extraction.ScopeItem{
			{CostCode: "02", Category: "Demolition", Description: "Gut kitchen", RiskLevel: extraction.RiskMedium},
			{CostCode: "06", Category: "Carpentry", Description: "Install cabinets", RiskLevel: extraction.RiskLow},
		},
		CompletenessScore: 80,
		CostUSD:           0.25,
	}, nil
}

type fakeAnalyzer struct {
	failFor map[string]bool
}

func (f *fakeAnalyzer) Analyze(_ context.Context, photo vision.Photo, _ string, _ *taxonomy.Taxonomy) (*vision.Annotation, error) {
	if f.failFor[photo.FileName] {
		return nil, &vision.ProviderError{Status: 400, Body: "rejected"}
	}
	return &vision.Annotation{
		FileName: photo.FileName,
		Caption:  "photo of " + photo.FileName,
		CostUSD:  0.01,
	}, nil
}

type fakeStorage struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	failMatch string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{blobs: make(map[string][]byte)}
}

func (f *fakeStorage) Start(*lifecycle.Coordinator) error { return nil }

func (f *fakeStorage) Upload(_ context.Context, key string, reader io.Reader, _ string) error {
	if f.failMatch != "" && strings.Contains(key, f.failMatch) {
		return fmt.Errorf("upload rejected for %s", key)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = data
	return nil
}

func (f *fakeStorage) Download(_ context.Context, key string) (*storage.DownloadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.DownloadResult{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: int64(len(data)),
	}, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, key)
	return nil
}

func (f *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[key]
	return ok, nil
}

type fakeArchive struct {
	mu    sync.Mutex
	saved []analyses.SaveCommand
	err   error
}

func (f *fakeArchive) Handler() *analyses.Handler { return nil }

func (f *fakeArchive) List(context.Context, string, pagination.PageRequest, analyses.Filters) (*pagination.PageResult[analyses.Analysis], error) {
	return nil, analyses.ErrNotFound
}

func (f *fakeArchive) Find(context.Context, string, uuid.UUID) (*analyses.Analysis, error) {
	return nil, analyses.ErrNotFound
}

func (f *fakeArchive) Delete(context.Context, string, uuid.UUID) error { return nil }

func (f *fakeArchive) OpenDocument(context.Context, string, uuid.UUID, uuid.UUID) (*analyses.DocumentStream, error) {
	return nil, analyses.ErrDocumentNotFound
}

func (f *fakeArchive) Save(_ context.Context, cmd analyses.SaveCommand) (*analyses.Analysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, cmd)

	a := &analyses.Analysis{ID: cmd.ID, TenantID: cmd.TenantID}
	for _, doc := range cmd.Documents {
		a.Documents = append(a.Documents, analyses.Document{
			ID:         uuid.New(),
			AnalysisID: cmd.ID,
			Format:     doc.Format,
			FileName:   doc.FileName,
			StorageKey: doc.StorageKey,
		})
	}
	return a, nil
}

type harness struct {
	orchestrator *pipeline.Orchestrator
	jobs         *jobs.System
	storage      *fakeStorage
	archive      *fakeArchive
	transcriber  *fakeTranscriber
	extractor    *fakeExtractor
	analyzer     *fakeAnalyzer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	jobSystem := jobs.NewSystem(jobs.Config{
		Backend:       jobs.BackendMemory,
		TTL:           "1h",
		SweepInterval: "1m",
	}, logger)

	h := &harness{
		jobs:        jobSystem,
		storage:     newFakeStorage(),
		archive:     &fakeArchive{},
		transcriber: &fakeTranscriber{},
		extractor:   &fakeExtractor{},
		analyzer:    &fakeAnalyzer{},
	}

	config := pipeline.Config{}
	if err := config.Finalize(pipeline.Env{}); err != nil {
		t.Fatalf("finalize config: %v", err)
	}
	config.JobTimeout = "30s"

	h.orchestrator = pipeline.New(config, pipeline.Deps{
		Jobs:        jobSystem,
		Storage:     h.storage,
		Archive:     h.archive,
		Transcriber: h.transcriber,
		Extractor:   h.extractor,
		Analyzer:    h.analyzer,
		Executor: resilience.NewExecutor(resilience.Config{
			MaxAttempts:    2,
			InitialBackoff: "1ms",
			MaxBackoff:     "5ms",
			Multiplier:     2,
		}, logger),
		Metrics: metrics.New("scopeline_test"),
		Branding: render.Branding{
			CompanyName:  "Scopeline",
			PrimaryColor: "1F3864",
			AccentColor:  "C55A11",
		},
		Logger: logger,
	})
	return h
}

func tenantContext(tenant string) context.Context {
	return middleware.WithIdentity(context.Background(), middleware.Identity{Tenant: tenant})
}

func stageFile(t *testing.T, name string, data []byte) *uploads.Assembled {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("stage %s: %v", name, err)
	}
	return &uploads.Assembled{
		SessionID: uuid.New(),
		FileName:  name,
		Path:      path,
		Size:      int64(len(data)),
	}
}

func stagePNG(t *testing.T, name string) *uploads.Assembled {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return stageFile(t, name, buf.Bytes())
}

func awaitTerminal(t *testing.T, h *harness, id uuid.UUID) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		job, err := h.jobs.Store().Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func TestPipelineCompletesFullJob(t *testing.T) {
	h := newHarness(t)
	req := uploads.StartRequest{
		Primary: stageFile(t, "walkthrough.mp3", []byte("audio")),
		Attached: []*uploads.Assembled{
			stagePNG(t, "kitchen.png"),
			stageFile(t, "notes.txt", []byte("Client wants quartz counters.")),
		},
		RawText:     "Budget is flexible.",
		ProjectName: "Maple Street",
	}

	id, err := h.orchestrator.Start(tenantContext("tenant-a"), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	job := awaitTerminal(t, h, id)
	if job.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s (%+v)", job.Status, job.Error)
	}
	if job.Progress != 100 {
		t.Errorf("expected progress 100, got %d", job.Progress)
	}
	if job.TenantID != "tenant-a" {
		t.Errorf("expected tenant carried onto job, got %q", job.TenantID)
	}

	result := job.Result
	if result == nil {
		t.Fatal("expected result on completed job")
	}

	// Three text sources merge with file delimiters.
	for _, want := range []string{"--- File 1 ---", "transcript of walkthrough.mp3", "quartz counters", "Budget is flexible."} {
		if !strings.Contains(result.Transcript, want) {
			t.Errorf("transcript missing %q", want)
		}
	}
	if len(result.ScopeItems) != 2 {
		t.Errorf("expected 2 scope items, got %d", len(result.ScopeItems))
	}
	if len(result.Photos) != 1 || result.Photos[0].FileName != "kitchen.png" {
		t.Errorf("expected one photo annotation, got %+v", result.Photos)
	}
	if len(result.Documents) != 2 {
		t.Fatalf("expected docx and pdf documents, got %+v", result.Documents)
	}
	for _, doc := range result.Documents {
		if !strings.HasPrefix(doc.URL, fmt.Sprintf("/analyses/%s/documents/", id)) {
			t.Errorf("unexpected document url %q", doc.URL)
		}
	}

	want := 0.36 + 0.25 + 0.01
	if result.CostUSD < want-1e-9 || result.CostUSD > want+1e-9 {
		t.Errorf("expected cost %f, got %f", want, result.CostUSD)
	}

	if len(h.archive.saved) != 1 {
		t.Fatalf("expected one archived analysis, got %d", len(h.archive.saved))
	}
	if len(h.storage.blobs) != 2 {
		t.Errorf("expected 2 stored blobs, got %d", len(h.storage.blobs))
	}
}

func TestPipelinePhotoFailureBecomesGap(t *testing.T) {
	h := newHarness(t)
	h.analyzer.failFor = map[string]bool{"bad.png": true}

	req := uploads.StartRequest{
		Primary: stageFile(t, "walkthrough.mp3", []byte("audio")),
		Attached: []*uploads.Assembled{
			stagePNG(t, "good.png"),
			stagePNG(t, "bad.png"),
		},
	}

	id, err := h.orchestrator.Start(tenantContext("tenant-a"), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	job := awaitTerminal(t, h, id)
	if job.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed despite photo failure, got %s", job.Status)
	}
	if len(job.Result.Photos) != 1 || job.Result.Photos[0].FileName != "good.png" {
		t.Errorf("expected one surviving annotation, got %+v", job.Result.Photos)
	}
	if len(job.Result.PhotoGaps) != 1 || job.Result.PhotoGaps[0] != "bad.png" {
		t.Errorf("expected bad.png recorded as gap, got %v", job.Result.PhotoGaps)
	}
}

func TestPipelineDegradesOnSingleFormatFailure(t *testing.T) {
	h := newHarness(t)
	h.storage.failMatch = ".docx"

	req := uploads.StartRequest{
		Primary: stageFile(t, "walkthrough.mp3", []byte("audio")),
	}

	id, err := h.orchestrator.Start(tenantContext("tenant-a"), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	job := awaitTerminal(t, h, id)
	if job.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed with degraded output, got %s", job.Status)
	}
	if len(job.Result.Documents) != 1 || job.Result.Documents[0].Format != "pdf" {
		t.Errorf("expected only the pdf to survive, got %+v", job.Result.Documents)
	}
	if _, ok := job.Result.RenderErrors["docx"]; !ok {
		t.Errorf("expected docx render error recorded, got %v", job.Result.RenderErrors)
	}
}

func TestPipelineFailsWhenAllFormatsFail(t *testing.T) {
	h := newHarness(t)
	h.storage.failMatch = "-scope-"

	req := uploads.StartRequest{
		Primary: stageFile(t, "walkthrough.mp3", []byte("audio")),
	}

	id, err := h.orchestrator.Start(tenantContext("tenant-a"), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	job := awaitTerminal(t, h, id)
	if job.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Error == nil || job.Error.Reason != pipeline.ReasonDocumentRender {
		t.Errorf("expected document_render_error, got %+v", job.Error)
	}
}

func TestPipelineArchiveFailureFailsJob(t *testing.T) {
	h := newHarness(t)
	h.archive.err = errors.New("insert analysis: connection refused")

	req := uploads.StartRequest{
		Primary: stageFile(t, "walkthrough.mp3", []byte("audio")),
	}

	id, err := h.orchestrator.Start(tenantContext("tenant-a"), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	job := awaitTerminal(t, h, id)
	if job.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Error == nil || job.Error.Reason != pipeline.ReasonStorage {
		t.Errorf("expected storage_error, got %+v", job.Error)
	}
}

func TestPipelineTranscriptionFailure(t *testing.T) {
	h := newHarness(t)
	h.transcriber.err = &transcription.ProviderError{Status: 401, Body: "bad key"}

	req := uploads.StartRequest{
		Primary: stageFile(t, "walkthrough.mp3", []byte("audio")),
	}

	id, err := h.orchestrator.Start(tenantContext("tenant-a"), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	job := awaitTerminal(t, h, id)
	if job.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Error.Reason != pipeline.ReasonTranscription {
		t.Errorf("expected transcription_provider_error, got %q", job.Error.Reason)
	}
}

func TestPipelineExtractionSchemaFailure(t *testing.T) {
	h := newHarness(t)
	h.extractor.err = fmt.Errorf("%w: twice malformed", extraction.ErrSchema)

	req := uploads.StartRequest{
		Primary: stageFile(t, "walkthrough.mp3", []byte("audio")),
	}

	id, err := h.orchestrator.Start(tenantContext("tenant-a"), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	job := awaitTerminal(t, h, id)
	if job.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Error.Reason != pipeline.ReasonExtractionSchema {
		t.Errorf("expected extraction_schema_error, got %q", job.Error.Reason)
	}
}

func TestStartRejectsUnsupportedMedia(t *testing.T) {
	h := newHarness(t)

	_, err := h.orchestrator.Start(tenantContext("tenant-a"), uploads.StartRequest{
		Primary: stageFile(t, "slides.pptx", []byte("deck")),
	})
	if !errors.Is(err, pipeline.ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
}

func TestStartRejectsPhotoOnlyInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.orchestrator.Start(tenantContext("tenant-a"), uploads.StartRequest{
		Primary: stagePNG(t, "lonely.png"),
	})
	if !errors.Is(err, pipeline.ErrNoUsableInput) {
		t.Fatalf("expected ErrNoUsableInput, got %v", err)
	}
}

func TestPipelineTextOnlyJobSkipsTranscription(t *testing.T) {
	h := newHarness(t)
	h.transcriber.err = &transcription.ProviderError{Status: 500, Body: "must not be called"}
	h.extractor.release = make(chan struct{})

	id, err := h.orchestrator.Start(tenantContext("tenant-a"), uploads.StartRequest{
		RawText:     "Replace the water heater and re-pipe the laundry room.",
		ProjectName: "Text Only",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Subscribe while extraction is held so every later stage event lands
	// on the channel.
	events, cancel := h.jobs.Broker().Subscribe(id)
	defer cancel()
	close(h.extractor.release)

	lastProgress := -1
	timeout := time.After(15 * time.Second)
collect:
	for {
		select {
		case event, ok := <-events:
			if !ok {
				break collect
			}
			if event.Status == jobs.StatusAnalyzingPhotos {
				t.Error("photo analysis stage announced for a job with no photos")
			}
			if event.Progress < lastProgress {
				t.Errorf("progress regressed from %d to %d", lastProgress, event.Progress)
			}
			lastProgress = event.Progress
			if event.Terminal() {
				break collect
			}
		case <-timeout:
			t.Fatal("timed out waiting for job events")
		}
	}

	job := awaitTerminal(t, h, id)
	if job.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s (%+v)", job.Status, job.Error)
	}
	h.extractor.mu.Lock()
	seen := h.extractor.seen
	h.extractor.mu.Unlock()
	if !strings.Contains(seen, "water heater") {
		t.Errorf("expected raw text fed to extraction, got %q", seen)
	}
}
