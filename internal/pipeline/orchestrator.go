// Package pipeline orchestrates walkthrough processing jobs: input
// validation, transcription, scope extraction, photo analysis, document
// generation, and archival. Each job runs on its own goroutine under a
// wall-clock budget; the orchestrator is the only writer of its job record.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/scopeline/scopeline/internal/analyses"
	"github.com/scopeline/scopeline/internal/extraction"
	"github.com/scopeline/scopeline/internal/jobs"
	"github.com/scopeline/scopeline/internal/metrics"
	"github.com/scopeline/scopeline/internal/render"
	"github.com/scopeline/scopeline/internal/taxonomy"
	"github.com/scopeline/scopeline/internal/transcription"
	"github.com/scopeline/scopeline/internal/uploads"
	"github.com/scopeline/scopeline/internal/vision"
	"github.com/scopeline/scopeline/pkg/middleware"
	"github.com/scopeline/scopeline/pkg/resilience"
	"github.com/scopeline/scopeline/pkg/storage"
)

// Stage progress boundaries. Progress within a stage interpolates between
// its floor and the next stage's floor.
const (
	pctTranscribing = 0
	pctParsing      = 50
	pctPhotos       = 75
	pctDocuments    = 85
	pctDone         = 100
)

// Orchestrator implements uploads.Starter over the full processing chain.
type Orchestrator struct {
	config      Config
	jobs        *jobs.System
	storage     storage.System
	archive     analyses.System
	transcriber transcription.Provider
	extractor   extraction.Extractor
	analyzer    vision.Analyzer
	exec        *resilience.Executor
	metrics     *metrics.Metrics
	branding    render.Branding
	logger      *slog.Logger
}

// Deps carries the orchestrator's collaborators.
type Deps struct {
	Jobs        *jobs.System
	Storage     storage.System
	Archive     analyses.System
	Transcriber transcription.Provider
	Extractor   extraction.Extractor
	Analyzer    vision.Analyzer
	Executor    *resilience.Executor
	Metrics     *metrics.Metrics
	Branding    render.Branding
	Logger      *slog.Logger
}

func New(config Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		config:      config,
		jobs:        deps.Jobs,
		storage:     deps.Storage,
		archive:     deps.Archive,
		transcriber: deps.Transcriber,
		extractor:   deps.Extractor,
		analyzer:    deps.Analyzer,
		exec:        deps.Executor,
		metrics:     deps.Metrics,
		branding:    deps.Branding,
		logger:      deps.Logger.With("system", "pipeline"),
	}
}

// jobParams is the validated, immutable shape of one job's request.
type jobParams struct {
	template string
	formats  []string
	tax      *taxonomy.Taxonomy
	rawText  string
}

// Start validates the input set, records the job as queued, and launches
// processing on a detached goroutine. The job id returns immediately for
// progress subscription.
func (o *Orchestrator) Start(ctx context.Context, req uploads.StartRequest) (uuid.UUID, error) {
	inputs, err := classifyInputs(req)
	if err != nil {
		return uuid.Nil, err
	}

	params, err := o.resolveParams(req)
	if err != nil {
		return uuid.Nil, err
	}

	now := time.Now()
	job := &jobs.Job{
		ID:          uuid.New(),
		TenantID:    middleware.TenantFrom(ctx),
		ProjectName: req.ProjectName,
		Status:      jobs.StatusQueued,
		Message:     "queued",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := o.jobs.Store().Create(ctx, job); err != nil {
		return uuid.Nil, err
	}

	o.metrics.JobStarted()
	o.logger.Info("job started",
		"job", job.ID,
		"tenant", job.TenantID,
		"inputs", len(inputs),
		"template", params.template,
	)

	go o.run(job, inputs, params)
	return job.ID, nil
}

func (o *Orchestrator) resolveParams(req uploads.StartRequest) (jobParams, error) {
	params := jobParams{
		template: req.Template,
		formats:  req.Formats,
		rawText:  req.RawText,
	}
	if params.template == "" {
		params.template = o.config.DefaultTemplate
	}
	switch params.template {
	case render.TemplateJRAL, render.TemplateTrade, render.TemplateNarrative:
	default:
		return jobParams{}, fmt.Errorf("%w: %s", render.ErrUnknownTemplate, params.template)
	}

	if len(params.formats) == 0 {
		params.formats = o.config.DefaultFormats
	}
	for _, format := range params.formats {
		if format != render.FormatDOCX && format != render.FormatPDF {
			return jobParams{}, fmt.Errorf("%w: %s", render.ErrUnknownFormat, format)
		}
	}

	if len(req.CostCodes) > 0 {
		tax, err := taxonomy.New(req.CostCodes)
		if err != nil {
			return jobParams{}, err
		}
		params.tax = tax
	} else {
		params.tax = taxonomy.Default()
	}
	return params, nil
}

// run executes the job under its wall-clock budget and owns cleanup of the
// assembled input files.
func (o *Orchestrator) run(job *jobs.Job, inputs []input, params jobParams) {
	ctx, cancel := context.WithTimeout(context.Background(), o.config.JobTimeoutDuration())
	defer cancel()

	defer func() {
		for _, in := range inputs {
			in.file.Cleanup()
		}
	}()

	started := time.Now()
	result, err := o.process(ctx, job, inputs, params, started)
	if err != nil {
		o.fail(job, err)
		return
	}

	job.Status = jobs.StatusCompleted
	job.Progress = pctDone
	job.Message = "completed"
	job.Result = result
	o.publish(job)

	o.metrics.JobFinished(string(jobs.StatusCompleted))
	o.logger.Info("job completed",
		"job", job.ID,
		"scope_items", len(result.ScopeItems),
		"documents", len(result.Documents),
		"seconds", result.ProcessingSeconds,
	)
}

func (o *Orchestrator) process(
	ctx context.Context,
	job *jobs.Job,
	inputs []input,
	params jobParams,
	started time.Time,
) (*jobs.Result, error) {
	transcript, transcriptionCost, err := o.transcribe(ctx, job, inputs, params.rawText)
	if err != nil {
		return nil, err
	}

	extracted, err := o.extract(ctx, job, transcript, params.tax)
	if err != nil {
		return nil, err
	}

	annotations, gaps, photoCost := o.analyzePhotos(ctx, job, inputs, extracted.Summary, params.tax)

	result := &jobs.Result{
		Transcript:        transcript,
		Summary:           extracted.Summary,
		ScopeItems:        extracted.ScopeItems,
		CompletenessScore: extracted.CompletenessScore,
		Photos:            annotations,
		PhotoGaps:         gaps,
		CostUSD:           transcriptionCost + extracted.CostUSD + photoCost,
	}

	if err := o.generateDocuments(ctx, job, inputs, params, result, started); err != nil {
		return nil, err
	}

	result.ProcessingSeconds = int(time.Since(started).Seconds())
	return result, nil
}

// transcribe runs every audio and video input through the provider and
// merges the results with text inputs and caller-supplied raw text.
func (o *Orchestrator) transcribe(ctx context.Context, job *jobs.Job, inputs []input, rawText string) (string, float64, error) {
	av := filterInputs(inputs, KindVideo, KindAudio)
	texts := filterInputs(inputs, KindText)

	sources := make([]string, 0, len(av)+len(texts)+1)
	var cost float64

	for i, in := range av {
		pct := pctTranscribing + (pctParsing-pctTranscribing)*i/len(av)
		o.progress(job, jobs.StatusTranscribing, pct,
			fmt.Sprintf("transcribing %s (%d of %d)", in.file.FileName, i+1, len(av)))

		stageStart := time.Now()
		var transcript *transcription.Transcript
		err := o.exec.Execute(ctx, "transcription", func(tctx context.Context) error {
			var terr error
			transcript, terr = o.transcriber.Transcribe(tctx, transcription.Media{
				Path:        in.file.Path,
				FileName:    in.file.FileName,
				ContentType: in.file.ContentType,
			})
			return terr
		}, transcription.Classify)
		o.metrics.ProviderCall("transcription", err)
		o.metrics.ObserveStage(string(jobs.StatusTranscribing), time.Since(stageStart))
		if err != nil {
			return "", 0, err
		}

		sources = append(sources, transcript.Text)
		cost += transcript.CostUSD
	}

	for _, in := range texts {
		text, err := o.extractText(in.file.Path, in.file.FileName)
		if err != nil {
			return "", 0, err
		}
		sources = append(sources, text)
	}
	sources = append(sources, rawText)

	combined := combineSources(sources)
	if strings.TrimSpace(combined) == "" {
		return "", 0, extraction.ErrEmptyTranscript
	}
	return combined, cost, nil
}

func (o *Orchestrator) extract(ctx context.Context, job *jobs.Job, transcript string, tax *taxonomy.Taxonomy) (*extraction.Extraction, error) {
	o.progress(job, jobs.StatusParsing, pctParsing, "extracting scope of work")

	stageStart := time.Now()
	var extracted *extraction.Extraction
	err := o.exec.Execute(ctx, "extraction", func(ectx context.Context) error {
		var eerr error
		extracted, eerr = o.extractor.Extract(ectx, transcript, tax)
		return eerr
	}, extraction.Classify)
	o.metrics.ProviderCall("extraction", err)
	o.metrics.ObserveStage(string(jobs.StatusParsing), time.Since(stageStart))
	if err != nil {
		return nil, err
	}

	o.progress(job, jobs.StatusParsing, pctPhotos,
		fmt.Sprintf("extracted %d scope items", len(extracted.ScopeItems)))
	return extracted, nil
}

// analyzePhotos annotates every photo input on a bounded worker pool.
// Individual photo failures become gaps rather than job failures.
func (o *Orchestrator) analyzePhotos(
	ctx context.Context,
	job *jobs.Job,
	inputs []input,
	summary *extraction.ProjectSummary,
	tax *taxonomy.Taxonomy,
) ([]vision.Annotation, []string, float64) {
	photos := filterInputs(inputs, KindPhoto)
	if len(photos) == 0 {
		return nil, nil, 0
	}

	o.progress(job, jobs.StatusAnalyzingPhotos, pctPhotos,
		fmt.Sprintf("analyzing %d photos", len(photos)))

	projectContext := ""
	if summary != nil {
		projectContext = summary.Overview
	}

	var (
		mu          sync.Mutex
		annotations []vision.Annotation
		gaps        []string
		cost        float64
		done        int
	)

	stageStart := time.Now()
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(o.config.PhotoConcurrency)

	for _, photo := range photos {
		group.Go(func() error {
			var annotation *vision.Annotation
			err := o.exec.Execute(gctx, "vision", func(vctx context.Context) error {
				var verr error
				annotation, verr = o.analyzer.Analyze(vctx, vision.Photo{
					Path:        photo.file.Path,
					FileName:    photo.file.FileName,
					ContentType: photo.file.ContentType,
				}, projectContext, tax)
				return verr
			}, vision.Classify)
			o.metrics.ProviderCall("vision", err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				o.logger.Warn("photo analysis failed",
					"job", job.ID,
					"photo", photo.file.FileName,
					"error", err,
				)
				gaps = append(gaps, photo.file.FileName)
			} else {
				annotations = append(annotations, *annotation)
				cost += annotation.CostUSD
			}

			done++
			pct := pctPhotos + (pctDocuments-pctPhotos)*done/len(photos)
			o.progress(job, jobs.StatusAnalyzingPhotos, pct,
				fmt.Sprintf("analyzed %d of %d photos", done, len(photos)))
			return nil
		})
	}
	group.Wait()
	o.metrics.ObserveStage(string(jobs.StatusAnalyzingPhotos), time.Since(stageStart))

	sort.Slice(annotations, func(i, j int) bool {
		return annotations[i].FileName < annotations[j].FileName
	})
	sort.Strings(gaps)
	return annotations, gaps, cost
}

// generateDocuments renders each requested format, uploads the survivors,
// and archives the analysis. A format failure degrades the result; losing
// every format fails the job.
func (o *Orchestrator) generateDocuments(
	ctx context.Context,
	job *jobs.Job,
	inputs []input,
	params jobParams,
	result *jobs.Result,
	started time.Time,
) error {
	o.progress(job, jobs.StatusGeneratingDocuments, pctDocuments, "generating documents")
	stageStart := time.Now()

	photoPaths := make(map[string]string)
	for _, photo := range filterInputs(inputs, KindPhoto) {
		photoPaths[photo.file.FileName] = photo.file.Path
	}

	renderReq := render.Request{
		ProjectName: job.ProjectName,
		Template:    params.template,
		GeneratedAt: time.Now(),
		Summary:     result.Summary,
		ScopeItems:  result.ScopeItems,
		Score:       result.CompletenessScore,
		Photos:      result.Photos,
		PhotoPaths:  photoPaths,
		Branding:    o.branding,
		Taxonomy:    params.tax,
	}

	renderErrors := make(map[string]string)
	var saved []analyses.SaveDocument
	var lastErr error

	for _, format := range params.formats {
		output, err := render.Render(renderReq, format)
		if err == nil {
			key := fmt.Sprintf("%s/%s/%s", job.TenantID, job.ID, output.FileName)
			err = o.storage.Upload(ctx, key, bytes.NewReader(output.Data), output.ContentType)
			if err == nil {
				saved = append(saved, analyses.SaveDocument{
					Format:      output.Format,
					FileName:    output.FileName,
					StorageKey:  key,
					ContentType: output.ContentType,
					Size:        int64(len(output.Data)),
				})
				o.metrics.DocumentGenerated(format)
				continue
			}
		}

		lastErr = err
		renderErrors[format] = err.Error()
		o.logger.Error("document generation failed",
			"job", job.ID,
			"format", format,
			"error", err,
		)
	}
	o.metrics.ObserveStage(string(jobs.StatusGeneratingDocuments), time.Since(stageStart))

	if len(saved) == 0 && len(params.formats) > 0 {
		if _, ok := lastErr.(*render.RenderError); !ok {
			lastErr = &render.RenderError{Format: params.formats[0], Err: lastErr}
		}
		return lastErr
	}
	if len(renderErrors) > 0 {
		result.RenderErrors = renderErrors
	}

	transcript := result.Transcript
	if !o.config.KeepTranscript {
		transcript = ""
	}

	archived, err := o.archive.Save(ctx, analyses.SaveCommand{
		ID:                job.ID,
		TenantID:          job.TenantID,
		ProjectName:       job.ProjectName,
		Template:          params.template,
		Transcript:        transcript,
		Summary:           result.Summary,
		ScopeItems:        result.ScopeItems,
		CompletenessScore: result.CompletenessScore,
		Photos:            result.Photos,
		CostUSD:           result.CostUSD,
		ProcessingSeconds: int(time.Since(started).Seconds()),
		Documents:         saved,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchive, err)
	}

	for _, doc := range archived.Documents {
		result.Documents = append(result.Documents, jobs.DocumentRef{
			Format:   doc.Format,
			Template: params.template,
			FileName: doc.FileName,
			URL:      fmt.Sprintf("/analyses/%s/documents/%s", archived.ID, doc.ID),
		})
	}
	return nil
}

// progress persists and publishes a stage transition. Store errors are
// logged and ignored so a read-side hiccup never kills the job.
func (o *Orchestrator) progress(job *jobs.Job, status jobs.Status, pct int, msg string) {
	job.Status = status
	job.Progress = pct
	job.Message = msg
	o.publish(job)
}

func (o *Orchestrator) publish(job *jobs.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.jobs.Publish(ctx, job); err != nil {
		o.logger.Warn("job state publish failed", "job", job.ID, "error", err)
	}
}

func (o *Orchestrator) fail(job *jobs.Job, err error) {
	reason := failureReason(err)
	job.Status = jobs.StatusFailed
	job.Message = reason
	job.Error = &jobs.Failure{
		Reason:  reason,
		Message: err.Error(),
	}
	o.publish(job)

	o.metrics.JobFinished(string(jobs.StatusFailed))
	o.logger.Error("job failed", "job", job.ID, "reason", reason, "error", err)
}
