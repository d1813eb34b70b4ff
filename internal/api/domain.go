package api

import (
	"github.com/scopeline/scopeline/internal/analyses"
	"github.com/scopeline/scopeline/internal/extraction"
	"github.com/scopeline/scopeline/internal/jobs"
	"github.com/scopeline/scopeline/internal/pipeline"
	"github.com/scopeline/scopeline/internal/taxonomy"
	"github.com/scopeline/scopeline/internal/transcription"
	"github.com/scopeline/scopeline/internal/uploads"
	"github.com/scopeline/scopeline/internal/vision"
	"github.com/scopeline/scopeline/pkg/resilience"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Uploads  uploads.System
	Jobs     *jobs.System
	Analyses analyses.System
	Taxonomy *taxonomy.Handler
	Pipeline *pipeline.Orchestrator
}

// NewDomain creates all domain systems from the API runtime. Provider
// clients are constructed here so the pipeline is the only component that
// talks to external model APIs.
func NewDomain(runtime *Runtime) *Domain {
	cfg := runtime.Config

	uploadSystem := uploads.New(&cfg.Uploads, runtime.Logger)
	jobSystem := jobs.NewSystem(cfg.Jobs, runtime.Logger)

	analysisSystem := analyses.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	orchestrator := pipeline.New(cfg.Pipeline, pipeline.Deps{
		Jobs:        jobSystem,
		Storage:     runtime.Storage,
		Archive:     analysisSystem,
		Transcriber: transcription.NewOpenAIProvider(cfg.Transcription),
		Extractor:   extraction.NewAnthropicExtractor(cfg.Extraction),
		Analyzer:    vision.NewAnthropicAnalyzer(cfg.Vision),
		Executor:    resilience.NewExecutor(cfg.Resilience, runtime.Logger),
		Metrics:     runtime.Metrics,
		Branding:    cfg.Branding,
		Logger:      runtime.Logger,
	})

	return &Domain{
		Uploads:  uploadSystem,
		Jobs:     jobSystem,
		Analyses: analysisSystem,
		Taxonomy: taxonomy.NewHandler(runtime.Logger),
		Pipeline: orchestrator,
	}
}

// Start registers upload and job janitors with the lifecycle coordinator.
func (d *Domain) Start(runtime *Runtime) error {
	if err := d.Uploads.Start(runtime.Lifecycle); err != nil {
		return err
	}
	return d.Jobs.Start(runtime.Lifecycle)
}
