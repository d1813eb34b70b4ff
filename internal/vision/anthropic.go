package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/scopeline/scopeline/internal/llm"
	"github.com/scopeline/scopeline/internal/taxonomy"
	"github.com/scopeline/scopeline/pkg/formatting"
)

const promptTemplate = `This photo was taken during a contractor's walkthrough of a construction project.

Project context: %s

Describe the photo for a scope-of-work document. Respond with a JSON object of this exact shape:
{
  "caption": "one sentence describing what the photo shows",
  "scope_category": "the single best matching category from: %s",
  "materials": ["visible materials"],
  "conditions": ["existing conditions worth noting"],
  "risks": ["visible hazards or complications"]
}`

var mediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// AnthropicAnalyzer implements Analyzer against the Anthropic messages
// endpoint with base64 image content blocks.
type AnthropicAnalyzer struct {
	config Config
	client *llm.Client
}

func NewAnthropicAnalyzer(config Config) *AnthropicAnalyzer {
	return &AnthropicAnalyzer{
		config: config,
		client: llm.NewClient(config.BaseURL, config.APIKey, config.Model, config.MaxTokens, config.RequestTimeoutDuration()),
	}
}

type rawAnnotation struct {
	Caption       string   `json:"caption"`
	ScopeCategory string   `json:"scope_category"`
	Materials     []string `json:"materials"`
	Conditions    []string `json:"conditions"`
	Risks         []string `json:"risks"`
}

func (a *AnthropicAnalyzer) Analyze(ctx context.Context, photo Photo, projectContext string, tax *taxonomy.Taxonomy) (*Annotation, error) {
	mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(photo.FileName))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, photo.FileName)
	}

	data, err := os.ReadFile(photo.Path)
	if err != nil {
		return nil, fmt.Errorf("vision: read photo: %w", err)
	}
	if int64(len(data)) > a.config.MaxImageBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrImageTooLarge, photo.FileName, len(data))
	}

	categories := make([]string, 0, tax.Len())
	for _, code := range tax.Codes() {
		categories = append(categories, code.Name)
	}
	if projectContext == "" {
		projectContext = "no additional context available"
	}
	prompt := fmt.Sprintf(promptTemplate, projectContext, strings.Join(categories, ", "))

	message := llm.ImageMessage(mediaType, base64.StdEncoding.EncodeToString(data), prompt)
	text, usage, err := a.client.Complete(ctx, []llm.Message{message})
	if err != nil {
		var ae *llm.APIError
		if errors.As(err, &ae) {
			return nil, &ProviderError{Status: ae.Status, Body: ae.Body, Err: ae.Err}
		}
		return nil, &ProviderError{Err: err}
	}

	raw, err := formatting.Parse[rawAnnotation](text)
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("unparseable annotation: %w", err)}
	}

	annotation := &Annotation{
		FileName:      photo.FileName,
		Caption:       strings.TrimSpace(raw.Caption),
		ScopeCategory: strings.TrimSpace(raw.ScopeCategory),
		Materials:     raw.Materials,
		Conditions:    raw.Conditions,
		Risks:         raw.Risks,
		CostUSD: float64(usage.InputTokens)/1e6*a.config.InputTokenPrice +
			float64(usage.OutputTokens)/1e6*a.config.OutputTokenPrice,
	}
	if code, ok := tax.FindByName(annotation.ScopeCategory); ok {
		annotation.CostCode = code.Code
		annotation.ScopeCategory = code.Name
	}
	return annotation, nil
}
