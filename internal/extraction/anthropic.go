package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/scopeline/scopeline/internal/llm"
	"github.com/scopeline/scopeline/internal/taxonomy"
	"github.com/scopeline/scopeline/pkg/formatting"
)

// AnthropicExtractor implements Extractor against the Anthropic messages
// endpoint. A malformed response earns exactly one repair attempt with a
// stricter instruction before the extraction fails with ErrSchema.
type AnthropicExtractor struct {
	config Config
	client *llm.Client
}

func NewAnthropicExtractor(config Config) *AnthropicExtractor {
	return &AnthropicExtractor{
		config: config,
		client: llm.NewClient(config.BaseURL, config.APIKey, config.Model, config.MaxTokens, config.RequestTimeoutDuration()),
	}
}

func (e *AnthropicExtractor) Extract(ctx context.Context, transcript string, tax *taxonomy.Taxonomy) (*Extraction, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}
	if runes := []rune(transcript); len(runes) > e.config.TranscriptMaxRune {
		transcript = string(runes[:e.config.TranscriptMaxRune])
	}

	prompt := buildPrompt(tax, transcript)
	var usage llm.Usage

	result, parseErr := e.attempt(ctx, prompt, tax, &usage)
	if parseErr != nil {
		var pe *ProviderError
		if errors.As(parseErr, &pe) {
			return nil, parseErr
		}
		result, parseErr = e.attempt(ctx, prompt+"\n\n"+repairInstruction, tax, &usage)
		if parseErr != nil {
			if errors.As(parseErr, &pe) {
				return nil, parseErr
			}
			return nil, fmt.Errorf("%w: %v", ErrSchema, parseErr)
		}
	}

	result.InputTokens = usage.InputTokens
	result.OutputTokens = usage.OutputTokens
	result.CostUSD = float64(usage.InputTokens)/1e6*e.config.InputTokenPrice +
		float64(usage.OutputTokens)/1e6*e.config.OutputTokenPrice
	return result, nil
}

// attempt runs one completion and accumulates token usage even when the
// output fails to parse, so repair attempts still count toward cost.
func (e *AnthropicExtractor) attempt(ctx context.Context, prompt string, tax *taxonomy.Taxonomy, usage *llm.Usage) (*Extraction, error) {
	text, attemptUsage, err := e.client.Complete(ctx, []llm.Message{llm.TextMessage(prompt)})
	usage.InputTokens += attemptUsage.InputTokens
	usage.OutputTokens += attemptUsage.OutputTokens
	if err != nil {
		var ae *llm.APIError
		if errors.As(err, &ae) {
			return nil, &ProviderError{Status: ae.Status, Body: ae.Body, Err: ae.Err}
		}
		return nil, &ProviderError{Err: err}
	}

	raw, err := formatting.Parse[rawExtraction](text)
	if err != nil {
		return nil, err
	}
	return normalize(raw, tax)
}
