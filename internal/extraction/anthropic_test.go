package extraction_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scopeline/scopeline/internal/extraction"
	"github.com/scopeline/scopeline/internal/taxonomy"
)

const transcript = "We're gutting the kitchen down to the studs, then new cabinets and quartz counters."

func messageResponse(text string) string {
	return fmt.Sprintf(`{
		"content": [{"type": "text", "text": %q}],
		"usage": {"input_tokens": 1000, "output_tokens": 500}
	}`, text)
}

func newExtractor(url string) *extraction.AnthropicExtractor {
	return extraction.NewAnthropicExtractor(extraction.Config{
		BaseURL:           url,
		APIKey:            "test-key",
		Model:             "test-model",
		MaxTokens:         4096,
		RequestTimeout:    "5s",
		InputTokenPrice:   3.0,
		OutputTokenPrice:  15.0,
		TranscriptMaxRune: 400_000,
	})
}

func TestExtractParsesFencedOutput(t *testing.T) {
	output := "```json\n" + `{
		"project_summary": {"overview": "Full kitchen remodel."},
		"scope_items": [
			{"cost_code": "6", "category": "Carpentry", "description": "Install new cabinets", "materials": "maple ply", "risk_level": "LOW"},
			{"cost_code": "99", "category": "nonsense", "description": "Haul away debris"}
		],
		"scope_completeness_score": "85"
	}` + "\n```"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Write([]byte(messageResponse(output)))
	}))
	defer server.Close()

	result, err := newExtractor(server.URL).Extract(context.Background(), transcript, taxonomy.Default())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if result.Summary.Overview != "Full kitchen remodel." {
		t.Errorf("unexpected overview %q", result.Summary.Overview)
	}
	if result.CompletenessScore != 85 {
		t.Errorf("expected score 85, got %d", result.CompletenessScore)
	}
	if len(result.ScopeItems) != 2 {
		t.Fatalf("expected 2 scope items, got %d", len(result.ScopeItems))
	}

	cabinets := result.ScopeItems[0]
	if cabinets.CostCode != "06" || cabinets.Category != "Carpentry" {
		t.Errorf("expected padded code 06 Carpentry, got %s %s", cabinets.CostCode, cabinets.Category)
	}
	if !cabinets.CodeResolved {
		t.Error("expected taxonomy-matched code marked resolved")
	}
	if len(cabinets.Materials) != 1 || cabinets.Materials[0] != "maple ply" {
		t.Errorf("expected scalar material promoted to list, got %v", cabinets.Materials)
	}
	if cabinets.RiskLevel != extraction.RiskLow {
		t.Errorf("expected low risk, got %s", cabinets.RiskLevel)
	}

	debris := result.ScopeItems[1]
	if debris.CostCode != "99" || debris.CodeResolved {
		t.Errorf("expected unknown code kept and flagged, got %s resolved=%v", debris.CostCode, debris.CodeResolved)
	}
	if debris.Category != "nonsense" {
		t.Errorf("expected model category kept on unresolved item, got %q", debris.Category)
	}
	if debris.RiskLevel != extraction.RiskMedium {
		t.Errorf("expected default medium risk, got %s", debris.RiskLevel)
	}

	if result.CostUSD != 1000.0/1e6*3.0+500.0/1e6*15.0 {
		t.Errorf("unexpected cost %f", result.CostUSD)
	}
}

func TestExtractRepairsMalformedOutputOnce(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(messageResponse("Sure! Here is the scope I found in the walkthrough.")))
			return
		}
		w.Write([]byte(messageResponse(`{"project_summary": {"overview": "Remodel."}, "scope_items": [], "scope_completeness_score": 40}`)))
	}))
	defer server.Close()

	result, err := newExtractor(server.URL).Extract(context.Background(), transcript, taxonomy.Default())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", calls)
	}
	if result.InputTokens != 2000 {
		t.Errorf("expected usage summed across attempts, got %d input tokens", result.InputTokens)
	}
}

func TestExtractSchemaFailureAfterRepair(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(messageResponse("still not json")))
	}))
	defer server.Close()

	_, err := newExtractor(server.URL).Extract(context.Background(), transcript, taxonomy.Default())
	if !errors.Is(err, extraction.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 provider calls, got %d", calls)
	}
}

func TestExtractProviderErrorNotRepaired(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newExtractor(server.URL).Extract(context.Background(), transcript, taxonomy.Default())
	if !errors.Is(err, extraction.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 provider call, got %d", calls)
	}
	if !extraction.Classify(err).Retryable {
		t.Error("expected 503 classified retryable")
	}
}

func TestExtractEmptyTranscript(t *testing.T) {
	_, err := newExtractor("http://localhost:0").Extract(context.Background(), "   ", taxonomy.Default())
	if !errors.Is(err, extraction.ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
}
