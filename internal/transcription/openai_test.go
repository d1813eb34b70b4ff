package transcription_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/scopeline/scopeline/internal/transcription"
)

func stageMedia(t *testing.T) transcription.Media {
	t.Helper()

	path := filepath.Join(t.TempDir(), "walkthrough.mp3")
	if err := os.WriteFile(path, []byte("not really audio"), 0o600); err != nil {
		t.Fatalf("stage media: %v", err)
	}
	return transcription.Media{
		Path:        path,
		FileName:    "walkthrough.mp3",
		ContentType: "audio/mpeg",
	}
}

func newProvider(url string) *transcription.OpenAIProvider {
	return transcription.NewOpenAIProvider(transcription.Config{
		BaseURL:        url,
		APIKey:         "test-key",
		Model:          "whisper-1",
		RequestTimeout: "5s",
		CostPerMinute:  0.006,
	})
}

func TestOpenAIProviderTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("expected model whisper-1, got %q", got)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("expected verbose_json, got %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": "The kitchen needs a full gut.",
			"duration": 120,
			"segments": [
				{"start": 0, "end": 60, "text": "The kitchen "},
				{"start": 60, "end": 120, "text": "needs a full gut."}
			]
		}`))
	}))
	defer server.Close()

	transcript, err := newProvider(server.URL).Transcribe(context.Background(), stageMedia(t))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}

	if transcript.Text != "The kitchen needs a full gut." {
		t.Errorf("unexpected text %q", transcript.Text)
	}
	if len(transcript.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(transcript.Segments))
	}
	if transcript.Segments[0].Text != "The kitchen" {
		t.Errorf("expected trimmed segment text, got %q", transcript.Segments[0].Text)
	}
	if transcript.CostUSD != 0.012 {
		t.Errorf("expected cost 0.012, got %f", transcript.CostUSD)
	}
}

func TestOpenAIProviderTranscribesURLMedia(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("not really audio"))
	}))
	defer media.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("read form file: %v", err)
		}
		defer file.Close()

		data := make([]byte, 32)
		n, _ := file.Read(data)
		if string(data[:n]) != "not really audio" {
			t.Errorf("expected fetched media bytes forwarded, got %q", data[:n])
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "Fetched fine.", "duration": 30}`))
	}))
	defer api.Close()

	transcript, err := newProvider(api.URL).Transcribe(context.Background(), transcription.Media{
		URL:         media.URL + "/walkthrough.mp3",
		FileName:    "walkthrough.mp3",
		ContentType: "audio/mpeg",
	})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if transcript.Text != "Fetched fine." {
		t.Errorf("unexpected text %q", transcript.Text)
	}
}

func TestOpenAIProviderRejectsUnaddressedMedia(t *testing.T) {
	_, err := newProvider("http://unused.invalid").Transcribe(context.Background(), transcription.Media{
		FileName: "walkthrough.mp3",
	})
	if err == nil {
		t.Fatal("expected error for media with neither path nor url")
	}
}

func TestOpenAIProviderErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusBadGateway, true},
		{"rejected media", http.StatusBadRequest, false},
		{"bad credentials", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream failure", tt.status)
			}))
			defer server.Close()

			_, err := newProvider(server.URL).Transcribe(context.Background(), stageMedia(t))
			if !errors.Is(err, transcription.ErrProvider) {
				t.Fatalf("expected ErrProvider, got %v", err)
			}

			classification := transcription.Classify(err)
			if classification.Retryable != tt.retryable {
				t.Errorf("status %d: expected retryable=%v", tt.status, tt.retryable)
			}
		})
	}
}
