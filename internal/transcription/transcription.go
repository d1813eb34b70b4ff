// Package transcription converts walkthrough audio and video into text
// through an external speech-to-text provider.
package transcription

import "context"

// Media identifies one audio or video file, either assembled on local disk
// or addressed by URL. Path wins when both are set.
type Media struct {
	Path        string
	URL         string
	FileName    string
	ContentType string
}

// Segment is one provider-aligned span of the transcript. Speaker is empty
// when the provider does not diarize.
type Segment struct {
	Speaker string  `json:"speaker,omitempty"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// Transcript is the full provider output for one media file.
type Transcript struct {
	Text            string    `json:"text"`
	Segments        []Segment `json:"segments,omitempty"`
	DurationSeconds float64   `json:"duration_seconds"`
	CostUSD         float64   `json:"cost_usd"`
	Provider        string    `json:"provider"`
}

// Provider transcribes a single media file. Implementations return
// ProviderError for transport and upstream failures so callers can decide
// whether to retry.
type Provider interface {
	Transcribe(ctx context.Context, media Media) (*Transcript, error)
}
