package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
)

// OpenAIProvider transcribes media through the OpenAI audio transcription
// endpoint using the verbose JSON response for segment timestamps.
type OpenAIProvider struct {
	config Config
	client *http.Client
}

func NewOpenAIProvider(config Config) *OpenAIProvider {
	return &OpenAIProvider{
		config: config,
		client: &http.Client{Timeout: config.RequestTimeoutDuration()},
	}
}

type verboseResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Text    string  `json:"text"`
		Speaker string  `json:"speaker"`
	} `json:"segments"`
}

func (p *OpenAIProvider) Transcribe(ctx context.Context, media Media) (*Transcript, error) {
	file, err := p.openMedia(ctx, media)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()

		part, err := form.CreateFormFile("file", media.FileName)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}

		form.WriteField("model", p.config.Model)
		form.WriteField("response_format", "verbose_json")
		if p.config.Language != "" {
			form.WriteField("language", p.config.Language)
		}
		pw.CloseWithError(form.Close())
	}()

	url := strings.TrimSuffix(p.config.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return nil, fmt.Errorf("transcription: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	res, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &ProviderError{Status: res.StatusCode, Body: string(body)}
	}

	var parsed verboseResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &ProviderError{Status: res.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	transcript := &Transcript{
		Text:            strings.TrimSpace(parsed.Text),
		DurationSeconds: parsed.Duration,
		CostUSD:         parsed.Duration / 60 * p.config.CostPerMinute,
		Provider:        p.config.Model,
	}
	for _, s := range parsed.Segments {
		transcript.Segments = append(transcript.Segments, Segment{
			Speaker: s.Speaker,
			Start:   s.Start,
			End:     s.End,
			Text:    strings.TrimSpace(s.Text),
		})
	}
	return transcript, nil
}

// openMedia streams the media bytes from disk, or fetches them when the
// media is addressed by URL.
func (p *OpenAIProvider) openMedia(ctx context.Context, media Media) (io.ReadCloser, error) {
	if media.Path != "" {
		file, err := os.Open(media.Path)
		if err != nil {
			return nil, fmt.Errorf("transcription: open media: %w", err)
		}
		return file, nil
	}
	if media.URL == "" {
		return nil, fmt.Errorf("transcription: media has neither path nor url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, media.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("transcription: build media request: %w", err)
	}
	res, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("fetch media: %w", err)}
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		res.Body.Close()
		return nil, &ProviderError{Status: res.StatusCode, Body: string(body)}
	}
	return res.Body, nil
}
