package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/Bharath8080/voiced/pkg/core"
)

const (
	defaultBaseURL  = "https://api.cartesia.ai"
	cartesiaVersion = "2025-04-16"
)

// CartesiaProvider transcribes audio through Cartesia's batch STT API.
type CartesiaProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewCartesia creates a Cartesia STT provider.
func NewCartesia(apiKey string) *CartesiaProvider {
	return &CartesiaProvider{apiKey: apiKey, baseURL: defaultBaseURL, httpClient: &http.Client{}}
}

// NewCartesiaWithClient creates a provider with a custom base URL and
// HTTP client. Empty values keep the defaults.
func NewCartesiaWithClient(apiKey, baseURL string, client *http.Client) *CartesiaProvider {
	p := NewCartesia(apiKey)
	if baseURL != "" {
		p.baseURL = baseURL
	}
	if client != nil {
		p.httpClient = client
	}
	return p
}

func (c *CartesiaProvider) Name() string { return "cartesia" }

// Transcribe sends one utterance of raw PCM to Cartesia and returns the
// transcript.
func (c *CartesiaProvider) Transcribe(ctx context.Context, pcm []byte, opts TranscribeOptions) (*Transcript, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", "audio.raw")
	if err != nil {
		return nil, core.NewTranscriptionError(err, "build request: %v", err)
	}
	if _, err := fw.Write(pcm); err != nil {
		return nil, core.NewTranscriptionError(err, "build request: %v", err)
	}

	model := opts.Model
	if model == "" {
		model = "ink-whisper"
	}
	mw.WriteField("model", model)
	if opts.Language != "" {
		mw.WriteField("language", opts.Language)
	}
	if err := mw.Close(); err != nil {
		return nil, core.NewTranscriptionError(err, "build request: %v", err)
	}

	u, err := url.Parse(c.baseURL + "/stt")
	if err != nil {
		return nil, core.NewTranscriptionError(err, "bad base URL: %v", err)
	}
	q := u.Query()
	encoding := opts.Encoding
	if encoding == "" {
		encoding = "pcm_s16le"
	}
	q.Set("encoding", encoding)
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}
	q.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &buf)
	if err != nil {
		return nil, core.NewTranscriptionError(err, "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.NewTranscriptionError(err, "cartesia request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, core.NewTranscriptionError(nil, "cartesia status %d: %s", resp.StatusCode, string(body))
	}

	var decoded struct {
		Text     string   `json:"text"`
		Language *string  `json:"language"`
		Duration *float64 `json:"duration"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, core.NewTranscriptionError(err, "parse response: %v", err)
	}

	t := &Transcript{Text: decoded.Text}
	if decoded.Language != nil {
		t.Language = *decoded.Language
	}
	if decoded.Duration != nil {
		t.Duration = *decoded.Duration
	}
	return t, nil
}
