package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/Bharath8080/voiced/pkg/core"
)

const (
	defaultWSURL    = "wss://api.cartesia.ai/tts/websocket"
	cartesiaVersion = "2025-04-16"
	defaultModelID  = "sonic-3"
	defaultVoiceID  = "a0e99841-438c-4a64-b679-ae501e7d6091"
)

// CartesiaProvider streams synthesis through Cartesia's WebSocket API.
type CartesiaProvider struct {
	apiKey string
	wsURL  string
	dialer *websocket.Dialer
}

// NewCartesia creates a Cartesia TTS provider.
func NewCartesia(apiKey string) *CartesiaProvider {
	return &CartesiaProvider{apiKey: apiKey, wsURL: defaultWSURL, dialer: websocket.DefaultDialer}
}

// NewCartesiaWithURL creates a provider against a custom WebSocket
// endpoint. Used in tests.
func NewCartesiaWithURL(apiKey, wsURL string) *CartesiaProvider {
	p := NewCartesia(apiKey)
	if wsURL != "" {
		p.wsURL = wsURL
	}
	return p
}

func (c *CartesiaProvider) Name() string { return "cartesia" }

type cartesiaVoiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

type cartesiaGenerationConfig struct {
	Speed  float64 `json:"speed,omitempty"`
	Volume float64 `json:"volume,omitempty"`
}

type cartesiaStreamRequest struct {
	ModelID          string                    `json:"model_id"`
	Transcript       string                    `json:"transcript"`
	Voice            cartesiaVoiceSpec         `json:"voice"`
	OutputFormat     cartesiaOutputFormat      `json:"output_format"`
	ContextID        string                    `json:"context_id"`
	Continue         bool                      `json:"continue"`
	Language         *string                   `json:"language,omitempty"`
	GenerationConfig *cartesiaGenerationConfig `json:"generation_config,omitempty"`
}

type cartesiaStreamResponse struct {
	Type  string `json:"type"` // "chunk", "done", "flush_done", "error"
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

var contextCounter atomic.Uint64

func nextContextID() string {
	return fmt.Sprintf("ctx_%d", contextCounter.Add(1))
}

// NewStream opens a synthesis context. Text sent with SendText is
// synthesized incrementally; the final send closes the context and the
// audio channel closes once all chunks have arrived.
func (c *CartesiaProvider) NewStream(ctx context.Context, opts StreamOptions) (*Stream, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, core.NewSynthesisError(c.Name(), err, "bad websocket URL: %v", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("cartesia_version", cartesiaVersion)
	u.RawQuery = q.Encode()

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, core.NewSynthesisError(c.Name(), err, "websocket connect: %v", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultModelID
	}
	voice := opts.Voice
	if voice == "" {
		voice = defaultVoiceID
	}
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 24000
	}
	encoding := opts.Encoding
	if encoding == "" {
		encoding = "pcm_s16le"
	}

	base := cartesiaStreamRequest{
		ModelID: model,
		Voice:   cartesiaVoiceSpec{Mode: "id", ID: voice},
		OutputFormat: cartesiaOutputFormat{
			Container:  "raw",
			Encoding:   encoding,
			SampleRate: sampleRate,
		},
		ContextID: nextContextID(),
	}
	if opts.Language != "" {
		base.Language = &opts.Language
	}
	if opts.Speed != 0 || opts.Volume != 0 {
		base.GenerationConfig = &cartesiaGenerationConfig{Speed: opts.Speed, Volume: opts.Volume}
	}

	stream := NewStream()

	var writeMu sync.Mutex
	stream.SendFunc = func(text string, final bool) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		req := base
		req.Transcript = text
		// Continue stays true until the final chunk; Cartesia closes
		// the context on the first continue=false message.
		req.Continue = !final
		if err := conn.WriteJSON(req); err != nil {
			return core.NewSynthesisError(c.Name(), err, "send transcript: %v", err)
		}
		return nil
	}
	stream.CloseFunc = conn.Close

	go func() {
		defer stream.FinishAudio()
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				stream.SetError(ctx.Err())
				return
			case <-stream.Done():
				return
			default:
			}

			var msg cartesiaStreamResponse
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return
				}
				select {
				case <-stream.Done():
				default:
					stream.SetError(core.NewSynthesisError(c.Name(), err, "read audio: %v", err))
				}
				return
			}

			switch msg.Type {
			case "chunk":
				pcm, err := base64.StdEncoding.DecodeString(msg.Data)
				if err != nil {
					stream.SetError(core.NewSynthesisError(c.Name(), err, "decode audio: %v", err))
					return
				}
				if !stream.PushAudio(pcm) {
					return
				}
			case "done":
				return
			case "flush_done":
				continue
			case "error":
				stream.SetError(core.NewSynthesisError(c.Name(), nil, "cartesia: %s", msg.Error))
				return
			}
		}
	}()

	return stream, nil
}
