package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Bharath8080/voiced/pkg/core"
	"github.com/Bharath8080/voiced/pkg/core/live"
	memstore "github.com/Bharath8080/voiced/pkg/core/session"
	"github.com/Bharath8080/voiced/pkg/core/voice/stt"
	"github.com/Bharath8080/voiced/pkg/core/voice/tts"
	"github.com/Bharath8080/voiced/pkg/gateway/archive"
	"github.com/Bharath8080/voiced/pkg/gateway/config"
	"github.com/Bharath8080/voiced/pkg/gateway/live/protocol"
	"github.com/Bharath8080/voiced/pkg/gateway/live/session"
	"github.com/Bharath8080/voiced/pkg/gateway/metrics"
	"github.com/Bharath8080/voiced/pkg/gateway/sessions"
)

// LiveHandler upgrades /v1/live requests and runs one voice session per
// connection.
type LiveHandler struct {
	Config  config.Config
	Logger  *slog.Logger
	Store   *memstore.Store
	Model   core.ModelClient
	STT     stt.Provider
	TTS     tts.Provider
	Tools   live.ToolRouter
	Tracker *sessions.Tracker
	Metrics *metrics.Metrics
	Archive *archive.Archive

	// Draining reports whether the server is shutting down; new
	// sessions are refused while true.
	Draining func() bool
}

func (h LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Draining != nil && h.Draining() {
		http.Error(w, "server is draining", http.StatusServiceUnavailable)
		return
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if h.Config.MaxJSONMessageBytes > 0 {
		conn.SetReadLimit(h.Config.MaxJSONMessageBytes)
	}

	handshakeTimeout := h.Config.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = 5 * time.Second
	}
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	messageType, firstFrame, err := conn.ReadMessage()
	if err != nil {
		h.writeWSError(conn, "bad_request", "failed to read hello")
		return
	}
	if messageType != websocket.TextMessage {
		h.writeWSError(conn, "bad_request", "first frame must be hello")
		return
	}

	decoded, err := protocol.DecodeClientMessage(firstFrame)
	if err != nil {
		msg := "invalid hello frame"
		if decErr, ok := err.(*protocol.DecodeError); ok {
			msg = decErr.Error()
		}
		h.writeWSError(conn, "bad_request", msg)
		return
	}
	hello, ok := decoded.(protocol.ClientHello)
	if !ok {
		h.writeWSError(conn, "bad_request", "first frame must be hello")
		return
	}
	if hello.AudioIn.SampleRateHz != live.DefaultAudioConfig().SampleRate {
		h.writeWSError(conn, "unsupported",
			fmt.Sprintf("audio_in.sample_rate_hz must be %d", live.DefaultAudioConfig().SampleRate))
		return
	}

	sessionID := strings.TrimSpace(hello.SessionID)
	if sessionID == "" {
		sessionID = "s_" + randHex(8)
	}
	voice := strings.TrimSpace(hello.VoiceID)
	if voice == "" {
		voice = h.Config.Voice
	}

	ack := protocol.ServerHelloAck{
		Type:            "hello_ack",
		ProtocolVersion: protocol.ProtocolVersion1,
		SessionID:       sessionID,
		AudioIn:         hello.AudioIn,
		AudioOut: protocol.AudioFormat{
			Encoding:     "pcm_s16le",
			SampleRateHz: h.Config.TtsSampleRate,
			Channels:     1,
		},
		Limits: protocol.HelloAckLimits{
			MaxAudioFrameBytes:  h.Config.MaxAudioFrameBytes,
			MaxJSONMessageBytes: h.Config.MaxJSONMessageBytes,
			MaxAudioFPS:         h.Config.MaxAudioFPS,
		},
	}
	if err := conn.WriteJSON(ack); err != nil {
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	logger.Info("live session started", "session_id", sessionID, "hello", hello.RedactedForLog())
	h.Metrics.SessionOpened()
	defer h.Metrics.SessionClosed()

	gate := live.NewGate(h.gateConfig(), live.DefaultAudioConfig(), logger)
	pipeline := live.NewOrchestrator(live.Options{
		SessionID: sessionID,
		Store:     h.Store,
		Model:     h.Model,
		STT:       h.STT,
		TTS:       h.TTS,
		Tools:     h.Tools,
		Gate:      gate,
		Turn:      h.turnConfig(voice),
		Audio:     live.DefaultAudioConfig(),
		Logger:    logger,
	})

	s, err := session.New(session.Dependencies{
		Conn:     conn,
		Logger:   logger,
		Gate:     gate,
		Pipeline: pipeline,
		Config: session.Config{
			SessionID:           sessionID,
			MaxAudioFrameBytes:  h.Config.MaxAudioFrameBytes,
			MaxAudioFPS:         h.Config.MaxAudioFPS,
			InboundBurstSeconds: h.Config.InboundBurstSeconds,
			WriteTimeout:        h.Config.WSWriteTimeout,
			Base64JSONTransport: hello.Features.AudioTransport == protocol.AudioTransportBase64JSON,
		},
		OnEvent: h.eventObserver(sessionID),
		OnFrame: h.Metrics.ObserveFrame,
	})
	if err != nil {
		h.writeWSError(conn, "internal", "failed to initialize live session")
		return
	}

	unregister := func() {}
	if h.Tracker != nil {
		unregister = h.Tracker.Register(sessionID, sessions.Handle{
			Cancel: s.Cancel,
			NotifyDrain: func(reason string) error {
				return s.SendWarning("draining", reason)
			},
		})
	}
	defer unregister()

	if err := s.Run(r.Context()); err != nil {
		logger.Warn("live session ended with error", "session_id", sessionID, "error", err)
	} else {
		logger.Info("live session ended", "session_id", sessionID)
	}
}

// eventObserver feeds pipeline events to metrics and archives completed
// turns.
func (h LiveHandler) eventObserver(sessionID string) func(live.Event) {
	return func(ev live.Event) {
		h.Metrics.ObserveEvent(ev)
		done, ok := ev.(*live.TurnCompletedEvent)
		if !ok || h.Archive == nil {
			return
		}
		rec := archive.Record{
			SessionID:  sessionID,
			TurnID:     done.TurnID,
			Transcript: done.Transcript,
			Reply:      done.Reply,
			Rounds:     done.Rounds,
			ToolCalls:  done.ToolCalls,
			DurationMs: done.DurationMs,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := h.Archive.RecordTurn(ctx, rec); err != nil && h.Logger != nil {
				h.Logger.Warn("failed to archive turn", "turn_id", rec.TurnID, "error", err)
			}
		}()
	}
}

func (h LiveHandler) gateConfig() live.GateConfig {
	cfg := live.DefaultGateConfig()
	if h.Config.SpeechThreshold > 0 {
		cfg.SpeechThreshold = h.Config.SpeechThreshold
	}
	if h.Config.BargeInThreshold > 0 {
		cfg.BargeInThreshold = h.Config.BargeInThreshold
	}
	if h.Config.MinSpeech > 0 {
		cfg.MinSpeech = h.Config.MinSpeech
	}
	if h.Config.MinSilence > 0 {
		cfg.MinSilence = h.Config.MinSilence
	}
	if h.Config.PrefixPadding > 0 {
		cfg.PrefixPadding = h.Config.PrefixPadding
	}
	if h.Config.MaxUtterance > 0 {
		cfg.MaxUtterance = h.Config.MaxUtterance
	}
	return cfg
}

func (h LiveHandler) turnConfig(voice string) live.TurnConfig {
	cfg := live.DefaultTurnConfig()
	cfg.Model = h.Config.Model
	cfg.System = h.Config.SystemPrompt
	cfg.SttModel = h.Config.SttModel
	cfg.TtsModel = h.Config.TtsModel
	cfg.Voice = voice
	if h.Config.MaxTokens > 0 {
		cfg.MaxTokens = h.Config.MaxTokens
	}
	if h.Config.Temperature > 0 {
		temp := h.Config.Temperature
		cfg.Temperature = &temp
	}
	if h.Config.MaxToolRounds > 0 {
		cfg.MaxToolRounds = h.Config.MaxToolRounds
	}
	if h.Config.TurnTimeout > 0 {
		cfg.TurnTimeout = h.Config.TurnTimeout
	}
	if h.Config.TtsSampleRate > 0 {
		cfg.SampleRate = h.Config.TtsSampleRate
	}
	return cfg
}

func (h LiveHandler) writeWSError(conn *websocket.Conn, code, message string) {
	_ = conn.WriteMessage(websocket.TextMessage, protocol.EncodeError(code, message, "", true))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message),
		time.Now().Add(2*time.Second))
}

func randHex(nbytes int) string {
	b := make([]byte, nbytes)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
