// Package session runs one live WebSocket connection: it feeds inbound
// PCM into the endpointing gate, relays pipeline events and reply audio
// back to the client, and handles control messages.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/Bharath8080/voiced/pkg/core/live"
	"github.com/Bharath8080/voiced/pkg/gateway/live/protocol"
)

// Conn is the subset of *websocket.Conn the session uses.
type Conn interface {
	wsWriter
	SetReadDeadline(t time.Time) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

type Config struct {
	SessionID string

	MaxAudioFrameBytes  int
	MaxAudioFPS         int
	InboundBurstSeconds int

	PingInterval time.Duration
	WriteTimeout time.Duration

	// Base64JSONTransport means inbound audio arrives as audio_frame
	// JSON messages instead of binary frames.
	Base64JSONTransport bool
}

type Dependencies struct {
	Conn     Conn
	Logger   *slog.Logger
	Gate     *live.Gate
	Pipeline *live.Orchestrator
	Config   Config

	// OnEvent fires for every pipeline event before it is written out.
	OnEvent func(live.Event)
	// OnFrame fires for every audio frame written to the client.
	OnFrame func()
}

type Session struct {
	conn     Conn
	logger   *slog.Logger
	gate     *live.Gate
	pipeline *live.Orchestrator
	cfg      Config

	onEvent func(live.Event)
	onFrame func()

	oob    chan []byte
	cancel context.CancelFunc
}

func New(deps Dependencies) (*Session, error) {
	if deps.Conn == nil {
		return nil, errors.New("session: conn is required")
	}
	if deps.Gate == nil || deps.Pipeline == nil {
		return nil, errors.New("session: gate and pipeline are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		conn:     deps.Conn,
		logger:   logger.With("session_id", deps.Config.SessionID),
		gate:     deps.Gate,
		pipeline: deps.Pipeline,
		cfg:      deps.Config,
		onEvent:  deps.OnEvent,
		onFrame:  deps.OnFrame,
		oob:      make(chan []byte, 8),
	}, nil
}

// Cancel tears the session down from outside, typically at shutdown.
func (s *Session) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// SendWarning queues a warning for the client. It never blocks; under
// backpressure the warning is dropped.
func (s *Session) SendWarning(code, message string) error {
	select {
	case s.oob <- protocol.EncodeWarning(code, message):
		return nil
	default:
		return errors.New("session: outbound queue full")
	}
}

// Run drives the connection until the client disconnects, ends the
// session, or the session is cancelled.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	// Unblock the blocking read when the session is cancelled.
	go func() {
		<-ctx.Done()
		_ = s.conn.Close()
	}()

	writer := &outboundWriter{
		ws:           s.conn,
		events:       s.pipeline.Events(),
		frames:       s.pipeline.Frames(),
		oob:          s.oob,
		pingInterval: s.cfg.PingInterval,
		writeTimeout: s.cfg.WriteTimeout,
		onEvent:      s.onEvent,
		onFrame:      s.onFrame,
	}

	pipeCtx, stopPipeline := context.WithCancel(context.Background())
	defer stopPipeline()

	var g errgroup.Group
	g.Go(func() error {
		err := s.pipeline.Run(pipeCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return writer.Run()
	})

	readErr := s.readLoop(ctx)

	// Closing the gate lets the pipeline finish its last turn and close
	// the event and frame channels, which in turn stops the writer.
	s.gate.Close()
	if ctx.Err() != nil || readErr != nil {
		s.pipeline.CancelTurn("shutdown")
		stopPipeline()
	}

	err := g.Wait()
	if readErr == nil && ctx.Err() == nil {
		readErr = err
	}
	if readErr != nil && !websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return readErr
	}
	return nil
}

func (s *Session) readLoop(ctx context.Context) error {
	limiter := newInboundLimiter(s.cfg.MaxAudioFPS, s.cfg.InboundBurstSeconds, nil)
	dropped := 0

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		switch messageType {
		case websocket.BinaryMessage:
			if s.cfg.Base64JSONTransport {
				s.sendError("bad_request", "binary frames are not enabled for this session", "")
				continue
			}
			s.pushAudio(data, limiter, &dropped)
		case websocket.TextMessage:
			decoded, err := protocol.DecodeClientMessage(data)
			if err != nil {
				var decErr *protocol.DecodeError
				if errors.As(err, &decErr) {
					s.sendError(decErr.Code, decErr.Message, decErr.Param)
				} else {
					s.sendError("bad_request", "invalid message", "")
				}
				continue
			}
			switch msg := decoded.(type) {
			case protocol.ClientAudioFrame:
				pcm, err := msg.PCM()
				if err != nil {
					s.sendError("bad_request", "audio_frame.data_b64 is not valid base64", "data_b64")
					continue
				}
				s.pushAudio(pcm, limiter, &dropped)
			case protocol.ClientControl:
				switch msg.Op {
				case protocol.ControlStop:
					s.pipeline.CancelTurn("stop")
				case protocol.ControlCommit:
					s.gate.Commit()
				case protocol.ControlEndSession:
					return nil
				}
			case protocol.ClientHello:
				s.sendError("bad_request", "hello may only be sent once", "type")
			}
		}
	}
}

func (s *Session) pushAudio(pcm []byte, limiter *inboundLimiter, dropped *int) {
	if s.cfg.MaxAudioFrameBytes > 0 && len(pcm) > s.cfg.MaxAudioFrameBytes {
		s.sendError("frame_too_large", "audio frame exceeds max_audio_frame_bytes", "")
		return
	}
	if !limiter.Allow() {
		*dropped++
		// Warn on the first drop of a burst, then every 100 frames.
		if *dropped == 1 || *dropped%100 == 0 {
			s.logger.Warn("dropping inbound audio, client exceeds frame rate", "dropped", *dropped)
			_ = s.SendWarning("rate_limited", "inbound audio frames are being dropped")
		}
		return
	}
	s.gate.Push(pcm)
}

func (s *Session) sendError(code, message, param string) {
	select {
	case s.oob <- protocol.EncodeError(code, message, param, false):
	default:
	}
}
