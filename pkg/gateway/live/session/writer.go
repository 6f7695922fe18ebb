package session

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/Bharath8080/voiced/pkg/core/live"
	"github.com/Bharath8080/voiced/pkg/gateway/live/protocol"
)

type wsWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
}

// outboundWriter is the single goroutine allowed to write to the
// socket. It multiplexes pipeline events, reply audio, and server
// messages, and keeps the connection alive with pings.
type outboundWriter struct {
	ws     wsWriter
	events <-chan live.Event
	frames <-chan live.AudioFrame
	oob    <-chan []byte

	pingInterval time.Duration
	writeTimeout time.Duration

	onEvent func(live.Event)
	onFrame func()
}

func (w *outboundWriter) Run() error {
	pingInterval := w.pingInterval
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	writeTimeout := w.writeTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	events := w.events
	frames := w.frames

	for {
		// Events carry control signals like audio.flush; give them the
		// bus before queued audio.
		if events != nil {
			select {
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if err := w.writeEvent(ev, writeTimeout); err != nil {
					return err
				}
				continue
			default:
			}
		}

		if events == nil && frames == nil {
			deadline := time.Now().Add(writeTimeout)
			_ = w.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return nil
		}

		select {
		case <-pingTicker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := w.ws.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				return err
			}
		case payload := <-w.oob:
			if err := w.writeText(payload, writeTimeout); err != nil {
				return err
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := w.writeEvent(ev, writeTimeout); err != nil {
				return err
			}
		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			payload, err := protocol.EncodeAudioDelta(frame)
			if err != nil {
				continue
			}
			if err := w.writeText(payload, writeTimeout); err != nil {
				return err
			}
			if w.onFrame != nil {
				w.onFrame()
			}
		}
	}
}

func (w *outboundWriter) writeEvent(ev live.Event, writeTimeout time.Duration) error {
	if w.onEvent != nil {
		w.onEvent(ev)
	}
	payload, err := protocol.EncodeEvent(ev)
	if err != nil {
		return nil
	}
	return w.writeText(payload, writeTimeout)
}

func (w *outboundWriter) writeText(payload []byte, writeTimeout time.Duration) error {
	if err := w.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return w.ws.WriteMessage(websocket.TextMessage, payload)
}
