// Package protocol defines the WebSocket wire format for live voice
// sessions. Clients send one JSON hello, then raw PCM as binary
// messages (or base64 JSON frames). The server replies with a
// hello_ack, event envelopes, and audio deltas.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Bharath8080/voiced/pkg/core/live"
)

const (
	ProtocolVersion1 = "1"

	AudioTransportBinary     = "binary"
	AudioTransportBase64JSON = "base64_json"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

func unsupported(message, param string) *DecodeError {
	return &DecodeError{Code: "unsupported", Message: message, Param: param}
}

// AudioFormat describes the inbound audio shape the client will send.
type AudioFormat struct {
	Encoding     string `json:"encoding"`
	SampleRateHz int    `json:"sample_rate_hz"`
	Channels     int    `json:"channels"`
}

type HelloClient struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

type ClientHello struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Client          HelloClient `json:"client,omitempty"`
	AudioIn         AudioFormat `json:"audio_in"`
	VoiceID         string      `json:"voice_id,omitempty"`
	SessionID       string      `json:"session_id,omitempty"`

	Features struct {
		AudioTransport string `json:"audio_transport,omitempty"`
	} `json:"features,omitempty"`
}

// RedactedForLog summarizes the hello without echoing anything the
// client may consider sensitive verbatim.
func (h ClientHello) RedactedForLog() map[string]any {
	return map[string]any{
		"protocol_version": h.ProtocolVersion,
		"client_name":      h.Client.Name,
		"audio_in":         h.AudioIn,
		"has_voice_id":     strings.TrimSpace(h.VoiceID) != "",
		"has_session_id":   strings.TrimSpace(h.SessionID) != "",
		"audio_transport":  h.Features.AudioTransport,
	}
}

// ClientAudioFrame is the base64 JSON transport for one PCM frame.
// Clients on the binary transport send raw PCM instead.
type ClientAudioFrame struct {
	Type    string `json:"type"`
	DataB64 string `json:"data_b64"`
}

func (f ClientAudioFrame) PCM() ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(f.DataB64)
	if err != nil {
		return nil, badRequest("audio_frame.data_b64 is not valid base64", "data_b64")
	}
	return pcm, nil
}

type ClientControl struct {
	Type string `json:"type"`
	Op   string `json:"op"`
}

const (
	// ControlStop cancels the in-flight turn without ending the session.
	ControlStop = "stop"
	// ControlCommit force-commits the open utterance (push to talk).
	ControlCommit = "commit"
	// ControlEndSession closes the session cleanly.
	ControlEndSession = "end_session"
)

// DecodeClientMessage parses one JSON text message from the client.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case "hello":
		var msg ClientHello
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid hello frame", "")
		}
		if err := ValidateHello(&msg); err != nil {
			return nil, err
		}
		return msg, nil
	case "audio_frame":
		var msg ClientAudioFrame
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid audio_frame", "")
		}
		if strings.TrimSpace(msg.DataB64) == "" {
			return nil, badRequest("audio_frame.data_b64 is required", "data_b64")
		}
		return msg, nil
	case "control":
		var msg ClientControl
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid control", "")
		}
		op := strings.TrimSpace(msg.Op)
		switch op {
		case ControlStop, ControlCommit, ControlEndSession:
		case "":
			return nil, badRequest("control.op is required", "op")
		default:
			return nil, unsupported("unsupported control operation", "op")
		}
		msg.Op = op
		return msg, nil
	default:
		return nil, badRequest("unsupported message type", "type")
	}
}

// ValidateHello checks the hello and fills transport defaults.
func ValidateHello(msg *ClientHello) error {
	if strings.TrimSpace(msg.ProtocolVersion) == "" {
		return badRequest("hello.protocol_version is required", "protocol_version")
	}
	if msg.ProtocolVersion != ProtocolVersion1 {
		return unsupported("unsupported protocol version", "protocol_version")
	}
	if strings.TrimSpace(msg.AudioIn.Encoding) == "" {
		msg.AudioIn.Encoding = "pcm_s16le"
	}
	if msg.AudioIn.Encoding != "pcm_s16le" {
		return unsupported("unsupported audio encoding", "audio_in.encoding")
	}
	if msg.AudioIn.SampleRateHz <= 0 {
		return badRequest("hello.audio_in.sample_rate_hz must be > 0", "audio_in.sample_rate_hz")
	}
	if msg.AudioIn.Channels <= 0 {
		return badRequest("hello.audio_in.channels must be > 0", "audio_in.channels")
	}
	if msg.AudioIn.Channels != 1 {
		return unsupported("only mono input is supported", "audio_in.channels")
	}

	transport := strings.TrimSpace(msg.Features.AudioTransport)
	switch transport {
	case "":
		msg.Features.AudioTransport = AudioTransportBinary
	case AudioTransportBinary, AudioTransportBase64JSON:
	default:
		return unsupported("unsupported audio transport", "features.audio_transport")
	}
	return nil
}

type HelloAckLimits struct {
	MaxAudioFrameBytes  int   `json:"max_audio_frame_bytes"`
	MaxJSONMessageBytes int64 `json:"max_json_message_bytes"`
	MaxAudioFPS         int   `json:"max_audio_fps,omitempty"`
}

type ServerHelloAck struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	AudioIn         AudioFormat    `json:"audio_in"`
	AudioOut        AudioFormat    `json:"audio_out"`
	Limits          HelloAckLimits `json:"limits"`
}

type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
	Close   bool   `json:"close,omitempty"`
}

type ServerWarning struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServerAudioDelta carries one synthesized PCM frame to the client.
type ServerAudioDelta struct {
	Type    string `json:"type"`
	TurnID  string `json:"turn_id"`
	Seq     int64  `json:"seq"`
	DataB64 string `json:"data_b64"`
}

// EncodeAudioDelta wraps one outbound frame as a JSON message.
func EncodeAudioDelta(frame live.AudioFrame) ([]byte, error) {
	return json.Marshal(ServerAudioDelta{
		Type:    "audio.delta",
		TurnID:  frame.TurnID,
		Seq:     frame.Seq,
		DataB64: base64.StdEncoding.EncodeToString(frame.PCM),
	})
}

// EncodeEvent serializes a pipeline event with its wire type injected.
func EncodeEvent(ev live.Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["type"] = ev.EventType()
	return json.Marshal(fields)
}

// EncodeError serializes a server error message.
func EncodeError(code, message, param string, closeConn bool) []byte {
	b, _ := json.Marshal(ServerError{
		Type:    "error",
		Code:    code,
		Message: message,
		Param:   param,
		Close:   closeConn,
	})
	return b
}

// EncodeWarning serializes a server warning, used for drain notices.
func EncodeWarning(code, message string) []byte {
	b, _ := json.Marshal(ServerWarning{Type: "warning", Code: code, Message: message})
	return b
}
