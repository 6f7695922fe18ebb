package protocol

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Bharath8080/voiced/pkg/core/live"
)

func TestDecodeClientMessage_Hello(t *testing.T) {
	raw := []byte(`{
		"type":"hello",
		"protocol_version":"1",
		"client":{"name":"voiced-web","version":"0.3.0"},
		"audio_in":{"encoding":"pcm_s16le","sample_rate_hz":16000,"channels":1},
		"features":{"audio_transport":"binary"}
	}`)

	msg, err := DecodeClientMessage(raw)
	if err != nil {
		t.Fatalf("DecodeClientMessage() error = %v", err)
	}
	hello, ok := msg.(ClientHello)
	if !ok {
		t.Fatalf("decoded type = %T, want ClientHello", msg)
	}
	if hello.ProtocolVersion != "1" {
		t.Fatalf("protocol_version=%q", hello.ProtocolVersion)
	}
	if hello.Features.AudioTransport != AudioTransportBinary {
		t.Fatalf("audio_transport=%q", hello.Features.AudioTransport)
	}
}

func TestDecodeClientMessage_HelloDefaultsTransport(t *testing.T) {
	raw := []byte(`{
		"type":"hello",
		"protocol_version":"1",
		"audio_in":{"sample_rate_hz":16000,"channels":1}
	}`)

	msg, err := DecodeClientMessage(raw)
	if err != nil {
		t.Fatalf("DecodeClientMessage() error = %v", err)
	}
	hello := msg.(ClientHello)
	if hello.Features.AudioTransport != AudioTransportBinary {
		t.Fatalf("audio_transport=%q, want binary default", hello.Features.AudioTransport)
	}
	if hello.AudioIn.Encoding != "pcm_s16le" {
		t.Fatalf("encoding=%q, want pcm_s16le default", hello.AudioIn.Encoding)
	}
}

func TestDecodeClientMessage_HelloMissingRequired(t *testing.T) {
	raw := []byte(`{"type":"hello","protocol_version":"1"}`)
	_, err := DecodeClientMessage(raw)
	if err == nil {
		t.Fatalf("expected error")
	}
	decErr, ok := err.(*DecodeError)
	if !ok {
		t.Fatalf("err type = %T", err)
	}
	if decErr.Code != "bad_request" {
		t.Fatalf("code=%q", decErr.Code)
	}
}

func TestDecodeClientMessage_HelloRejectsStereo(t *testing.T) {
	raw := []byte(`{
		"type":"hello",
		"protocol_version":"1",
		"audio_in":{"encoding":"pcm_s16le","sample_rate_hz":16000,"channels":2}
	}`)
	_, err := DecodeClientMessage(raw)
	if err == nil {
		t.Fatal("expected error")
	}
	decErr := err.(*DecodeError)
	if decErr.Code != "unsupported" {
		t.Fatalf("code=%q", decErr.Code)
	}
}

func TestDecodeClientMessage_AudioFrame(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	raw := []byte(`{"type":"audio_frame","data_b64":"` +
		base64.StdEncoding.EncodeToString(pcm) + `"}`)

	msg, err := DecodeClientMessage(raw)
	if err != nil {
		t.Fatalf("DecodeClientMessage() error = %v", err)
	}
	frame := msg.(ClientAudioFrame)
	got, err := frame.PCM()
	if err != nil {
		t.Fatalf("PCM() error = %v", err)
	}
	if string(got) != string(pcm) {
		t.Fatalf("PCM() = %v, want %v", got, pcm)
	}
}

func TestDecodeClientMessage_ControlOps(t *testing.T) {
	for _, op := range []string{"stop", "commit", "end_session"} {
		msg, err := DecodeClientMessage([]byte(`{"type":"control","op":"` + op + `"}`))
		if err != nil {
			t.Fatalf("DecodeClientMessage(%s) error = %v", op, err)
		}
		if ctl := msg.(ClientControl); ctl.Op != op {
			t.Fatalf("op = %q, want %q", ctl.Op, op)
		}
	}
}

func TestDecodeClientMessage_UnsupportedControlOp(t *testing.T) {
	raw := []byte(`{"type":"control","op":"reboot"}`)
	_, err := DecodeClientMessage(raw)
	if err == nil {
		t.Fatalf("expected error")
	}
	decErr, ok := err.(*DecodeError)
	if !ok {
		t.Fatalf("err type = %T", err)
	}
	if decErr.Code != "unsupported" {
		t.Fatalf("code=%q", decErr.Code)
	}
}

func TestEncodeEventInjectsType(t *testing.T) {
	data, err := EncodeEvent(&live.TranscriptEvent{TurnID: "t1", Text: "hello there"})
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "turn.transcript" {
		t.Fatalf("type = %v, want turn.transcript", decoded["type"])
	}
	if decoded["text"] != "hello there" {
		t.Fatalf("text = %v", decoded["text"])
	}
}

func TestEncodeAudioDeltaRoundTrips(t *testing.T) {
	pcm := []byte{0x10, 0x20, 0x30}
	data, err := EncodeAudioDelta(live.AudioFrame{TurnID: "t1", Seq: 7, PCM: pcm})
	if err != nil {
		t.Fatalf("EncodeAudioDelta() error = %v", err)
	}
	var delta ServerAudioDelta
	if err := json.Unmarshal(data, &delta); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if delta.Type != "audio.delta" || delta.TurnID != "t1" || delta.Seq != 7 {
		t.Fatalf("delta = %+v", delta)
	}
	decoded, err := base64.StdEncoding.DecodeString(delta.DataB64)
	if err != nil {
		t.Fatalf("decode data_b64: %v", err)
	}
	if string(decoded) != string(pcm) {
		t.Fatalf("pcm = %v, want %v", decoded, pcm)
	}
}

func TestClientHelloRedaction(t *testing.T) {
	h := ClientHello{
		Type:            "hello",
		ProtocolVersion: "1",
		Client:          HelloClient{Name: "voiced-cli"},
		AudioIn:         AudioFormat{Encoding: "pcm_s16le", SampleRateHz: 16000, Channels: 1},
		VoiceID:         "694f9389-aac1-45b6-b726-9d9369183238",
		SessionID:       "resume-abc",
	}

	redacted := h.RedactedForLog()
	blob, err := json.Marshal(redacted)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(blob), "694f9389") {
		t.Fatalf("redacted payload leaked voice id: %s", blob)
	}
	if strings.Contains(string(blob), "resume-abc") {
		t.Fatalf("redacted payload leaked session id: %s", blob)
	}
	if !strings.Contains(string(blob), "has_voice_id") {
		t.Fatalf("expected has_voice_id in redacted payload: %s", blob)
	}
}
