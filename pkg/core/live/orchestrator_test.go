package live

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Bharath8080/voiced/pkg/core"
	"github.com/Bharath8080/voiced/pkg/core/session"
	"github.com/Bharath8080/voiced/pkg/core/types"
	"github.com/Bharath8080/voiced/pkg/core/voice/stt"
	"github.com/Bharath8080/voiced/pkg/core/voice/tts"
)

type fakeModel struct {
	mu      sync.Mutex
	calls   []*types.ModelRequest
	respond func(ctx context.Context, call int, req *types.ModelRequest) (*types.ModelResponse, error)
}

func (m *fakeModel) Name() string { return "fake-model" }

func (m *fakeModel) Complete(ctx context.Context, req *types.ModelRequest) (*types.ModelResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	n := len(m.calls)
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.respond(ctx, n, req)
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type fakeSTT struct {
	text string
	err  error

	mu      sync.Mutex
	gotOpts stt.TranscribeOptions
}

func (s *fakeSTT) Name() string { return "fake-stt" }

func (s *fakeSTT) Transcribe(ctx context.Context, pcm []byte, opts stt.TranscribeOptions) (*stt.Transcript, error) {
	s.mu.Lock()
	s.gotOpts = opts
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return &stt.Transcript{Text: s.text}, nil
}

func (s *fakeSTT) lastOpts() stt.TranscribeOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gotOpts
}

type fakeTTS struct {
	chunks    [][]byte
	delay     time.Duration
	streamErr error
	dialErr   error

	mu      sync.Mutex
	gotOpts tts.StreamOptions
}

func (f *fakeTTS) Name() string { return "fake-tts" }

func (f *fakeTTS) NewStream(ctx context.Context, opts tts.StreamOptions) (*tts.Stream, error) {
	f.mu.Lock()
	f.gotOpts = opts
	f.mu.Unlock()
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	s := tts.NewStream()
	s.SendFunc = func(text string, final bool) error {
		go func() {
			defer s.FinishAudio()
			for _, c := range f.chunks {
				if f.delay > 0 {
					select {
					case <-time.After(f.delay):
					case <-s.Done():
						return
					case <-ctx.Done():
						return
					}
				}
				if !s.PushAudio(c) {
					return
				}
			}
			if f.streamErr != nil {
				s.SetError(f.streamErr)
			}
		}()
		return nil
	}
	s.CloseFunc = func() error { return nil }
	return s, nil
}

func (f *fakeTTS) lastOpts() tts.StreamOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gotOpts
}

type fakeRouter struct {
	tools []types.Tool
	exec  func(ctx context.Context, req types.ToolRequest) types.ToolCall
}

func (r *fakeRouter) Descriptors() []types.Tool { return r.tools }

func (r *fakeRouter) ExecuteAll(ctx context.Context, reqs []types.ToolRequest) []types.ToolCall {
	out := make([]types.ToolCall, len(reqs))
	for i, req := range reqs {
		out[i] = r.exec(ctx, req)
	}
	return out
}

type pipeline struct {
	gate  *Gate
	orch  *Orchestrator
	store *session.Store

	mu     sync.Mutex
	frames []AudioFrame

	cancel context.CancelFunc
	done   chan struct{}
}

func startPipeline(t *testing.T, model core.ModelClient, sp stt.Provider, tp tts.Provider, router ToolRouter) *pipeline {
	t.Helper()
	cfg := DefaultTurnConfig()
	cfg.MaxToolRounds = 2
	cfg.TurnTimeout = 5 * time.Second
	return startPipelineWith(t, cfg, model, sp, tp, router)
}

func startPipelineWith(t *testing.T, cfg TurnConfig, model core.ModelClient, sp stt.Provider, tp tts.Provider, router ToolRouter) *pipeline {
	t.Helper()
	store := session.NewStore(0, nil)
	gate := NewGate(testGateConfig(), DefaultAudioConfig(), nil)
	orch := NewOrchestrator(Options{
		SessionID: "s1",
		Store:     store,
		Model:     model,
		STT:       sp,
		TTS:       tp,
		Tools:     router,
		Gate:      gate,
		Turn:      cfg,
		Audio:     DefaultAudioConfig(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	p := &pipeline{gate: gate, orch: orch, store: store, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		orch.Run(ctx)
	}()
	go func() {
		for f := range orch.Frames() {
			p.mu.Lock()
			p.frames = append(p.frames, f)
			p.mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		cancel()
		gate.Close()
		<-p.done
	})
	return p
}

func (p *pipeline) frameCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func (p *pipeline) frameSnapshot() []AudioFrame {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]AudioFrame, len(p.frames))
	copy(out, p.frames)
	return out
}

// speakUtterance feeds the gate a 300ms utterance followed by closing
// silence.
func (p *pipeline) speakUtterance() {
	pushN(p.gate, loud, 15)
	pushN(p.gate, quiet, 10)
}

func collectUntil(t *testing.T, p *pipeline, eventType string) []Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	var got []Event
	for {
		select {
		case ev, ok := <-p.orch.Events():
			if !ok {
				t.Fatalf("events closed while waiting for %s", eventType)
			}
			got = append(got, ev)
			if ev.EventType() == eventType {
				return got
			}
		case <-deadline:
			var seen []string
			for _, ev := range got {
				seen = append(seen, ev.EventType())
			}
			t.Fatalf("timed out waiting for %s, saw %v", eventType, seen)
		}
	}
}

func findEvent(events []Event, eventType string) Event {
	for _, ev := range events {
		if ev.EventType() == eventType {
			return ev
		}
	}
	return nil
}

func TestTurnWithToolRound(t *testing.T) {
	model := &fakeModel{respond: func(ctx context.Context, call int, req *types.ModelRequest) (*types.ModelResponse, error) {
		if call == 1 {
			if len(req.Tools) == 0 {
				t.Error("first call should offer tools")
			}
			return &types.ModelResponse{
				StopReason: types.StopToolUse,
				ToolRequests: []types.ToolRequest{
					{ID: "c1", Name: "get_weather", Args: map[string]any{"city": "Paris"}},
				},
			}, nil
		}
		last := req.Messages[len(req.Messages)-1]
		if last.Role != types.RoleTool || !strings.Contains(last.Content, "18") {
			t.Errorf("tool result not fed back, last = %+v", last)
		}
		return &types.ModelResponse{Text: "It is 18 degrees and clear in Paris.", StopReason: types.StopEndTurn}, nil
	}}
	router := &fakeRouter{
		tools: []types.Tool{{Name: "get_weather"}},
		exec: func(ctx context.Context, req types.ToolRequest) types.ToolCall {
			return types.ToolCall{ID: req.ID, Name: req.Name, Status: types.ToolCallSucceeded, Result: "18 C, clear"}
		},
	}
	p := startPipeline(t, model, &fakeSTT{text: "what's the weather in Paris?"},
		&fakeTTS{chunks: [][]byte{{1}, {2}, {3}}}, router)

	p.speakUtterance()
	events := collectUntil(t, p, "turn.completed")

	completed := findEvent(events, "turn.completed").(*TurnCompletedEvent)
	if completed.Rounds != 1 || completed.ToolCalls != 1 {
		t.Errorf("Rounds = %d, ToolCalls = %d, want 1, 1", completed.Rounds, completed.ToolCalls)
	}
	if completed.Reply != "It is 18 degrees and clear in Paris." {
		t.Errorf("Reply = %q", completed.Reply)
	}
	if findEvent(events, "tool.finished") == nil {
		t.Error("missing tool.finished event")
	}

	history, _ := p.store.History("s1")
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2 (user + assistant)", len(history))
	}
	if history[0].Role != types.RoleUser || history[1].Role != types.RoleAssistant {
		t.Errorf("history roles = %q, %q", history[0].Role, history[1].Role)
	}
	if history[0].Seq >= history[1].Seq {
		t.Error("assistant message should follow the user message")
	}

	// Frames must be ordered per turn, starting at zero.
	for i, f := range p.frameSnapshot() {
		if f.Seq != int64(i) {
			t.Errorf("frame %d has seq %d", i, f.Seq)
		}
	}
	if p.frameCount() != 3 {
		t.Errorf("frames = %d, want 3", p.frameCount())
	}
}

func TestBargeInCancelsSpeaking(t *testing.T) {
	chunks := make([][]byte, 100)
	for i := range chunks {
		chunks[i] = []byte{byte(i)}
	}
	model := &fakeModel{respond: func(ctx context.Context, call int, req *types.ModelRequest) (*types.ModelResponse, error) {
		return &types.ModelResponse{Text: "Let me tell you a very long story.", StopReason: types.StopEndTurn}, nil
	}}
	p := startPipeline(t, model, &fakeSTT{text: "tell me a story"},
		&fakeTTS{chunks: chunks, delay: 10 * time.Millisecond}, nil)

	p.speakUtterance()
	collectUntil(t, p, "speaking.started")

	p.gate.Push(shout)
	events := collectUntil(t, p, "turn.cancelled")

	cancelled := findEvent(events, "turn.cancelled").(*TurnCancelledEvent)
	if cancelled.Reason != "barge_in" {
		t.Errorf("Reason = %q, want barge_in", cancelled.Reason)
	}
	if findEvent(events, "audio.flush") == nil {
		t.Error("missing audio.flush event")
	}

	// The partial reply must not reach the transcript.
	history, _ := p.store.History("s1")
	if len(history) != 1 || history[0].Role != types.RoleUser {
		t.Fatalf("history = %+v, want only the user message", history)
	}

	// No frames continue to flow after cancellation settles.
	time.Sleep(30 * time.Millisecond)
	n := p.frameCount()
	time.Sleep(50 * time.Millisecond)
	if got := p.frameCount(); got != n {
		t.Errorf("frames kept flowing after cancel: %d -> %d", n, got)
	}

	// The interrupted user gets a fresh turn.
	p.speakUtterance()
	collectUntil(t, p, "turn.completed")
}

func TestToolFailureIsRecoverable(t *testing.T) {
	model := &fakeModel{respond: func(ctx context.Context, call int, req *types.ModelRequest) (*types.ModelResponse, error) {
		if call == 1 {
			return &types.ModelResponse{
				StopReason:   types.StopToolUse,
				ToolRequests: []types.ToolRequest{{ID: "c1", Name: "web_search", Args: map[string]any{"query": "x"}}},
			}, nil
		}
		last := req.Messages[len(req.Messages)-1]
		if last.Role != types.RoleTool {
			t.Errorf("expected tool result fed back, got role %q", last.Role)
		}
		return &types.ModelResponse{Text: "I could not reach the search service, sorry.", StopReason: types.StopEndTurn}, nil
	}}
	router := &fakeRouter{
		tools: []types.Tool{{Name: "web_search"}},
		exec: func(ctx context.Context, req types.ToolRequest) types.ToolCall {
			return types.ToolCall{
				ID: req.ID, Name: req.Name,
				Status: types.ToolCallTimedOut,
				Error:  core.NewToolTimeoutError(req.Name, nil).Error(),
			}
		},
	}
	p := startPipeline(t, model, &fakeSTT{text: "search for something"},
		&fakeTTS{chunks: [][]byte{{1}}}, router)

	p.speakUtterance()
	events := collectUntil(t, p, "turn.completed")

	if findEvent(events, "turn.failed") != nil {
		t.Error("tool timeout must not fail the turn")
	}
	finished := findEvent(events, "tool.finished").(*ToolCallFinishedEvent)
	if finished.Call.Status != types.ToolCallTimedOut {
		t.Errorf("Status = %q, want timed_out", finished.Call.Status)
	}
	history, _ := p.store.History("s1")
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2", len(history))
	}
}

func TestRoundLimitForcesAnswer(t *testing.T) {
	model := &fakeModel{respond: func(ctx context.Context, call int, req *types.ModelRequest) (*types.ModelResponse, error) {
		if len(req.Tools) > 0 {
			return &types.ModelResponse{
				StopReason:   types.StopToolUse,
				ToolRequests: []types.ToolRequest{{ID: "c", Name: "web_search", Args: map[string]any{"query": "more"}}},
			}, nil
		}
		return &types.ModelResponse{Text: "Here is what I found so far.", StopReason: types.StopEndTurn}, nil
	}}
	router := &fakeRouter{
		tools: []types.Tool{{Name: "web_search"}},
		exec: func(ctx context.Context, req types.ToolRequest) types.ToolCall {
			return types.ToolCall{ID: req.ID, Name: req.Name, Status: types.ToolCallSucceeded, Result: "partial"}
		},
	}
	p := startPipeline(t, model, &fakeSTT{text: "research this deeply"},
		&fakeTTS{chunks: [][]byte{{1}}}, router)

	p.speakUtterance()
	events := collectUntil(t, p, "turn.completed")

	completed := findEvent(events, "turn.completed").(*TurnCompletedEvent)
	if completed.Rounds != 2 {
		t.Errorf("Rounds = %d, want the bound of 2", completed.Rounds)
	}
	if findEvent(events, "turn.round_limit") == nil {
		t.Error("missing turn.round_limit event")
	}
	if model.callCount() != 3 {
		t.Errorf("model calls = %d, want 3 (2 tool rounds + forced answer)", model.callCount())
	}
}

func TestEmptyTranscriptTouchesNothing(t *testing.T) {
	model := &fakeModel{respond: func(context.Context, int, *types.ModelRequest) (*types.ModelResponse, error) {
		t.Error("model must not be called for an empty transcript")
		return &types.ModelResponse{}, nil
	}}
	p := startPipeline(t, model, &fakeSTT{text: "   "}, &fakeTTS{}, nil)

	p.speakUtterance()
	collectUntil(t, p, "state.changed") // transcribing entered

	// Give the turn time to settle back to listening.
	deadline := time.Now().Add(2 * time.Second)
	for p.orch.State() != StateListening && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if p.orch.State() != StateListening {
		t.Fatalf("state = %v, want listening", p.orch.State())
	}
	history, _ := p.store.History("s1")
	if len(history) != 0 {
		t.Errorf("history = %+v, want empty", history)
	}
	if p.frameCount() != 0 {
		t.Errorf("frames = %d, want 0", p.frameCount())
	}
}

func TestModelFailureSpeaksApology(t *testing.T) {
	model := &fakeModel{respond: func(context.Context, int, *types.ModelRequest) (*types.ModelResponse, error) {
		return nil, core.NewModelError("cerebras", nil, "status 500")
	}}
	p := startPipeline(t, model, &fakeSTT{text: "hello"}, &fakeTTS{chunks: [][]byte{{1}, {2}}}, nil)

	p.speakUtterance()
	events := collectUntil(t, p, "turn.failed")

	failed := findEvent(events, "turn.failed").(*TurnFailedEvent)
	if failed.Kind != string(core.ErrorKindModelInference) {
		t.Errorf("Kind = %q", failed.Kind)
	}

	// The apology lands in the transcript and is spoken.
	deadline := time.Now().Add(2 * time.Second)
	for p.frameCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if p.frameCount() < 2 {
		t.Error("apology was not synthesized")
	}
	history, _ := p.store.History("s1")
	if len(history) != 2 || history[1].Role != types.RoleAssistant {
		t.Fatalf("history = %+v, want user + apology", history)
	}
	if !strings.Contains(history[1].Content, "Sorry") {
		t.Errorf("apology text = %q", history[1].Content)
	}
}

func TestTranscriptionFailureFailsTurn(t *testing.T) {
	model := &fakeModel{respond: func(context.Context, int, *types.ModelRequest) (*types.ModelResponse, error) {
		t.Error("model must not be called when transcription fails")
		return &types.ModelResponse{}, nil
	}}
	p := startPipeline(t, model,
		&fakeSTT{err: core.NewTranscriptionError(errors.New("503"), "cartesia status 503")},
		&fakeTTS{chunks: [][]byte{{1}}}, nil)

	p.speakUtterance()
	events := collectUntil(t, p, "turn.failed")
	failed := findEvent(events, "turn.failed").(*TurnFailedEvent)
	if failed.Kind != string(core.ErrorKindTranscription) {
		t.Errorf("Kind = %q", failed.Kind)
	}
	// No user message made it in, so no apology is appended either.
	history, _ := p.store.History("s1")
	if len(history) != 0 {
		t.Errorf("history = %+v, want empty", history)
	}
}

func TestConfiguredModelsReachProviders(t *testing.T) {
	model := &fakeModel{respond: func(context.Context, int, *types.ModelRequest) (*types.ModelResponse, error) {
		return &types.ModelResponse{Text: "Hi there.", StopReason: types.StopEndTurn}, nil
	}}
	sp := &fakeSTT{text: "hello"}
	tp := &fakeTTS{chunks: [][]byte{{1}}}

	cfg := DefaultTurnConfig()
	cfg.MaxToolRounds = 2
	cfg.TurnTimeout = 5 * time.Second
	cfg.SttModel = "ink-whisper-2"
	cfg.TtsModel = "sonic-turbo"
	p := startPipelineWith(t, cfg, model, sp, tp, nil)

	p.speakUtterance()
	collectUntil(t, p, "turn.completed")

	if got := sp.lastOpts().Model; got != "ink-whisper-2" {
		t.Errorf("stt model = %q, want ink-whisper-2", got)
	}
	if got := tp.lastOpts().Model; got != "sonic-turbo" {
		t.Errorf("tts model = %q, want sonic-turbo", got)
	}
}

func TestReplayedUtteranceStartsFreshTurn(t *testing.T) {
	model := &fakeModel{respond: func(context.Context, int, *types.ModelRequest) (*types.ModelResponse, error) {
		return &types.ModelResponse{Text: "Hello.", StopReason: types.StopEndTurn}, nil
	}}
	p := startPipeline(t, model, &fakeSTT{text: "hello"}, &fakeTTS{chunks: [][]byte{{1}}}, nil)

	// Feed the identical frame sequence twice. Each replay must become
	// its own turn with exactly one user/assistant pair, never a second
	// pair on the first turn.
	p.speakUtterance()
	first := collectUntil(t, p, "turn.completed")
	p.speakUtterance()
	second := collectUntil(t, p, "turn.completed")

	firstID := findEvent(first, "turn.completed").(*TurnCompletedEvent).TurnID
	secondID := findEvent(second, "turn.completed").(*TurnCompletedEvent).TurnID
	if firstID == "" || firstID == secondID {
		t.Errorf("turn ids = %q, %q, want two distinct non-empty ids", firstID, secondID)
	}

	history, _ := p.store.History("s1")
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4 (two user/assistant pairs)", len(history))
	}
	wantRoles := []string{types.RoleUser, types.RoleAssistant, types.RoleUser, types.RoleAssistant}
	for i, msg := range history {
		if msg.Role != wantRoles[i] {
			t.Errorf("history[%d].Role = %q, want %q", i, msg.Role, wantRoles[i])
		}
	}
}

func TestStopCancelsActiveTurn(t *testing.T) {
	model := &fakeModel{respond: func(ctx context.Context, c int, req *types.ModelRequest) (*types.ModelResponse, error) {
		if c == 1 {
			// Park until the turn is cancelled.
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &types.ModelResponse{Text: "ok", StopReason: types.StopEndTurn}, nil
	}}
	p := startPipeline(t, model, &fakeSTT{text: "think hard"}, &fakeTTS{chunks: [][]byte{{1}}}, nil)

	p.speakUtterance()
	collectUntil(t, p, "turn.transcript")
	p.orch.CancelTurn("stop")

	events := collectUntil(t, p, "turn.cancelled")
	cancelled := findEvent(events, "turn.cancelled").(*TurnCancelledEvent)
	if cancelled.Reason != "stop" {
		t.Errorf("Reason = %q, want stop", cancelled.Reason)
	}
	history, _ := p.store.History("s1")
	if len(history) != 1 {
		t.Errorf("history length = %d, want 1 (user only)", len(history))
	}
}
