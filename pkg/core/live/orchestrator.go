package live

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Bharath8080/voiced/pkg/core"
	"github.com/Bharath8080/voiced/pkg/core/session"
	"github.com/Bharath8080/voiced/pkg/core/types"
	"github.com/Bharath8080/voiced/pkg/core/voice/stt"
	"github.com/Bharath8080/voiced/pkg/core/voice/tts"
)

// ToolRouter dispatches the model's tool requests. ExecuteAll resolves
// every request, preserving order, and never fails the batch: per-call
// outcomes are carried in the returned calls.
type ToolRouter interface {
	Descriptors() []types.Tool
	ExecuteAll(ctx context.Context, reqs []types.ToolRequest) []types.ToolCall
}

// Options wires an Orchestrator.
type Options struct {
	SessionID string
	Store     *session.Store
	Model     core.ModelClient
	STT       stt.Provider
	TTS       tts.Provider
	Tools     ToolRouter
	Gate      *Gate
	Turn      TurnConfig
	Audio     AudioConfig
	Logger    *slog.Logger
}

// Orchestrator runs one session's turn pipeline: it consumes endpointed
// utterances from the gate and drives each through transcription,
// bounded tool-augmented reasoning, and synthesis. Turns are strictly
// serialized; at most one is active at a time.
type Orchestrator struct {
	sessionID string
	store     *session.Store
	model     core.ModelClient
	stt       stt.Provider
	tts       tts.Provider
	tools     ToolRouter
	gate      *Gate
	cfg       TurnConfig
	audio     AudioConfig
	logger    *slog.Logger

	mu      sync.Mutex
	state   TurnState
	current *Turn

	events chan Event
	frames chan AudioFrame
}

// NewOrchestrator creates the pipeline for one session.
func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		sessionID: opts.SessionID,
		store:     opts.Store,
		model:     opts.Model,
		stt:       opts.STT,
		tts:       opts.TTS,
		tools:     opts.Tools,
		gate:      opts.Gate,
		cfg:       opts.Turn,
		audio:     opts.Audio,
		logger:    logger.With("session_id", opts.SessionID),
		state:     StateListening,
		events:    make(chan Event, 64),
		frames:    make(chan AudioFrame, 32),
	}
}

// Events returns the pipeline event stream. Closed when Run returns.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// Frames returns reply audio in playback order. Closed when Run
// returns.
func (o *Orchestrator) Frames() <-chan AudioFrame { return o.frames }

// State returns the current pipeline state.
func (o *Orchestrator) State() TurnState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// CancelTurn aborts the active turn, if any.
func (o *Orchestrator) CancelTurn(reason string) {
	o.mu.Lock()
	t := o.current
	o.mu.Unlock()
	if t != nil {
		t.Cancel(reason)
	}
}

// Run processes utterances until ctx is cancelled or the gate closes.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.store.Open(o.sessionID)
	defer func() {
		o.setState(StateClosed)
		close(o.frames)
		close(o.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case utt, ok := <-o.gate.Utterances():
			if !ok {
				return nil
			}
			o.runTurn(ctx, utt)
		case <-o.gate.BargeIn():
			// Stray signal with no active turn.
		}
	}
}

func (o *Orchestrator) setState(s TurnState) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()
	if prev != s {
		o.emit(&StateChangedEvent{From: prev, To: s, FromName: prev.String(), ToName: s.String()})
	}
}

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
		o.logger.Warn("event queue full, dropping", "event", ev.EventType())
	}
}

func (o *Orchestrator) runTurn(ctx context.Context, utt Utterance) {
	turn := &Turn{
		ID:        uuid.NewString(),
		SessionID: o.sessionID,
		startedAt: time.Now(),
	}
	if err := o.store.ClaimTurn(o.sessionID, turn.ID); err != nil {
		o.logger.Warn("turn claim failed", "error", err)
		return
	}
	defer o.store.ReleaseTurn(o.sessionID, turn.ID)

	tctx := ctx
	var cancel context.CancelFunc
	if o.cfg.TurnTimeout > 0 {
		tctx, cancel = context.WithTimeout(ctx, o.cfg.TurnTimeout)
	} else {
		tctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	turn.mu.Lock()
	turn.cancel = cancel
	turn.mu.Unlock()

	o.mu.Lock()
	o.current = turn
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.current = nil
		o.mu.Unlock()
	}()

	// Loud speech from here on interrupts the turn.
	o.gate.SetResponding(true)
	defer o.gate.SetResponding(false)
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case e := <-o.gate.BargeIn():
			o.emit(&BargeInEvent{TurnID: turn.ID, Energy: e})
			turn.Cancel("barge_in")
		case <-watchDone:
		case <-tctx.Done():
		}
	}()

	o.emit(&TurnStartedEvent{TurnID: turn.ID, SessionID: o.sessionID})
	o.emit(&UtteranceEvent{DurationMs: utt.Duration.Milliseconds(), Bytes: len(utt.PCM)})

	o.runPhases(tctx, turn, utt)
	o.setState(StateListening)
}

// runPhases drives one turn through its states. All exits funnel
// through finishCancelled, finishFailed, or the completion tail.
func (o *Orchestrator) runPhases(ctx context.Context, turn *Turn, utt Utterance) {
	// Transcribing.
	o.setState(StateTranscribing)
	transcript, err := o.stt.Transcribe(ctx, utt.PCM, stt.TranscribeOptions{
		Model:      o.cfg.SttModel,
		Encoding:   "pcm_s16le",
		SampleRate: o.audio.SampleRate,
	})
	if ctx.Err() != nil {
		o.finishCancelled(turn)
		return
	}
	if err != nil {
		o.finishFailed(ctx, turn, err)
		return
	}
	turn.Transcript = strings.TrimSpace(transcript.Text)
	if turn.Transcript == "" {
		// Nothing intelligible was said. The session is untouched.
		o.logger.Debug("empty transcript, dropping turn", "turn_id", turn.ID)
		return
	}
	o.emit(&TranscriptEvent{TurnID: turn.ID, Text: turn.Transcript})
	if _, err := o.store.Append(o.sessionID, types.UserMessage(turn.Transcript)); err != nil {
		o.finishFailed(ctx, turn, err)
		return
	}

	// Reasoning, with bounded tool rounds.
	final, err := o.reason(ctx, turn)
	if ctx.Err() != nil {
		o.finishCancelled(turn)
		return
	}
	if err != nil {
		o.finishFailed(ctx, turn, err)
		return
	}
	turn.Reply = final
	o.emit(&AssistantTextEvent{TurnID: turn.ID, Text: final})

	// Synthesizing and Speaking.
	spoken := SanitizeForSpeech(final)
	if spoken != "" {
		if err := o.speak(ctx, turn, spoken); err != nil {
			if ctx.Err() != nil {
				o.finishCancelled(turn)
				return
			}
			o.finishFailed(ctx, turn, err)
			return
		}
	}

	if _, err := o.store.Append(o.sessionID, types.AssistantMessage(final)); err != nil {
		o.finishFailed(ctx, turn, err)
		return
	}
	o.emit(&TurnCompletedEvent{
		TurnID:     turn.ID,
		SessionID:  o.sessionID,
		Transcript: turn.Transcript,
		Reply:      final,
		Rounds:     turn.Rounds,
		ToolCalls:  len(turn.Trace),
		DurationMs: turn.Elapsed().Milliseconds(),
	})
}

// reason runs the model loop until it produces a text answer. Tool
// requests are dispatched through the router and their outcomes fed
// back; after MaxToolRounds rounds tools are withheld so the model must
// answer with what it has.
func (o *Orchestrator) reason(ctx context.Context, turn *Turn) (string, error) {
	o.setState(StateReasoning)
	history, err := o.store.History(o.sessionID)
	if err != nil {
		return "", err
	}
	msgs := history

	for round := 0; ; round++ {
		var tools []types.Tool
		if o.tools != nil && round < o.cfg.MaxToolRounds {
			tools = o.tools.Descriptors()
		} else if round == o.cfg.MaxToolRounds && len(turn.Trace) > 0 {
			o.emit(&RoundLimitEvent{TurnID: turn.ID, Rounds: round})
		}

		resp, err := o.model.Complete(ctx, &types.ModelRequest{
			Model:       o.cfg.Model,
			System:      o.cfg.System,
			Messages:    msgs,
			Tools:       tools,
			MaxTokens:   o.cfg.MaxTokens,
			Temperature: o.cfg.Temperature,
		})
		if err != nil {
			return "", err
		}
		if len(resp.ToolRequests) == 0 || round >= o.cfg.MaxToolRounds {
			// Requests past the round bound are dropped, the text
			// answer stands.
			return resp.Text, nil
		}

		// ToolExecuting.
		o.setState(StateToolExecuting)
		turn.Rounds++
		for _, req := range resp.ToolRequests {
			o.emit(&ToolCallStartedEvent{TurnID: turn.ID, CallID: req.ID, Tool: req.Name, Round: turn.Rounds})
		}
		calls := o.tools.ExecuteAll(ctx, resp.ToolRequests)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		assistant := types.Message{Role: types.RoleAssistant, Content: resp.Text, ToolCalls: calls}
		msgs = append(msgs, assistant)
		for _, call := range calls {
			o.emit(&ToolCallFinishedEvent{TurnID: turn.ID, Call: call, Round: turn.Rounds})
			turn.Trace = append(turn.Trace, call)
			msgs = append(msgs, types.ToolResultMessage(call))
		}
		o.setState(StateReasoning)
	}
}

// speak synthesizes text and streams ordered frames until the reply
// finishes or the turn is cancelled.
func (o *Orchestrator) speak(ctx context.Context, turn *Turn, text string) error {
	o.setState(StateSynthesizing)
	stream, err := o.tts.NewStream(ctx, tts.StreamOptions{
		Model:      o.cfg.TtsModel,
		Voice:      o.cfg.Voice,
		SampleRate: o.cfg.SampleRate,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.SendText(text, true); err != nil {
		return err
	}

	synth := NewSynthStream(turn.ID, o.frames, ctx.Done())
	started := false
	for {
		select {
		case <-ctx.Done():
			synth.Cancel()
			return ctx.Err()
		case chunk, ok := <-stream.Audio():
			if !ok {
				if err := stream.Err(); err != nil {
					return err
				}
				o.logger.Debug("reply spoken",
					"turn_id", turn.ID, "frames", synth.Frames())
				return nil
			}
			if !started {
				started = true
				o.setState(StateSpeaking)
				o.emit(&SpeakingStartedEvent{TurnID: turn.ID})
			}
			if !synth.Forward(chunk) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}
		}
	}
}

func (o *Orchestrator) finishCancelled(turn *Turn) {
	reason := turn.CancelReason()
	if reason == "" {
		reason = "timeout"
	}
	o.setState(StateCancelled)
	o.emit(&AudioFlushEvent{TurnID: turn.ID})
	o.emit(&TurnCancelledEvent{TurnID: turn.ID, Reason: reason})
	o.logger.Info("turn cancelled", "turn_id", turn.ID, "reason", reason)
}

// finishFailed marks the turn failed, appends the apology to the
// transcript, and speaks it best effort.
func (o *Orchestrator) finishFailed(ctx context.Context, turn *Turn, err error) {
	kind := core.KindOf(err)
	o.setState(StateFailed)
	o.emit(&TurnFailedEvent{TurnID: turn.ID, Kind: string(kind), Message: err.Error()})
	o.logger.Error("turn failed", "turn_id", turn.ID, "kind", string(kind), "error", err)

	apology := o.cfg.ApologyText
	if apology == "" {
		return
	}
	if turn.Transcript != "" {
		if _, aerr := o.store.Append(o.sessionID, types.AssistantMessage(apology)); aerr != nil {
			o.logger.Error("apology append failed", "error", aerr)
		}
	}
	if kind == core.ErrorKindSynthesis || ctx.Err() != nil {
		return
	}
	if serr := o.speak(ctx, turn, apology); serr != nil && !errors.Is(serr, context.Canceled) {
		o.logger.Error("apology synthesis failed", "error", serr)
	}
}
