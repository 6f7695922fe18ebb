package tools

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Bharath8080/voiced/pkg/core/types"
)

type stubTool struct {
	name    string
	schema  *types.JSONSchema
	timeout time.Duration
	execute func(ctx context.Context, args map[string]any) (string, error)
}

func (s *stubTool) Name() string              { return s.name }
func (s *stubTool) Description() string       { return "stub " + s.name }
func (s *stubTool) Schema() *types.JSONSchema { return s.schema }
func (s *stubTool) Timeout() time.Duration    { return s.timeout }

func (s *stubTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return s.execute(ctx, args)
}

func echoTool(name string) *stubTool {
	return &stubTool{
		name: name,
		execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "ok:" + name, nil
		},
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	r := NewRouter(time.Second, 4, nil, echoTool("get_weather"))
	call := r.Dispatch(context.Background(), types.ToolRequest{ID: "c1", Name: "get_stonks"})
	if call.Status != types.ToolCallFailed {
		t.Errorf("Status = %q", call.Status)
	}
	if !strings.Contains(call.Error, "get_stonks") {
		t.Errorf("Error = %q", call.Error)
	}
}

func TestDispatchValidatesArgs(t *testing.T) {
	noExtra := false
	called := false
	tool := &stubTool{
		name: "get_weather",
		schema: &types.JSONSchema{
			Type: "object",
			Properties: map[string]*types.JSONSchema{
				"city": {Type: "string"},
				"days": {Type: "integer"},
			},
			Required:             []string{"city"},
			AdditionalProperties: &noExtra,
		},
		execute: func(ctx context.Context, args map[string]any) (string, error) {
			called = true
			return "sunny", nil
		},
	}
	r := NewRouter(time.Second, 4, nil, tool)

	tests := []struct {
		name string
		args map[string]any
		ok   bool
	}{
		{"valid", map[string]any{"city": "Paris"}, true},
		{"valid with integer", map[string]any{"city": "Paris", "days": float64(3)}, true},
		{"missing required", map[string]any{}, false},
		{"wrong type", map[string]any{"city": 42}, false},
		{"fractional integer", map[string]any{"city": "Paris", "days": 2.5}, false},
		{"unknown key", map[string]any{"city": "Paris", "zip": "75"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			call := r.Dispatch(context.Background(), types.ToolRequest{ID: "c", Name: "get_weather", Args: tt.args})
			if tt.ok {
				if call.Status != types.ToolCallSucceeded {
					t.Fatalf("Status = %q, error = %q", call.Status, call.Error)
				}
				return
			}
			if call.Status != types.ToolCallFailed {
				t.Fatalf("Status = %q, want failed", call.Status)
			}
			if called {
				t.Error("executor must not run on invalid arguments")
			}
		})
	}
}

func TestDispatchTimeout(t *testing.T) {
	slow := &stubTool{
		name:    "slow",
		timeout: 30 * time.Millisecond,
		execute: func(ctx context.Context, args map[string]any) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	r := NewRouter(time.Second, 4, nil, slow)
	call := r.Dispatch(context.Background(), types.ToolRequest{ID: "c", Name: "slow"})
	if call.Status != types.ToolCallTimedOut {
		t.Errorf("Status = %q, want timed_out", call.Status)
	}
}

func TestDispatchProviderError(t *testing.T) {
	broken := &stubTool{
		name: "search",
		execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("upstream 503")
		},
	}
	r := NewRouter(time.Second, 4, nil, broken)
	call := r.Dispatch(context.Background(), types.ToolRequest{ID: "c", Name: "search"})
	if call.Status != types.ToolCallFailed {
		t.Errorf("Status = %q", call.Status)
	}
	if !strings.Contains(call.Error, "503") {
		t.Errorf("Error = %q should carry the cause", call.Error)
	}
}

func TestExecuteAllPreservesOrderAndJoins(t *testing.T) {
	mk := func(name string, delay time.Duration) *stubTool {
		return &stubTool{name: name, execute: func(ctx context.Context, args map[string]any) (string, error) {
			time.Sleep(delay)
			return name, nil
		}}
	}
	r := NewRouter(time.Second, 4, nil,
		mk("a", 40*time.Millisecond), mk("b", 10*time.Millisecond), mk("c", 0))

	calls := r.ExecuteAll(context.Background(), []types.ToolRequest{
		{ID: "1", Name: "a"}, {ID: "2", Name: "b"}, {ID: "3", Name: "c"},
	})
	if len(calls) != 3 {
		t.Fatalf("len = %d", len(calls))
	}
	for i, want := range []string{"a", "b", "c"} {
		if calls[i].Name != want || calls[i].Result != want {
			t.Errorf("calls[%d] = %+v, want %s", i, calls[i], want)
		}
		if calls[i].Status != types.ToolCallSucceeded {
			t.Errorf("calls[%d].Status = %q", i, calls[i].Status)
		}
	}
}

func TestExecuteAllBoundsParallelism(t *testing.T) {
	var running, peak atomic.Int32
	var mu sync.Mutex
	tool := &stubTool{name: "busy", execute: func(ctx context.Context, args map[string]any) (string, error) {
		n := running.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return "done", nil
	}}
	r := NewRouter(time.Second, 2, nil, tool)

	reqs := make([]types.ToolRequest, 6)
	for i := range reqs {
		reqs[i] = types.ToolRequest{ID: "c", Name: "busy"}
	}
	calls := r.ExecuteAll(context.Background(), reqs)
	for i, call := range calls {
		if call.Status != types.ToolCallSucceeded {
			t.Errorf("calls[%d].Status = %q", i, call.Status)
		}
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("peak parallelism = %d, want <= 2", got)
	}
}

func TestExecuteAllCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRouter(time.Second, 1, nil, echoTool("a"))
	calls := r.ExecuteAll(ctx, []types.ToolRequest{{ID: "1", Name: "a"}, {ID: "2", Name: "a"}})
	for i, call := range calls {
		if call.Status == "" {
			t.Errorf("calls[%d] has no terminal status", i)
		}
	}
}

func TestDescriptorsSorted(t *testing.T) {
	r := NewRouter(time.Second, 4, nil, echoTool("zeta"), echoTool("alpha"))
	descs := r.Descriptors()
	if len(descs) != 2 || descs[0].Name != "alpha" || descs[1].Name != "zeta" {
		t.Errorf("descriptors = %+v", descs)
	}
}
