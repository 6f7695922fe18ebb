// Package tools routes the model's tool requests to registered
// executors: lookup, argument validation, per-call timeouts, and
// bounded parallel dispatch with normalized outcomes.
package tools

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Bharath8080/voiced/pkg/core"
	"github.com/Bharath8080/voiced/pkg/core/types"
)

// Executor is one callable tool. Execute returns the result text fed
// back to the model; errors are normalized by the router.
type Executor interface {
	Name() string
	Description() string
	Schema() *types.JSONSchema
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// TimeoutOverride lets an executor set a per-tool timeout instead of
// the router default.
type TimeoutOverride interface {
	Timeout() time.Duration
}

// Router holds the tool registry and dispatches requests.
type Router struct {
	byName      map[string]Executor
	names       []string
	timeout     time.Duration
	maxParallel int64
	logger      *slog.Logger
}

// NewRouter creates a router. timeout is the default per-call bound and
// maxParallel caps concurrent executions within one batch.
func NewRouter(timeout time.Duration, maxParallel int, logger *slog.Logger, executors ...Executor) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if maxParallel < 1 {
		maxParallel = 1
	}
	r := &Router{
		byName:      make(map[string]Executor, len(executors)),
		timeout:     timeout,
		maxParallel: int64(maxParallel),
		logger:      logger,
	}
	for _, ex := range executors {
		if _, dup := r.byName[ex.Name()]; dup {
			logger.Warn("duplicate tool registration", "tool", ex.Name())
			continue
		}
		r.byName[ex.Name()] = ex
		r.names = append(r.names, ex.Name())
	}
	sort.Strings(r.names)
	return r
}

// Names returns the registered tool names in sorted order.
func (r *Router) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Descriptors returns the tool definitions advertised to the model.
func (r *Router) Descriptors() []types.Tool {
	out := make([]types.Tool, 0, len(r.names))
	for _, name := range r.names {
		ex := r.byName[name]
		out = append(out, types.Tool{
			Name:        ex.Name(),
			Description: ex.Description(),
			InputSchema: ex.Schema(),
		})
	}
	return out
}

// Dispatch resolves one request. The returned call always has a
// terminal status; failures are carried in the call, never as a Go
// error, so the model can react to them.
func (r *Router) Dispatch(ctx context.Context, req types.ToolRequest) types.ToolCall {
	call := types.ToolCall{ID: req.ID, Name: req.Name, Args: req.Args}
	start := time.Now()
	defer func() {
		call.DurationMs = time.Since(start).Milliseconds()
	}()

	ex, ok := r.byName[req.Name]
	if !ok {
		call.Status = types.ToolCallFailed
		call.Error = core.NewToolNotFoundError(req.Name).Error()
		return call
	}
	if err := validateArgs(ex.Schema(), req.Name, req.Args); err != nil {
		// The provider is never contacted with bad arguments.
		call.Status = types.ToolCallFailed
		call.Error = err.Error()
		return call
	}

	timeout := r.timeout
	if to, ok := ex.(TimeoutOverride); ok && to.Timeout() > 0 {
		timeout = to.Timeout()
	}
	cctx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := ex.Execute(cctx, req.Args)
	switch {
	case err == nil:
		call.Status = types.ToolCallSucceeded
		call.Result = result
	case cctx.Err() == context.DeadlineExceeded && ctx.Err() == nil:
		call.Status = types.ToolCallTimedOut
		call.Error = core.NewToolTimeoutError(req.Name, err).Error()
	default:
		call.Status = types.ToolCallFailed
		call.Error = core.NewToolProviderError(req.Name, err).Error()
	}
	if call.Status != types.ToolCallSucceeded {
		r.logger.Warn("tool call failed",
			"tool", req.Name, "status", string(call.Status), "error", call.Error)
	}
	return call
}

// ExecuteAll resolves a batch of requests, at most maxParallel at a
// time, and returns the calls in request order. Every request gets a
// terminal outcome even when ctx is cancelled mid-batch.
func (r *Router) ExecuteAll(ctx context.Context, reqs []types.ToolRequest) []types.ToolCall {
	out := make([]types.ToolCall, len(reqs))
	sem := semaphore.NewWeighted(r.maxParallel)
	var g errgroup.Group
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				out[i] = types.ToolCall{
					ID: req.ID, Name: req.Name, Args: req.Args,
					Status: types.ToolCallFailed,
					Error:  core.NewToolProviderError(req.Name, err).Error(),
				}
				return nil
			}
			defer sem.Release(1)
			out[i] = r.Dispatch(ctx, req)
			return nil
		})
	}
	g.Wait()
	return out
}
