package tools

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/pkg/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agenthub", "tools")

var (
	// ErrToolNotFound is returned when a tool is not registered.
	ErrToolNotFound = errors.New("tool not found")
)

// DefaultCallTimeout bounds a single tool call.
const DefaultCallTimeout = 30 * time.Second

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	timeout        time.Duration
	maxConcurrency int
	callback       Callback
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) RegistryOption {
	return func(o *registryOptions) {
		o.timeout = d
	}
}

// WithMaxConcurrency bounds the number of concurrently executing tool calls.
// Zero disables the bound.
func WithMaxConcurrency(n int) RegistryOption {
	return func(o *registryOptions) {
		o.maxConcurrency = n
	}
}

// WithCallback sets the callback invoked around every call.
func WithCallback(cb Callback) RegistryOption {
	return func(o *registryOptions) {
		o.callback = cb
	}
}

// Registry holds tools and executes them with a timeout, a concurrency
// bound, and panic recovery.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]ITool
	sem    chan struct{}
	opts   registryOptions
}

// NewRegistry creates a Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := registryOptions{
		timeout:        DefaultCallTimeout,
		maxConcurrency: 10,
	}
	for _, opt := range opts {
		opt(&o)
	}
	var sem chan struct{}
	if o.maxConcurrency > 0 {
		sem = make(chan struct{}, o.maxConcurrency)
	}
	return &Registry{
		byName: make(map[string]ITool),
		sem:    sem,
		opts:   o,
	}
}

// Register adds tools to the registry. A tool with an already registered
// name replaces the previous one. Names are case-insensitive.
func (r *Registry) Register(list ...ITool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range list {
		r.byName[strings.ToLower(t.Name())] = t
	}
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (ITool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[strings.ToLower(name)]
	return t, ok
}

// List returns all registered tools sorted by name for deterministic order.
func (r *Registry) List() []ITool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]ITool, 0, len(r.byName))
	for _, t := range r.byName {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name() < res[j].Name()
	})
	return res
}

// Call executes one tool by name.
func (r *Registry) Call(ctx context.Context, name, input string) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		return "", errors.WithMessagef(ErrToolNotFound, "%s", name)
	}
	return r.call(ctx, tool, input)
}

func (r *Registry) call(ctx context.Context, tool ITool, input string) (res string, err error) {
	if r.sem != nil {
		select {
		case r.sem <- struct{}{}:
			defer func() { <-r.sem }()
		case <-ctx.Done():
			return "", errors.WithStack(ctx.Err())
		}
	}

	if r.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.timeout)
		defer cancel()
	}

	started := time.Now()
	name := tool.Name()
	defer func() {
		if rec := recover(); rec != nil {
			logger.ContextKV(ctx, xlog.ERROR,
				"tool", name,
				"status", "panic",
				"err", rec,
			)
			err = errors.Newf("tool %s panicked: %v", name, rec)
		}
		metricskey.PerfToolCall.MeasureSince(started, name)
		if err != nil {
			metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		} else {
			metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
		}
	}()

	if cb := r.opts.callback; cb != nil {
		cb.OnToolStart(ctx, tool, input)
		defer func() {
			if err != nil {
				cb.OnToolError(ctx, tool, input, err)
			} else {
				cb.OnToolEnd(ctx, tool, input, res)
			}
		}()
	}

	res, err = tool.Call(ctx, input)
	return res, err
}

// CallRequest is a single named tool invocation.
type CallRequest struct {
	Name  string `json:"name"`
	Input string `json:"input"`
}

// CallResult is the outcome of one invocation from RunAll.
type CallResult struct {
	Name   string `json:"name"`
	Output string `json:"output,omitempty"`
	Err    error  `json:"-"`
}

// RunAll executes independent tool calls in parallel and returns the
// results in request order. Individual failures are reported per result,
// not as a combined error.
func (r *Registry) RunAll(ctx context.Context, reqs ...CallRequest) []CallResult {
	results := make([]CallResult, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req CallRequest) {
			defer wg.Done()
			out, err := r.Call(ctx, req.Name, req.Input)
			results[i] = CallResult{
				Name:   req.Name,
				Output: out,
				Err:    err,
			}
		}(i, req)
	}
	wg.Wait()

	return results
}
