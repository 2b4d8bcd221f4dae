package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/artpar/apipost/internal/core"
	httpclient "github.com/artpar/apipost/internal/protocol/http"
	"github.com/artpar/apipost/internal/telemetry"
)

// ErrBusy is returned when a request is already in flight.
var ErrBusy = errors.New("a request is already running")

// State is the in-flight state of an Executor.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Sender sends a prepared request. *httpclient.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, req *core.Request) (*core.Response, error)
}

// Executor turns request descriptors into results, one at a time.
type Executor struct {
	sender       Sender
	logger       *slog.Logger
	instrumenter telemetry.Instrumenter

	mu    sync.Mutex
	state State
}

// Option configures the Executor.
type Option func(*Executor)

// WithSender sets the transport used to send requests.
func WithSender(s Sender) Option {
	return func(e *Executor) {
		e.sender = s
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithInstrumenter traces every sent request.
func WithInstrumenter(i telemetry.Instrumenter) Option {
	return func(e *Executor) {
		if i != nil {
			e.instrumenter = i
		}
	}
}

// New creates an Executor. Without WithSender it uses a default HTTP client.
func New(opts ...Option) *Executor {
	e := &Executor{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		instrumenter: telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sender == nil {
		e.sender = httpclient.NewClient()
	}
	return e
}

// State returns the current in-flight state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Execute validates desc and sends it on a new goroutine. done is called
// exactly once with the result after the executor is idle again. A
// validation failure or ErrBusy is returned without starting anything.
func (e *Executor) Execute(desc *core.RequestDescriptor, done func(core.Result)) error {
	if err := e.begin(desc); err != nil {
		return err
	}

	snapshot := desc.Clone()
	go func() {
		result := e.dispatchSafely(context.Background(), snapshot)
		e.finish()
		if done != nil {
			done(result)
		}
	}()
	return nil
}

// Run is the synchronous form of Execute. Execution errors are reported
// in the result, not as an error.
func (e *Executor) Run(ctx context.Context, desc *core.RequestDescriptor) (core.Result, error) {
	if err := e.begin(desc); err != nil {
		return core.Result{}, err
	}
	defer e.finish()

	return e.dispatchSafely(ctx, desc.Clone()), nil
}

func (e *Executor) begin(desc *core.RequestDescriptor) error {
	if desc == nil {
		return &core.ValidationError{Field: "url", Reason: "no request", Err: core.ErrInvalidURL}
	}
	if err := desc.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Running {
		e.logger.Debug("execute rejected", "id", desc.ID, "reason", ErrBusy)
		return ErrBusy
	}
	e.state = Running
	return nil
}

func (e *Executor) finish() {
	e.mu.Lock()
	e.state = Idle
	e.mu.Unlock()
}

// dispatchSafely runs the dispatch and folds every outcome, panics
// included, into a Result. A started span always ends with that Result.
func (e *Executor) dispatchSafely(ctx context.Context, desc *core.RequestDescriptor) (result core.Result) {
	var span telemetry.RequestSpan
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrExecution, r)
			e.logger.Error("execute panicked", "id", desc.ID, "panic", r)
			result = core.NewFailure(desc.ID, err)
		}
		if span != nil {
			span.End(result)
		}
	}()

	e.logger.Debug("execute", "id", desc.ID, "method", desc.Method, "url", desc.URL, "body", desc.BodyType)

	req, err := Prepare(desc)
	if err != nil {
		e.logger.Debug("prepare failed", "id", desc.ID, "error", err)
		return core.NewFailure(desc.ID, err)
	}

	ctx, span = e.instrumenter.Start(ctx, req)
	return e.send(ctx, desc, req)
}

func (e *Executor) send(ctx context.Context, desc *core.RequestDescriptor, req *core.Request) core.Result {
	resp, err := e.sender.Send(ctx, req)
	if err != nil {
		err = fmt.Errorf("%w: %s %s: %w", ErrExecution, req.Method(), req.URL(), err)
		e.logger.Debug("send failed", "id", desc.ID, "error", err)
		return core.NewFailure(desc.ID, err)
	}

	e.logger.Debug("response", "id", desc.ID, "status", resp.Status().Code(), "duration", resp.Timing().Total)
	result := core.NewResult(resp)
	result.RequestID = desc.ID
	return result
}
