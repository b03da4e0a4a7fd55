package emulator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"

	"github.com/lambtest/lambda-test-server/internal/logging"
)

// Request describes one invocation to hand to the captured application.
type Request struct {
	Payload []byte
	// TraceID overrides the generated trace header when set.
	TraceID string
	// ClientContext is passed through verbatim when set.
	ClientContext string
}

// Invocation is a queued invocation whose completion can be awaited.
type Invocation struct {
	ID string

	s       *Server
	p       *pendingInvocation
	started time.Time
}

// Enqueue publishes an invocation to the FIFO queue and returns without
// waiting for the runtime to complete it. A server still in the created
// state is started implicitly first.
func (s *Server) Enqueue(ctx context.Context, req Request) (*Invocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.dispose.Load() {
		return nil, ErrDisposed
	}
	if err := s.ensureRunning(ctx); err != nil {
		return nil, err
	}

	id := fmt.Sprintf("%012d", s.seq.Add(1))
	deadline := time.Now().Add(s.cfg.FunctionTimeout)
	traceID := req.TraceID
	if traceID == "" {
		traceID = newTraceID()
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set(HeaderAWSRequestID, id)
	header.Set(HeaderDeadlineMS, strconv.FormatInt(deadline.UnixMilli(), 10))
	header.Set(HeaderTraceID, traceID)
	header.Set(HeaderInvokedFunctionARN, s.cfg.FunctionArn)
	if req.ClientContext != "" {
		header.Set(HeaderClientContext, req.ClientContext)
	}
	// Additional headers are applied last and win on collision.
	for name, values := range s.cfg.AdditionalHeaders {
		header.Del(name)
		for _, v := range values {
			header.Add(name, v)
		}
	}

	p := &pendingInvocation{
		id:       id,
		header:   header,
		payload:  append([]byte(nil), req.Payload...),
		deadline: deadline,
		done:     newInvocationCompletion(),
	}
	// The table entry must be visible before the id is published, so the
	// processing loop never pops an id it cannot resolve.
	s.pending.Store(id, p)
	s.ids.enqueue(id)

	_ = logging.PrintStart(s.sink, id, s.cfg.FunctionVersion)
	s.log.WithField("request-id", id).Debug("Invocation enqueued.")

	return &Invocation{ID: id, s: s, p: p, started: time.Now()}, nil
}

// Wait blocks until the runtime completes this invocation, the function
// timeout elapses, ctx fires, or the server shuts down. Timeouts and
// cancellation are reported as context errors; a failure reported by the
// runtime is returned as data.
func (inv *Invocation) Wait(ctx context.Context) (*InvocationResult, error) {
	waitCtx, cancel := context.WithDeadline(ctx, inv.p.deadline)
	defer cancel()

	select {
	case <-inv.p.done.Done():
	case <-waitCtx.Done():
		return nil, waitCtx.Err()
	case <-inv.s.shutdownCtx.Done():
		return nil, context.Canceled
	}

	out, _ := inv.p.done.TryValue()
	durationMs := float64(time.Since(inv.started)) / float64(time.Millisecond)
	report := logging.InvokeReport{
		RequestID:        inv.ID,
		DurationMs:       durationMs,
		BilledDurationMs: billedMs(durationMs),
		MemorySizeMB:     inv.s.cfg.MemorySizeMB,
		MaxMemoryUsedMB:  inv.s.cfg.MemorySizeMB,
	}
	if err := report.Print(inv.s.sink); err != nil {
		inv.s.log.WithError(err).Error("Failed to write REPORT line.")
	}

	if out.kind == completionError {
		errResp := &ErrorResponse{}
		if err := inv.s.cfg.Unmarshal(out.payload, errResp); err != nil {
			errResp = &ErrorResponse{
				ErrorMessage: string(out.payload),
				ErrorType:    "Runtime.UnknownError",
			}
		}
		if errResp.RequestId == nil {
			errResp.RequestId = aws.String(inv.ID)
		}
		return &InvocationResult{Payload: out.payload, Error: errResp}, nil
	}
	return &InvocationResult{WasSuccess: true, Payload: out.payload}, nil
}

// Invoke enqueues the payload and waits for its completion.
func (s *Server) Invoke(ctx context.Context, payload []byte) (*InvocationResult, error) {
	inv, err := s.Enqueue(ctx, Request{Payload: payload})
	if err != nil {
		return nil, err
	}
	return inv.Wait(ctx)
}

// InvokeJSON marshals event with the server's JSON convention, invokes the
// captured application and decodes a successful result into T.
func InvokeJSON[T any](ctx context.Context, s *Server, event any) (*Response[T], error) {
	payload, err := s.cfg.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	res, err := s.Invoke(ctx, payload)
	if err != nil {
		return nil, err
	}
	out := &Response[T]{WasSuccess: res.WasSuccess, Error: res.Error}
	if res.WasSuccess {
		v := new(T)
		if err := s.cfg.Unmarshal(res.Payload, v); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		out.Response = v
	}
	return out, nil
}

// ensureRunning performs the implicit start from the created state and
// verifies the server actually reached running.
func (s *Server) ensureRunning(ctx context.Context) error {
	if s.State() == StateRunning {
		return nil
	}
	if s.State() == StateCreated {
		if _, err := s.Start(ctx); err != nil && !errors.Is(err, ErrAlreadyStarted) {
			return err
		}
		// A concurrent caller may own the start; either way the init
		// signal decides whether running was reached.
		out, err := s.initDone.Await(ctx)
		if err != nil {
			return err
		}
		if out.status != InitCompleted {
			return fmt.Errorf("emulator: implicit start did not reach running state (init status %s)", out.status)
		}
	}
	if st := s.State(); st != StateRunning {
		return fmt.Errorf("%w (state %s)", ErrNotRunning, st)
	}
	return nil
}

func billedMs(durationMs float64) float64 {
	billed := float64(int64(durationMs))
	if billed < durationMs {
		billed++
	}
	if billed < 1 {
		billed = 1
	}
	return billed
}
