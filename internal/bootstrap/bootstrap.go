// Package bootstrap implements the client half of the Lambda Runtime API:
// the loop a function host runs to poll for invocations, execute a handler
// and report the outcome. It speaks plain HTTP, so it works both against the
// in-memory emulator transport and a real listener.
package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	log "github.com/sirupsen/logrus"
)

// Runtime API metadata headers, client-side view.
const (
	headerAWSRequestID       = "Lambda-Runtime-Aws-Request-Id"
	headerDeadlineMS         = "Lambda-Runtime-Deadline-Ms"
	headerTraceID            = "Lambda-Runtime-Trace-Id"
	headerInvokedFunctionARN = "Lambda-Runtime-Invoked-Function-Arn"
	headerClientContext      = "Lambda-Runtime-Client-Context"
)

const defaultEndpoint = "http://lambda-test-server/2018-06-01"

// Handler processes one invocation payload and returns the response body.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// Config wires the hooks of a captured application.
type Config struct {
	// Endpoint is the runtime API base including the version segment.
	// Defaults to the in-memory emulator's placeholder host.
	Endpoint string

	// Init is the cold-start hook. Returning false aborts the host without
	// error; returning an error reports an initialization failure before
	// the first poll. Nil means proceed.
	Init func(ctx context.Context) (bool, error)

	// Handler serves each invocation.
	Handler Handler

	// Shutdown runs once the loop observes cancellation. Its error is
	// returned from Run so an embedding can surface it.
	Shutdown func(ctx context.Context) error

	// ShutdownTimeout bounds the Shutdown hook. Defaults to 2s.
	ShutdownTimeout time.Duration
}

type errorPayload struct {
	ErrorMessage string   `json:"errorMessage"`
	ErrorType    string   `json:"errorType,omitempty"`
	StackTrace   []string `json:"stackTrace,omitempty"`
}

type traceIDKey struct{}

// TraceID returns the X-Ray trace header of the invocation the handler is
// serving, or the empty string outside a handler.
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey{}).(string)
	return v
}

type invocation struct {
	requestID string
	arn       string
	traceID   string
	deadline  time.Time
	payload   []byte
}

// Run drives the bootstrap loop until ctx is cancelled. It is the entry
// point handed to the emulator as the captured application.
func Run(ctx context.Context, client *http.Client, cfg Config) error {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 2 * time.Second
	}
	logger := log.WithField("component", "bootstrap")

	if cfg.Init != nil {
		proceed, err := cfg.Init(ctx)
		if err != nil {
			logger.WithError(err).Debug("Cold start failed, reporting init error.")
			postInitError(ctx, client, cfg.Endpoint, err)
			return err
		}
		if !proceed {
			logger.Debug("Cold start aborted, exiting without polling.")
			return nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return runShutdown(cfg, logger)
		default:
		}

		inv, err := next(ctx, client, cfg.Endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return runShutdown(cfg, logger)
			}
			return fmt.Errorf("poll next invocation: %w", err)
		}

		serve(ctx, client, cfg, inv)
	}
}

func serve(ctx context.Context, client *http.Client, cfg Config, inv *invocation) {
	handlerCtx := ctx
	if !inv.deadline.IsZero() {
		var cancel context.CancelFunc
		handlerCtx, cancel = context.WithDeadline(ctx, inv.deadline)
		defer cancel()
	}

	lc := &lambdacontext.LambdaContext{
		AwsRequestID:       inv.requestID,
		InvokedFunctionArn: inv.arn,
	}
	handlerCtx = lambdacontext.NewContext(handlerCtx, lc)
	if inv.traceID != "" {
		handlerCtx = context.WithValue(handlerCtx, traceIDKey{}, inv.traceID)
	}

	out, err := cfg.Handler(handlerCtx, inv.payload)
	if err != nil {
		body, _ := json.Marshal(errorPayload{
			ErrorMessage: err.Error(),
			ErrorType:    fmt.Sprintf("%T", err),
		})
		post(ctx, client, fmt.Sprintf("%s/runtime/invocation/%s/error", cfg.Endpoint, inv.requestID), body)
		return
	}
	post(ctx, client, fmt.Sprintf("%s/runtime/invocation/%s/response", cfg.Endpoint, inv.requestID), out)
}

func runShutdown(cfg Config, logger *log.Entry) error {
	if cfg.Shutdown == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := cfg.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Debug("Shutdown hook failed.")
		return fmt.Errorf("bootstrap shutdown: %w", err)
	}
	return nil
}

func next(ctx context.Context, client *http.Client, endpoint string) (*invocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/runtime/invocation/next", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("next invocation returned status %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	inv := &invocation{
		requestID: resp.Header.Get(headerAWSRequestID),
		arn:       resp.Header.Get(headerInvokedFunctionARN),
		traceID:   resp.Header.Get(headerTraceID),
		payload:   payload,
	}
	if ms := resp.Header.Get(headerDeadlineMS); ms != "" {
		if epoch, err := strconv.ParseInt(ms, 10, 64); err == nil {
			inv.deadline = time.UnixMilli(epoch)
		}
	}
	return inv, nil
}

func postInitError(ctx context.Context, client *http.Client, endpoint string, initErr error) {
	body, _ := json.Marshal(errorPayload{
		ErrorMessage: initErr.Error(),
		ErrorType:    fmt.Sprintf("%T", initErr),
	})
	post(ctx, client, endpoint+"/runtime/init/error", body)
}

func post(ctx context.Context, client *http.Client, url string, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		log.WithError(err).WithField("url", url).Debug("Runtime API post failed.")
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
