// Package httpapi exposes the in-memory emulator over a real HTTP listener,
// so out-of-process bootstraps can poll it and a driver can trigger
// invocations. The four runtime routes forward into the same transaction
// channel the in-memory transport uses.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lambtest/lambda-test-server/internal/emulator"
)

// NewRouter mounts the runtime API surface plus the driver endpoints.
func NewRouter(s *emulator.Server) http.Handler {
	r := chi.NewRouter()

	r.Get("/{version}/runtime/invocation/next", forward(s))
	r.Post("/{version}/runtime/invocation/{requestId}/response", forward(s))
	r.Post("/{version}/runtime/invocation/{requestId}/error", forward(s))
	r.Post("/{version}/runtime/init/error", forward(s))

	r.Post("/invoke", InvokeHandler(s))
	r.Get("/logs", LogsHandler(s))

	return r
}

// forward relays a real HTTP exchange into the emulator's transaction
// channel and copies the resolved response back out.
func forward(s *emulator.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.RoundTrip(r)
		if err != nil {
			// Polls interrupted by shutdown or by the client going away.
			writeJSON(w, http.StatusServiceUnavailable, emulator.ErrorResponse{
				ErrorMessage: err.Error(),
				ErrorType:    "Runtime.Unavailable",
			})
			return
		}
		defer resp.Body.Close()
		for name, values := range resp.Header {
			for _, v := range values {
				w.Header().Add(name, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			log.WithError(err).Debug("Failed to relay runtime response body.")
		}
	}
}

// InvokeHandler triggers one invocation with the request body as event
// payload and replies with the function result. Failed invocations return
// the error payload with the function-error header set, matching the shape
// of the real invoke API.
func InvokeHandler(s *emulator.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, emulator.ErrorResponse{
				ErrorMessage: err.Error(),
				ErrorType:    "InvalidRequestContent",
			})
			return
		}

		inv, err := s.Enqueue(r.Context(), emulator.Request{
			Payload: payload,
			TraceID: r.Header.Get(emulator.HeaderTraceID),
		})
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, emulator.ErrorResponse{
				ErrorMessage: err.Error(),
				ErrorType:    "Runtime.Unavailable",
			})
			return
		}

		res, err := inv.Wait(r.Context())
		if err != nil {
			writeJSON(w, http.StatusGatewayTimeout, emulator.ErrorResponse{
				ErrorMessage: err.Error(),
				ErrorType:    "Sandbox.Timedout",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if !res.WasSuccess {
			w.Header().Set("X-Amz-Function-Error", res.Error.ErrorType)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.Payload)
	}
}

// LogsHandler drains and returns the collected function log stream.
func LogsHandler(s *emulator.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.LogCollector().Drain())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response body.")
	}
}

// Serve runs the listener until ctx is cancelled, then drains it.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return g.Wait()
}
