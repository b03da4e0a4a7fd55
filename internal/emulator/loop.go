package emulator

import (
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// processLoop is the single consumer of the transaction channel. Transactions
// are handled one at a time; that is what keeps the state machine free of
// data races. A protocol violation aborts the loop and surfaces through
// Start or Stop.
func (s *Server) processLoop() error {
	s.log.Debug("Processing loop started.")
	for {
		select {
		case <-s.shutdownCtx.Done():
			s.log.Debug("Processing loop stopped.")
			return nil
		case tx := <-s.txCh:
			if err := s.dispatch(tx); err != nil {
				tx.cancel()
				s.log.WithError(err).Error("Processing loop aborting.")
				return err
			}
		}
	}
}

func (s *Server) dispatch(tx *transaction) error {
	kind, vars, ok := matchRoute(tx.req.Method, tx.req.URL.Path)
	if !ok {
		return fmt.Errorf("%w: no route for %s %s", ErrProtocol, tx.req.Method, tx.req.URL.Path)
	}
	s.log.WithField("route", kind.String()).Trace("Dispatching transaction.")

	switch kind {
	case routeNextInvocation:
		return s.handleNextInvocation(tx)
	case routePostResponse:
		return s.handleInvocationDone(tx, vars["requestId"], completionResponse)
	case routePostError:
		return s.handleInvocationDone(tx, vars["requestId"], completionError)
	case routeInitError:
		return s.handleInitError(tx)
	}
	return nil
}

// handleNextInvocation serves the runtime's poll. The first poll observed
// while still starting completes initialization.
func (s *Server) handleNextInvocation(tx *transaction) error {
	if s.State() == StateStarting {
		s.setState(StateRunning)
		if s.initDone.Resolve(initOutcome{status: InitCompleted}) {
			s.log.Debug("Runtime requested its first invocation, init complete.")
		}
	}

	id, ok := s.ids.dequeue(s.shutdownCtx.Done(), tx.done.Done())
	if !ok {
		// Shutdown while the runtime was polling is the normal exit path.
		tx.cancel()
		return nil
	}
	v, found := s.pending.Load(id)
	if !found {
		return fmt.Errorf("%w: no pending invocation for request id %s", ErrProtocol, id)
	}
	p := v.(*pendingInvocation)
	if !tx.respond(http.StatusOK, p.header, p.payload) {
		// The poll was abandoned after the id was taken; keep FIFO intact.
		s.ids.requeueFront(id)
	}
	return nil
}

// handleInvocationDone correlates a posted response or error back to its
// waiting caller. The transaction is acknowledged before the completion slot
// resolves so the runtime's HTTP exchange never waits on the test.
func (s *Server) handleInvocationDone(tx *transaction, id string, kind completionKind) error {
	v, found := s.pending.Load(id)
	if !found {
		return fmt.Errorf("%w: %s posted for unknown request id %s", ErrProtocol, kind, id)
	}
	p := v.(*pendingInvocation)

	tx.respond(http.StatusAccepted, jsonHeader(), []byte(ackBody))

	payload := append([]byte(nil), tx.body...)
	if kind == completionError {
		s.log.WithField("request-id", id).
			WithField("error-type", gjson.GetBytes(payload, "errorType").String()).
			Debug("Runtime reported a failed invocation.")
	}
	if !p.done.Resolve(invocationCompletion{kind: kind, payload: payload}) {
		s.log.WithField("request-id", id).Warn("Invocation was already completed.")
	}
	return nil
}

// handleInitError records a cold-start failure. Receiving one outside the
// starting phase means the runtime reported an init failure after already
// starting, which a correct embedding never does.
func (s *Server) handleInitError(tx *transaction) error {
	if st := s.State(); st != StateStarting {
		return fmt.Errorf("%w: init error reported while %s", ErrProtocol, st)
	}
	errResp := &ErrorResponse{}
	if err := s.cfg.Unmarshal(tx.body, errResp); err != nil {
		errResp = &ErrorResponse{
			ErrorMessage: string(tx.body),
			ErrorType:    "Runtime.InitError",
		}
	}
	tx.respond(http.StatusAccepted, jsonHeader(), []byte(ackBody))
	s.initDone.Resolve(initOutcome{status: InitError, err: errResp})
	return nil
}

func jsonHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}
