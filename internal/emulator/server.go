// Package emulator implements an in-memory Lambda Runtime API server for
// tests. It intercepts the HTTP calls a bootstrap process makes to poll for
// work and report results, and turns them into a FIFO invocation queue with
// deadlines, cancellation and structured error propagation.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/lambtest/lambda-test-server/internal/logging"
	"github.com/lambtest/lambda-test-server/internal/syncx"
)

// Server emulates the Lambda Runtime API for one captured application. All
// transactions are processed by a single background loop, which is what
// keeps the state transitions race-free without broader locking.
type Server struct {
	cfg Config
	log *log.Entry

	mu      sync.Mutex
	stateV  atomic.Int32
	started bool
	dispose atomic.Bool

	shutdownCtx context.Context
	shutdown    context.CancelFunc

	txCh    chan *transaction
	ids     *idQueue
	pending sync.Map
	seq     atomic.Uint64

	initDone *syncx.Completion[initOutcome]
	loopDone *syncx.Completion[error]
	appDone  *syncx.Completion[error]

	collector *logging.Collector
	sink      io.Writer
}

func New(cfg Config) *Server {
	cfg.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg: cfg,
		log: log.WithField("component", "lambda-test-server"),

		shutdownCtx: ctx,
		shutdown:    cancel,

		txCh: make(chan *transaction, 16),
		ids:  newIDQueue(),

		initDone: syncx.NewCompletion[initOutcome](),
		loopDone: syncx.NewCompletion[error](),
		appDone:  syncx.NewCompletion[error](),

		collector: logging.NewCollector(),
	}
	s.sink = s.collector
	if cfg.LogSink != nil {
		s.sink = io.MultiWriter(s.collector, cfg.LogSink)
	}
	return s
}

// State is advisory outside the guarded transitions in Start/Stop/Close.
func (s *Server) State() State {
	return State(s.stateV.Load())
}

func (s *Server) setState(next State) {
	prev := State(s.stateV.Swap(int32(next)))
	if prev != next {
		s.log.WithField("from", prev.String()).WithField("to", next.String()).Debug("State transition.")
	}
}

// LogCollector exposes the collected START/REPORT stream.
func (s *Server) LogCollector() *logging.Collector {
	return s.collector
}

// Start launches the processing loop and the captured application, then
// waits for initialization to resolve. It may be called at most once; the
// outcome of an application-reported init failure is returned as data in
// the InitResult, while background faults are returned as errors.
func (s *Server) Start(ctx context.Context) (*InitResult, error) {
	s.mu.Lock()
	if s.dispose.Load() {
		s.mu.Unlock()
		return nil, ErrDisposed
	}
	if s.started {
		s.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	s.started = true
	s.setState(StateStarting)

	go func() {
		s.loopDone.Resolve(s.processLoop())
	}()
	if s.cfg.App != nil {
		go func() {
			s.appDone.Resolve(s.runApp())
		}()
	}
	s.mu.Unlock()

	return s.awaitStarted(ctx)
}

// awaitStarted races the init signal against the captured application's
// exit and the processing loop faulting, whichever resolves first.
func (s *Server) awaitStarted(ctx context.Context) (*InitResult, error) {
	var appExited <-chan struct{}
	if s.cfg.App != nil {
		appExited = s.appDone.Done()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()

	case <-s.initDone.Done():
		return s.finishStart()

	case <-appExited:
		// The entry point may have posted an init error right before
		// exiting; an already-resolved init signal takes precedence.
		if _, resolved := s.initDone.TryValue(); !resolved {
			appErr, _ := s.appDone.TryValue()
			if appErr != nil {
				s.initDone.Resolve(initOutcome{
					status: InitError,
					err:    errorResponseFromErr(appErr),
				})
			} else {
				s.initDone.Resolve(initOutcome{status: InitHostExited})
			}
		}
		return s.finishStart()

	case <-s.loopDone.Done():
		s.setState(StateStopped)
		loopErr, _ := s.loopDone.TryValue()
		err := errors.Join(loopErr, syncx.DrainErrors(s.appDone))
		if err == nil {
			err = fmt.Errorf("emulator: processing loop exited before initialization")
		}
		return nil, err
	}
}

func (s *Server) finishStart() (*InitResult, error) {
	if bg := syncx.DrainErrors(s.loopDone); bg != nil {
		s.setState(StateStopped)
		return nil, bg
	}
	out, _ := s.initDone.TryValue()
	if out.status != InitCompleted && out.status != InitAlreadyCompleted {
		s.setState(StateStopped)
	}
	return &InitResult{Status: out.status, Error: out.err}, nil
}

func (s *Server) runApp() (err error) {
	defer func() {
		// The application is arbitrary test code; a panic must surface as
		// an error instead of killing the test process.
		if r := recover(); r != nil {
			err = fmt.Errorf("captured application panicked: %v", r)
		}
	}()
	return s.cfg.App(s.shutdownCtx, s.Client())
}

// Stop signals the captured application to stop and waits for both it and
// the processing loop to finish, joining any errors from either. It is only
// legal while the server is running.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.dispose.Load() {
		s.mu.Unlock()
		return ErrDisposed
	}
	if st := s.State(); st != StateRunning {
		s.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrNotRunning, st)
	}
	s.setState(StateStopping)
	s.mu.Unlock()

	s.shutdown()
	err := syncx.AwaitAll(ctx, s.backgroundCompletions()...)
	s.setState(StateStopped)
	return err
}

// Close releases the server. It is idempotent: the first call performs a
// best-effort stop (suppressing any failure from it), cancels everything
// still waiting and marks the server disposed; later calls are no-ops.
func (s *Server) Close(ctx context.Context) error {
	if !s.dispose.CompareAndSwap(false, true) {
		return nil
	}
	if s.State() == StateRunning {
		s.mu.Lock()
		s.setState(StateStopping)
		s.mu.Unlock()
		s.shutdown()
		if err := syncx.AwaitAll(ctx, s.backgroundCompletions()...); err != nil {
			s.log.WithError(err).Debug("Ignoring stop failure during close.")
		}
	}
	s.shutdown()
	s.initDone.Resolve(initOutcome{status: InitAlreadyCompleted})
	s.setState(StateDisposed)
	return nil
}

func (s *Server) backgroundCompletions() []*syncx.Completion[error] {
	completions := []*syncx.Completion[error]{s.loopDone}
	if s.cfg.App != nil {
		completions = append(completions, s.appDone)
	}
	return completions
}

func errorResponseFromErr(err error) *ErrorResponse {
	return &ErrorResponse{
		ErrorMessage: err.Error(),
		ErrorType:    fmt.Sprintf("%T", err),
	}
}

// newTraceID fabricates an X-Ray trace header for invocations that did not
// supply one.
func newTraceID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("Root=1-%08x-%s;Parent=%s;Sampled=0", time.Now().Unix(), hex[:24], hex[16:])
}

var _ http.RoundTripper = (*Server)(nil)
