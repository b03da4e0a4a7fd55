package emulator

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/lambtest/lambda-test-server/internal/syncx"
)

// txResult is the terminal outcome of one intercepted HTTP exchange.
type txResult struct {
	resp     *http.Response
	canceled bool
}

// transaction is one HTTP exchange in flight between the captured runtime
// and the processing loop. The body is buffered up front so the loop never
// blocks on streaming reads and handlers can inspect it repeatedly; the
// completion slot is resolved exactly once.
type transaction struct {
	req  *http.Request
	body []byte
	done *syncx.Completion[txResult]
}

func newTransaction(req *http.Request) (*transaction, error) {
	tx := &transaction{req: req, done: syncx.NewCompletion[txResult]()}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
		tx.body = body
		req.Body = io.NopCloser(bytes.NewReader(body))
	}
	return tx, nil
}

func (t *transaction) respond(status int, header http.Header, body []byte) bool {
	resp := &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       t.req,
	}
	return t.done.Resolve(txResult{resp: resp})
}

func (t *transaction) cancel() bool {
	return t.done.Resolve(txResult{canceled: true})
}

// RoundTrip intercepts an HTTP request from the captured runtime and routes
// it through the transaction channel instead of the network. It implements
// http.RoundTripper so a plain *http.Client can be handed to the
// application under test.
func (s *Server) RoundTrip(req *http.Request) (*http.Response, error) {
	tx, err := newTransaction(req)
	if err != nil {
		return nil, err
	}
	reqCtx := req.Context()

	// A server that is shutting down no longer consumes transactions; the
	// send must then resolve its own slot as cancelled instead of hanging.
	select {
	case s.txCh <- tx:
	case <-reqCtx.Done():
		tx.cancel()
	case <-s.shutdownCtx.Done():
		tx.cancel()
	}

	select {
	case <-tx.done.Done():
	case <-reqCtx.Done():
		tx.cancel()
	case <-s.shutdownCtx.Done():
		tx.cancel()
	}
	<-tx.done.Done()

	res, _ := tx.done.TryValue()
	if res.canceled {
		if err := reqCtx.Err(); err != nil {
			return nil, err
		}
		return nil, context.Canceled
	}
	return res.resp, nil
}

// Client returns an HTTP client whose transport is the in-memory server.
func (s *Server) Client() *http.Client {
	return &http.Client{Transport: s}
}
