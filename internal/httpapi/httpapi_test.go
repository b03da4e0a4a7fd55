package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambtest/lambda-test-server/internal/bootstrap"
	"github.com/lambtest/lambda-test-server/internal/emulator"
)

// newListener serves the emulator on a real listener with an out-of-process
// style bootstrap polling it over HTTP, the way a container runtime would.
func newListener(t *testing.T, handler bootstrap.Handler) (*emulator.Server, *httptest.Server) {
	t.Helper()

	srv := emulator.New(emulator.Config{FunctionName: "http-echo"})
	ts := httptest.NewServer(NewRouter(srv))

	runCtx, stopRuntime := context.WithCancel(context.Background())
	runtimeDone := make(chan struct{})
	go func() {
		defer close(runtimeDone)
		_ = bootstrap.Run(runCtx, ts.Client(), bootstrap.Config{
			Endpoint: ts.URL + "/2018-06-01",
			Handler:  handler,
		})
	}()

	t.Cleanup(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, srv.Close(closeCtx))
		stopRuntime()
		<-runtimeDone
		ts.Close()
	})
	return srv, ts
}

func echo(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		Name string `json:"Name"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"Message": fmt.Sprintf("Hello %s!", req.Name)})
}

func TestInvokeOverHTTP(t *testing.T) {
	srv, ts := newListener(t, echo)

	init, err := srv.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, emulator.InitCompleted, init.Status)

	resp, err := http.Post(ts.URL+"/invoke", "application/json", bytes.NewBufferString(`{"Name":"World"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Amz-Function-Error"))
	assert.JSONEq(t, `{"Message":"Hello World!"}`, string(body))
}

func TestInvokeOverHTTPFunctionError(t *testing.T) {
	srv, ts := newListener(t, func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("handler exploded")
	})

	_, err := srv.Start(context.Background())
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/invoke", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Amz-Function-Error"))

	var errResp emulator.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Contains(t, errResp.ErrorMessage, "handler exploded")
}

func TestLogsEndpoint(t *testing.T) {
	srv, ts := newListener(t, echo)

	_, err := srv.Start(context.Background())
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/invoke", "application/json", bytes.NewBufferString(`{"Name":"Logs"}`))
	require.NoError(t, err)
	resp.Body.Close()

	logsResp, err := http.Get(ts.URL + "/logs")
	require.NoError(t, err)
	defer logsResp.Body.Close()
	require.Equal(t, http.StatusOK, logsResp.StatusCode)

	var snap struct {
		Logs string `json:"logs"`
	}
	require.NoError(t, json.NewDecoder(logsResp.Body).Decode(&snap))
	assert.Contains(t, snap.Logs, "START RequestId:")
	assert.Contains(t, snap.Logs, "REPORT RequestId:")

	// Draining resets the buffer, so a second read comes back empty.
	logsResp2, err := http.Get(ts.URL + "/logs")
	require.NoError(t, err)
	defer logsResp2.Body.Close()
	require.NoError(t, json.NewDecoder(logsResp2.Body).Decode(&snap))
	assert.Empty(t, snap.Logs)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.NewServeMux())
	}()

	// Give ListenAndServe a moment to bind before shutting it down.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop after cancellation")
	}
}
