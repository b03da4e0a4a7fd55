package notify

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendStatus(t *testing.T) {
	var gotPath string
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "runtime-1")
	require.NoError(t, c.SendStatus(StatusReady, []byte(`{"ok":true}`)))

	assert.Equal(t, "/status/runtime-1/ready", gotPath)
	assert.JSONEq(t, `{"ok":true}`, string(gotBody))
}

func TestSendStatusNon2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	err := NewClient(ts.URL, "runtime-1").SendStatus(StatusError, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
