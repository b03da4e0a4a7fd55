package emulator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultFunctionName    = "test-function"
	DefaultFunctionVersion = "$LATEST"
	DefaultFunctionTimeout = 30 * time.Second
	DefaultMemorySizeMB    = 128
)

// AppFunc is the entry point of the captured application under test. It
// receives the intercepted HTTP client and is expected to poll the runtime
// API with it until ctx is cancelled. Returning before the first poll means
// the host exited; returning an error before the first poll is treated as an
// initialization failure.
type AppFunc func(ctx context.Context, client *http.Client) error

// Config carries the per-server settings. The zero value is usable; New
// fills in defaults.
type Config struct {
	FunctionName    string
	FunctionVersion string
	// FunctionArn is the value of the invoked-function-arn header. Derived
	// from FunctionName when empty.
	FunctionArn string
	// FunctionTimeout is the hard per-invocation deadline, counted from the
	// moment the invocation is enqueued.
	FunctionTimeout time.Duration
	MemorySizeMB    int

	// AdditionalHeaders are appended to every next-invocation response.
	// They are applied last and silently overwrite the reserved runtime
	// headers on name collision.
	AdditionalHeaders http.Header

	// Marshal and Unmarshal fix the JSON convention for the whole server
	// instance. They default to encoding/json.
	Marshal   func(v any) ([]byte, error)
	Unmarshal func(data []byte, v any) error

	// App is the captured application. Optional: when nil the server only
	// serves external clients obtained via Client or RoundTrip.
	App AppFunc

	// LogSink receives the START/REPORT lines in addition to the server's
	// own log collector.
	LogSink io.Writer
}

func (c *Config) withDefaults() {
	if c.FunctionName == "" {
		c.FunctionName = DefaultFunctionName
	}
	if c.FunctionVersion == "" {
		c.FunctionVersion = DefaultFunctionVersion
	}
	if c.FunctionArn == "" {
		c.FunctionArn = fmt.Sprintf("arn:aws:lambda:us-east-1:012345678912:function:%s", c.FunctionName)
	}
	if c.FunctionTimeout <= 0 {
		c.FunctionTimeout = DefaultFunctionTimeout
	}
	if c.MemorySizeMB <= 0 {
		c.MemorySizeMB = DefaultMemorySizeMB
	}
	if c.Marshal == nil {
		c.Marshal = json.Marshal
	}
	if c.Unmarshal == nil {
		c.Unmarshal = json.Unmarshal
	}
}
