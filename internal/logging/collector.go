package logging

import (
	"strings"
	"sync"
)

// Snapshot is the drained log buffer in the shape returned over HTTP.
type Snapshot struct {
	Logs string `json:"logs"`
}

// Collector accumulates the emulated function log stream (START/REPORT
// lines and anything the embedding test writes). Safe for concurrent
// writers.
type Collector struct {
	mu   sync.Mutex
	logs strings.Builder
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logs.Write(p)
}

// String returns the buffered logs without draining them.
func (c *Collector) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logs.String()
}

// Drain returns everything collected so far and resets the buffer.
func (c *Collector) Drain() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{Logs: c.logs.String()}
	c.logs.Reset()
	return snap
}
