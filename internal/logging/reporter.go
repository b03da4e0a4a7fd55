package logging

import (
	"fmt"
	"io"
)

// InvokeReport is the per-invocation REPORT line mirroring the shape Lambda
// prints to CloudWatch. Memory figures are taken from configuration, not
// measured.
type InvokeReport struct {
	RequestID        string
	DurationMs       float64
	BilledDurationMs float64
	MemorySizeMB     int
	MaxMemoryUsedMB  int
}

func (r *InvokeReport) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"REPORT RequestId: %s\t"+
			"Duration: %.2f ms\t"+
			"Billed Duration: %.f ms\t"+
			"Memory Size: %d MB\t"+
			"Max Memory Used: %d MB\t\n",
		r.RequestID, r.DurationMs, r.BilledDurationMs, r.MemorySizeMB, r.MaxMemoryUsedMB)
	return err
}

// PrintStart writes the START line that precedes an invocation's output.
func PrintStart(w io.Writer, requestID, version string) error {
	_, err := fmt.Fprintf(w, "START RequestId: %s Version: %s\n", requestID, version)
	return err
}
