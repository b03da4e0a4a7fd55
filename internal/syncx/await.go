package syncx

import (
	"context"
	"errors"
)

// AwaitAll waits for every error completion and joins the non-nil results.
// If ctx fires first, the context error is joined with whatever has resolved
// so far, so a dual failure is never reduced to a single cause.
func AwaitAll(ctx context.Context, completions ...*Completion[error]) error {
	var errs []error
	for _, c := range completions {
		if c == nil {
			continue
		}
		select {
		case <-c.Done():
			if v, _ := c.TryValue(); v != nil {
				errs = append(errs, v)
			}
		case <-ctx.Done():
			return errors.Join(ctx.Err(), DrainErrors(completions...))
		}
	}
	return errors.Join(errs...)
}

// DrainErrors collects, without blocking, every error already resolved.
func DrainErrors(completions ...*Completion[error]) error {
	var errs []error
	for _, c := range completions {
		if c == nil {
			continue
		}
		if v, ok := c.TryValue(); ok && v != nil {
			errs = append(errs, v)
		}
	}
	return errors.Join(errs...)
}
