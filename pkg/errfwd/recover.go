// recover.go provides the Recover helper that turns panics into error events.

package errfwd

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Recover captures a panic, dispatches it as an error event and returns the
// recovered value. It does NOT re-panic.
//
// Use in defer:
//
//	func handler(ctx context.Context) {
//	    defer errfwd.Recover(ctx, dispatcher)
//	    // code that might panic
//	}
func Recover(ctx context.Context, d *Dispatcher) any {
	r := recover()
	if r == nil {
		return nil
	}

	file, line := panicSite()
	event := ErrorEvent{
		Message:  formatRecovered(r),
		Filename: file,
		Lineno:   line,
		Error:    recoveredError(r),
	}

	// Dispatch errors are dropped; the caller already has a panic to handle.
	_ = d.DispatchError(ctx, event)

	return r
}

// panicSite returns the file and line of the first frame outside the runtime,
// which is the frame that panicked.
func panicSite() (string, int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			return frame.File, frame.Line
		}
		if !more {
			return "", 0
		}
	}
}

func formatRecovered(recovered any) string {
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}

func recoveredError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return err
	}
	return errors.New(formatRecovered(recovered))
}
