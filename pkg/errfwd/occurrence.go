// occurrence.go defines the error occurrence evaluated by the decision engine.

package errfwd

import (
	"time"

	"github.com/google/uuid"
)

// Occurrence is one reported runtime error.
// It is created per event, consumed synchronously by Process and then discarded.
type Occurrence struct {
	// ID uniquely identifies this occurrence (UUID).
	ID string

	// Timestamp is when the occurrence was captured.
	Timestamp time.Time

	// Message is the human-readable error message.
	Message string

	// Source is the origin location, usually a script URL or file path.
	Source string

	// Line and Column locate the error within Source. Zero means unknown.
	Line   int
	Column int

	// Err is the optional underlying error detail. It may be nil.
	Err error

	// Metadata holds transport-supplied context such as the user agent.
	Metadata map[string]string
}

// NewOccurrence builds an Occurrence from an error event, stamping a fresh ID
// and the current time.
func NewOccurrence(event ErrorEvent) Occurrence {
	return Occurrence{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Message:   event.Message,
		Source:    event.Filename,
		Line:      event.Lineno,
		Column:    event.Colno,
		Err:       event.Error,
		Metadata:  cloneMetadata(event.Metadata),
	}
}

func cloneMetadata(meta map[string]string) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
