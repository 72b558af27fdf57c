package dump1090

import (
	"errors"
	"fmt"
)

// ErrRetriesExhausted is returned by Fetch when every attempt failed.
// Callers should treat it as "no fresh data", not as a fatal condition.
var ErrRetriesExhausted = errors.New("all fetch attempts failed")

// Outcome is the classification of a single fetch attempt
type Outcome int

const (
	OutcomeOK        Outcome = iota
	OutcomeTransient         // network error, timeout, non-200 status
	OutcomeInvalid           // body is not JSON or not shaped like {"aircraft": [...]}
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTransient:
		return "transient"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// TransientFetchError describes why one attempt failed. It is logged and retried,
// never surfaced on its own.
type TransientFetchError struct {
	Attempt    int
	Outcome    Outcome
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransientFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("attempt %d (%s, HTTP %d): %v", e.Attempt, e.Outcome, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("attempt %d (%s): %v", e.Attempt, e.Outcome, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}
