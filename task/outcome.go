package task

import "github.com/pkg/errors"

var (
	ErrUnknownVariant   = errors.New("unknown export variant")
	ErrInvalidState     = errors.New("invalid task state")
	ErrTaskNotFound     = errors.New("task not found")
	ErrDuplicateVariant = errors.New("export variant already registered")
	ErrChannelBusy      = errors.New("progress channel already has a consumer")
)

type OutcomeKind string

const (
	OutcomeExported  OutcomeKind = "exported"
	OutcomeNoData    OutcomeKind = "no_data"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// Outcome is the terminal result of a task. Count is positive for Exported;
// Error is non-empty for Failed.
type Outcome struct {
	Kind  OutcomeKind `json:"kind"`
	Count int         `json:"count,omitempty"`
	Path  string      `json:"path,omitempty"`
	Error string      `json:"error,omitempty"`
	Err   error       `json:"-"`
}

func Exported(count int, path string) Outcome {
	return Outcome{Kind: OutcomeExported, Count: count, Path: path}
}

func NoData() Outcome {
	return Outcome{Kind: OutcomeNoData}
}

func Failed(err error) Outcome {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = "export failed"
	}
	return Outcome{Kind: OutcomeFailed, Error: msg, Err: err}
}

// Cancelled is only produced when distinct cancellation is enabled.
func Cancelled(count int, path string) Outcome {
	return Outcome{Kind: OutcomeCancelled, Count: count, Path: path}
}

// outcomeFor maps the exporter's return values onto an Outcome.
func outcomeFor(count int, path string, err error) Outcome {
	switch {
	case err != nil:
		return Failed(err)
	case count > 0:
		return Exported(count, path)
	default:
		return NoData()
	}
}
