package task

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Selector identifies which exporter variant a task runs.
type Selector string

const (
	SelectorBookmarks      Selector = "bookmarks"
	SelectorCallLog        Selector = "calllog"
	SelectorMessages       Selector = "messages"
	SelectorUserDictionary Selector = "userdictionary"
)

var knownSelectors = []Selector{
	SelectorBookmarks,
	SelectorCallLog,
	SelectorMessages,
	SelectorUserDictionary,
}

// ParseSelector validates s against the closed selector set.
func ParseSelector(s string) (Selector, error) {
	for _, sel := range knownSelectors {
		if string(sel) == s {
			return sel, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownVariant, "%q", s)
}

type State string

const (
	StateCreated    State = "created"
	StateRunning    State = "running"
	StateCancelling State = "cancelling"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Exporter is one concrete export routine. Export may block for the whole
// duration of its I/O and must poll its own cancellation flag; Cancel may be
// called from another goroutine at any time, any number of times.
type Exporter interface {
	Export(path string) (int, error)
	Cancel()
	ContentName() string
}

// Progress receives per-record progress from a running exporter.
type Progress interface {
	Report(done, total int)
}

// Task is a single export run. The exporter is owned by the task and never
// handed out.
type Task struct {
	ID        string
	Selector  Selector
	CreatedAt time.Time

	ctor     Constructor
	executed atomic.Bool

	mu              sync.Mutex
	state           State
	exporter        Exporter
	path            string
	outcome         *Outcome
	cancelRequested bool
	startedAt       time.Time
	completedAt     time.Time
}

func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Outcome returns the terminal outcome once the task has finished.
func (t *Task) Outcome() (Outcome, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.outcome == nil {
		return Outcome{}, false
	}
	return *t.outcome, true
}

// CancelRequested reports whether a cancel was accepted while the task ran.
func (t *Task) CancelRequested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelRequested
}

// Snapshot is a point-in-time copy of a task, safe to serialize.
type Snapshot struct {
	ID              string    `json:"id"`
	Selector        Selector  `json:"type"`
	State           State     `json:"state"`
	Path            string    `json:"path,omitempty"`
	Outcome         *Outcome  `json:"outcome,omitempty"`
	CancelRequested bool      `json:"cancelRequested"`
	CreatedAt       time.Time `json:"createdAt"`
	StartedAt       time.Time `json:"startedAt,omitempty"`
	CompletedAt     time.Time `json:"completedAt,omitempty"`
}

func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Snapshot{
		ID:              t.ID,
		Selector:        t.Selector,
		State:           t.state,
		Path:            t.path,
		CancelRequested: t.cancelRequested,
		CreatedAt:       t.CreatedAt,
		StartedAt:       t.startedAt,
		CompletedAt:     t.completedAt,
	}
	if t.outcome != nil {
		o := *t.outcome
		s.Outcome = &o
	}
	return s
}
