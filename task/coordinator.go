package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"slightbackup/logging"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// PathBuilder produces the destination file of an export.
type PathBuilder interface {
	Build(contentName string, at time.Time) (string, error)
}

// Coordinator runs export tasks in the background and relays their lifecycle
// to a single Observer. It does not multiplex: callers start one task at a
// time.
type Coordinator struct {
	registry *Registry
	paths    PathBuilder
	observer Observer
	events   *Channel
	tasks    sync.Map
	wg       sync.WaitGroup

	now                  func() time.Time
	log                  *logrus.Entry
	distinctCancellation bool
}

type Option func(*Coordinator)

// WithDistinctCancellation makes a task whose cancel was accepted end in
// StateCancelled with an OutcomeCancelled, instead of the exporter's outcome.
func WithDistinctCancellation() Option {
	return func(c *Coordinator) { c.distinctCancellation = true }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithLogger(log *logrus.Entry) Option {
	return func(c *Coordinator) { c.log = log }
}

func NewCoordinator(registry *Registry, paths PathBuilder, observer Observer, opts ...Option) *Coordinator {
	if observer == nil {
		observer = BaseObserver{}
	}
	c := &Coordinator{
		registry: registry,
		paths:    paths,
		observer: observer,
		events:   NewChannel(),
		now:      time.Now,
		log:      logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prepare creates a task for sel without running it.
func (c *Coordinator) Prepare(sel Selector) (*Task, error) {
	ctor, err := c.registry.Lookup(sel)
	if err != nil {
		return nil, err
	}
	now := c.now()
	return &Task{
		ID:        fmt.Sprintf("%s_%d", shortuuid.New(), now.Unix()),
		Selector:  sel,
		CreatedAt: now,
		ctor:      ctor,
		state:     StateCreated,
	}, nil
}

// Execute notifies the observer that t is about to run, then runs it in the
// background. It never waits for the export.
func (c *Coordinator) Execute(t *Task) error {
	if t == nil || t.ctor == nil {
		return errors.Wrap(ErrInvalidState, "task was not prepared by a coordinator")
	}
	if !t.executed.CompareAndSwap(false, true) {
		return errors.Wrapf(ErrInvalidState, "task %s already %s", t.ID, t.State())
	}

	c.observer.OnTaskStarting(t.ID, t.Selector)

	t.mu.Lock()
	t.state = StateRunning
	t.startedAt = c.now()
	c.tasks.Store(t.ID, t)
	c.events.Publish(Event{TaskID: t.ID, Kind: EventStarted, Selector: t.Selector})
	t.mu.Unlock()

	c.log.WithFields(logging.TaskFields(t.ID, string(t.Selector))).Info("Export task started.")

	c.wg.Add(1)
	go c.process(t)
	return nil
}

// Start prepares and executes a task for sel.
func (c *Coordinator) Start(sel Selector) (*Task, error) {
	t, err := c.Prepare(sel)
	if err != nil {
		return nil, err
	}
	if err := c.Execute(t); err != nil {
		return nil, err
	}
	return t, nil
}

// process handles the execution of a single task.
func (c *Coordinator) process(t *Task) {
	defer c.wg.Done()
	log := c.log.WithFields(logging.TaskFields(t.ID, string(t.Selector)))

	outcome := c.export(t)

	t.mu.Lock()
	if t.cancelRequested && c.distinctCancellation {
		t.state = StateCancelled
		if outcome.Kind != OutcomeFailed {
			outcome = Cancelled(outcome.Count, outcome.Path)
		}
	} else {
		t.state = StateCompleted
	}
	t.outcome = &outcome
	t.completedAt = c.now()
	delivered := c.events.Publish(Event{
		TaskID:   t.ID,
		Kind:     EventFinished,
		Selector: t.Selector,
		Outcome:  outcome,
	})
	t.mu.Unlock()

	if !delivered {
		c.tasks.Delete(t.ID)
	}

	entry := log.WithFields(logrus.Fields{"outcome": outcome.Kind, "count": outcome.Count})
	if outcome.Kind == OutcomeFailed {
		entry.WithField("error", outcome.Error).Warn("Export task failed.")
	} else {
		entry.Info("Export task finished.")
	}
}

func (c *Coordinator) export(t *Task) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Failed(errors.Errorf("export panicked: %v", r))
		}
	}()

	exp := t.ctor(&taskProgress{c: c, t: t})
	if exp == nil {
		return Failed(errors.New("exporter constructor returned nil"))
	}

	t.mu.Lock()
	t.exporter = exp
	pending := t.state == StateCancelling
	t.mu.Unlock()
	// A cancel accepted before the exporter existed is forwarded now.
	if pending {
		exp.Cancel()
	}

	path, err := c.paths.Build(exp.ContentName(), c.now())
	if err != nil {
		return Failed(errors.Wrap(err, "build destination path"))
	}
	t.mu.Lock()
	t.path = path
	t.mu.Unlock()

	count, err := exp.Export(path)
	return outcomeFor(count, path, err)
}

// Cancel requests cooperative cancellation of a live task.
func (c *Coordinator) Cancel(id string) error {
	t, ok := c.Get(id)
	if !ok {
		return errors.Wrapf(ErrTaskNotFound, "%s", id)
	}
	c.CancelTask(t)
	return nil
}

// CancelTask is a no-op unless t is running. It does not wait for the
// exporter to stop and never holds the task lock while calling into it.
func (c *Coordinator) CancelTask(t *Task) {
	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return
	}
	t.state = StateCancelling
	t.cancelRequested = true
	exp := t.exporter
	c.events.Publish(Event{TaskID: t.ID, Kind: EventCancelRequested, Selector: t.Selector})
	t.mu.Unlock()

	// Called outside t.mu: exporters may Report under their own locks.
	if exp != nil {
		exp.Cancel()
	}

	c.log.WithFields(logging.TaskFields(t.ID, string(t.Selector))).Info("Cancellation signal sent to running task.")
}

// Run delivers task events to the observer on the calling goroutine until
// ctx is done or Close is called. A task is forgotten once its finished
// event has been delivered.
func (c *Coordinator) Run(ctx context.Context) error {
	err := c.events.Drain(ctx, func(ev Event) {
		dispatch(c.observer, ev)
		if ev.Kind == EventFinished {
			c.tasks.Delete(ev.TaskID)
		}
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Close marks the observer as gone. Events produced afterwards are dropped.
func (c *Coordinator) Close() {
	c.events.Close()
	c.tasks.Range(func(key, value interface{}) bool {
		if value.(*Task).State().Terminal() {
			c.tasks.Delete(key)
		}
		return true
	})
}

// Wait blocks until every background export has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Pending reports how many events are waiting for the observer.
func (c *Coordinator) Pending() int {
	return c.events.Len()
}

func (c *Coordinator) Get(id string) (*Task, bool) {
	if val, ok := c.tasks.Load(id); ok {
		return val.(*Task), true
	}
	return nil, false
}

func (c *Coordinator) List() []*Task {
	var tasks []*Task
	c.tasks.Range(func(key, value interface{}) bool {
		tasks = append(tasks, value.(*Task))
		return true
	})
	return tasks
}

func (c *Coordinator) Selectors() []Selector {
	return c.registry.Selectors()
}

// taskProgress publishes exporter progress while its task is live.
type taskProgress struct {
	c *Coordinator
	t *Task
}

func (p *taskProgress) Report(done, total int) {
	p.t.mu.Lock()
	defer p.t.mu.Unlock()
	if p.t.state != StateRunning && p.t.state != StateCancelling {
		return
	}
	p.c.events.Publish(Event{
		TaskID:   p.t.ID,
		Kind:     EventProgress,
		Selector: p.t.Selector,
		Done:     done,
		Total:    total,
	})
}
