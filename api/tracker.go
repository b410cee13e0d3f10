package api

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"slightbackup/backup"
	"slightbackup/logging"
	"slightbackup/notify"
	"slightbackup/task"

	"github.com/sirupsen/logrus"
)

// Record is the API view of one export task.
type Record struct {
	ID              string          `json:"id"`
	Type            task.Selector   `json:"type"`
	State           task.State      `json:"state"`
	Done            int             `json:"done"`
	Total           int             `json:"total"`
	CancelRequested bool            `json:"cancelRequested"`
	Outcome         *task.Outcome   `json:"outcome,omitempty"`
	Message         *notify.Message `json:"message,omitempty"`
	DownloadURL     string          `json:"downloadUrl,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	FinishedAt      time.Time       `json:"finishedAt,omitempty"`
}

// Tracker observes the coordinator, keeps a record per task and lets only
// one export run at a time.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]*Record
	busy    atomic.Bool

	store    *backup.Store
	notifier notify.Notifier
	log      *logrus.Entry
}

var _ task.Observer = (*Tracker)(nil)

func NewTracker(store *backup.Store, notifier notify.Notifier) *Tracker {
	return &Tracker{
		records:  make(map[string]*Record),
		store:    store,
		notifier: notifier,
		log:      logging.Default(),
	}
}

// Acquire reserves the single export slot.
func (tr *Tracker) Acquire() bool {
	return tr.busy.CompareAndSwap(false, true)
}

func (tr *Tracker) Release() {
	tr.busy.Store(false)
}

func (tr *Tracker) Busy() bool {
	return tr.busy.Load()
}

func (tr *Tracker) Get(id string) (Record, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	rec, ok := tr.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (tr *Tracker) List() []Record {
	tr.mu.RLock()
	records := make([]Record, 0, len(tr.records))
	for _, rec := range tr.records {
		records = append(records, *rec)
	}
	tr.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records
}

func (tr *Tracker) update(id string, fn func(*Record)) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if rec, ok := tr.records[id]; ok {
		fn(rec)
	}
}

func (tr *Tracker) OnTaskStarting(id string, sel task.Selector) {
	tr.mu.Lock()
	tr.records[id] = &Record{
		ID:        id,
		Type:      sel,
		State:     task.StateCreated,
		CreatedAt: time.Now(),
	}
	tr.mu.Unlock()
}

func (tr *Tracker) OnTaskStarted(id string, sel task.Selector) {
	msg := notify.Exporting(sel)
	tr.update(id, func(rec *Record) {
		rec.State = task.StateRunning
		rec.Message = &msg
	})
}

func (tr *Tracker) OnTaskProgress(id string, done, total int) {
	tr.update(id, func(rec *Record) {
		rec.Done = done
		rec.Total = total
	})
}

func (tr *Tracker) OnTaskCancelled(id string) {
	tr.update(id, func(rec *Record) {
		rec.State = task.StateCancelling
		rec.CancelRequested = true
	})
}

func (tr *Tracker) OnTaskFinished(id string, outcome task.Outcome) {
	defer tr.Release()

	var sel task.Selector
	tr.update(id, func(rec *Record) {
		sel = rec.Type
		rec.State = task.StateCompleted
		if outcome.Kind == task.OutcomeCancelled {
			rec.State = task.StateCancelled
		}
		o := outcome
		rec.Outcome = &o
		rec.FinishedAt = time.Now()
	})

	if outcome.Count > 0 && outcome.Path != "" && tr.store != nil {
		if err := tr.store.Add(outcome.Path); err != nil {
			tr.log.WithError(err).WithField("path", outcome.Path).Warn("Could not index backup file.")
		}
	}

	msg := notify.ForOutcome(sel, outcome)
	tr.update(id, func(rec *Record) { rec.Message = &msg })
	if tr.notifier != nil {
		if err := tr.notifier.Notify(msg); err != nil {
			tr.log.WithError(err).WithFields(logging.TaskFields(id, string(sel))).Warn("Notification failed.")
		}
	}
}

// CleanupLoop periodically forgets finished records older than lifetime.
// A non-positive lifetime keeps records forever.
func (tr *Tracker) CleanupLoop(ctx context.Context, lifetime time.Duration) {
	if lifetime <= 0 {
		return
	}
	ticker := time.NewTicker(lifetime / 4) // Check 4 times per lifetime
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			tr.log.Info("Record cleanup loop shutting down.")
			return
		case now := <-ticker.C:
			tr.expire(now, lifetime)
		}
	}
}

func (tr *Tracker) expire(now time.Time, lifetime time.Duration) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	removed := 0
	for id, rec := range tr.records {
		if rec.Outcome == nil || now.Sub(rec.FinishedAt) <= lifetime {
			continue
		}
		delete(tr.records, id)
		removed++
	}
	if removed > 0 {
		tr.log.WithField("count", removed).Debug("Expired finished export records.")
	}
	return removed
}
