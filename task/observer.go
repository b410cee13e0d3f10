package task

// Observer reacts to task lifecycle callbacks. OnTaskStarting runs on the
// goroutine calling Execute; every other callback runs on the goroutine
// driving Coordinator.Run, in publish order.
type Observer interface {
	OnTaskStarting(id string, sel Selector)
	OnTaskStarted(id string, sel Selector)
	OnTaskProgress(id string, done, total int)
	// OnTaskCancelled fires when a cancel is accepted, not when the
	// exporter actually stops.
	OnTaskCancelled(id string)
	OnTaskFinished(id string, outcome Outcome)
}

// BaseObserver implements Observer with no-ops; embed it to override a subset.
type BaseObserver struct{}

func (BaseObserver) OnTaskStarting(string, Selector) {}
func (BaseObserver) OnTaskStarted(string, Selector) {}
func (BaseObserver) OnTaskProgress(string, int, int) {}
func (BaseObserver) OnTaskCancelled(string) {}
func (BaseObserver) OnTaskFinished(string, Outcome) {}

func dispatch(o Observer, ev Event) {
	switch ev.Kind {
	case EventStarted:
		o.OnTaskStarted(ev.TaskID, ev.Selector)
	case EventProgress:
		o.OnTaskProgress(ev.TaskID, ev.Done, ev.Total)
	case EventCancelRequested:
		o.OnTaskCancelled(ev.TaskID)
	case EventFinished:
		o.OnTaskFinished(ev.TaskID, ev.Outcome)
	}
}
