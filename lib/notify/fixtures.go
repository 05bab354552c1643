package notify

import "sync"

// Recorder is a Notifier which keeps every event in memory, for testing.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify implements Notifier.
func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []Kind {
	var kinds []Kind
	for _, e := range r.Events() {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
