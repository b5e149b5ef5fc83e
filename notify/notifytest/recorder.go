// Package notifytest provides a Dispatcher that records messages for assertions.
package notifytest

import (
	"context"
	"sync"

	"github.com/geijin5/apsar-emergency-api/notify"
)

// Recorder is a notify.Dispatcher that keeps every dispatched message
type Recorder struct {
	mu       sync.Mutex
	messages []notify.Message
}

// Dispatch records msg
func (r *Recorder) Dispatch(_ context.Context, msg notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Messages returns a copy of the recorded messages
func (r *Recorder) Messages() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.messages...)
}

// OfType returns the recorded messages with type t
func (r *Recorder) OfType(t string) []notify.Message {
	var out []notify.Message
	for _, m := range r.Messages() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// Reset forgets recorded messages
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
