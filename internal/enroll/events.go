package enroll

import (
	"sync"
	"time"

	"github.com/kozaktomas/face-station/internal/constants"
)

// Broadcaster fans enrollment events out to any number of listeners,
// typically SSE connections. Slow listeners lose events rather than block
// the frame loop.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners []chan Event
}

// AddListener registers a new listener channel.
func (b *Broadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener unregisters and closes a listener channel.
func (b *Broadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Send delivers an event to all listeners, stamping the time if unset.
func (b *Broadcaster) Send(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}
