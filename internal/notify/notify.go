// Package notify implements the Notification Bus: a multi-subscriber
// broadcast of user-visible messages (error/warning/success/info) that any
// front-end can subscribe to without affecting the audio path.
package notify

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Kind classifies a Notification's severity.
type Kind int

const (
	Error Kind = iota
	Warning
	Success
	Info
)

func (k Kind) String() string {
	switch k {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Success:
		return "success"
	case Info:
		return "info"
	default:
		return "unknown"
	}
}

// Notification is a single human-readable, single-sentence message paired
// with its severity. Repeated identical messages are not coalesced by the
// bus; observers may dedupe.
type Notification struct {
	Kind    Kind
	Message string
}

// Bus fans out Notifications to any number of subscribers. Publishing
// never blocks: subscribers with a full buffer simply miss the message,
// matching the "observers may dedupe/drop, audio path never blocks" intent.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Notification
	next int
}

// NewBus creates an empty Notification Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Notification)}
}

// Subscribe registers a new listener with a small buffer and returns the
// receive channel plus an unsubscribe function.
func (b *Bus) Subscribe() (<-chan Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Notification, 16)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, unsubscribe
}

// Publish delivers n to every current subscriber. Non-blocking: a
// subscriber whose buffer is full does not receive this message.
func (b *Bus) Publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

func (b *Bus) Errorf(format string, args ...any) { b.publishf(Error, format, args...) }
func (b *Bus) Warnf(format string, args ...any)  { b.publishf(Warning, format, args...) }
func (b *Bus) Successf(format string, args ...any) { b.publishf(Success, format, args...) }
func (b *Bus) Infof(format string, args ...any)  { b.publishf(Info, format, args...) }

func (b *Bus) publishf(kind Kind, format string, args ...any) {
	b.Publish(Notification{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// LogTo subscribes to b and logs every Notification at a level derived
// from its Kind (Error→Error, Warning→Warn, Success/Info→Info) until exit
// is closed. Every front-end still receives the raw Notification itself
// through its own Subscribe; this is purely the ambient audit trail.
func LogTo(b *Bus, log *logrus.Entry, exit <-chan struct{}) {
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-exit:
			return
		case n := <-ch:
			switch n.Kind {
			case Error:
				log.Error(n.Message)
			case Warning:
				log.Warn(n.Message)
			default:
				log.Info(n.Message)
			}
		}
	}
}
