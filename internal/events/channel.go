// Package events is the in-process publish/subscribe bus that carries reading
// updates and alarm changes to display subscribers.
package events

import (
	"fmt"
	"sync"
)

// Well-known event names. Any other string is a valid event name too.
const (
	ReadingUpdated = "readingUpdated"
	AlarmChanged   = "alarmChanged"
	AlarmError     = "alarmError"
)

// Callback receives the arguments passed to Publish.
// A returned error is reported, never propagated to the publisher.
type Callback func(args ...any) error

// ErrorReporter receives subscriber failures.
type ErrorReporter interface {
	ReportError(event string, err error)
}

type subscriber struct {
	id uint64
	cb Callback
}

// Channel maps event names to ordered subscriber lists.
type Channel struct {
	mu       sync.RWMutex
	subs     map[string][]subscriber
	nextID   uint64
	reporter ErrorReporter
}

// NewChannel returns an empty channel. reporter may be nil.
func NewChannel(reporter ErrorReporter) *Channel {
	return &Channel{
		subs:     make(map[string][]subscriber),
		reporter: reporter,
	}
}

// Subscription binds one callback to one event name.
type Subscription struct {
	ch    *Channel
	event string
	id    uint64
}

// Event returns the event name the subscription listens to.
func (s *Subscription) Event() string { return s.event }

// Unsubscribe removes only this subscription's callback. Safe to call twice.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.ch == nil {
		return
	}
	s.ch.remove(s.event, s.id)
}

// Subscribe registers cb for event. Callbacks run in registration order.
func (c *Channel) Subscribe(event string, cb Callback) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.subs[event] = append(c.subs[event], subscriber{id: c.nextID, cb: cb})
	return &Subscription{ch: c, event: event, id: c.nextID}
}

// Unsubscribe removes every callback registered for event.
func (c *Channel) Unsubscribe(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, event)
}

// Subscribers returns how many callbacks are registered for event.
func (c *Channel) Subscribers(event string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs[event])
}

// Publish invokes every callback registered for event, synchronously and in
// order. The list is copied first, so callbacks may subscribe or unsubscribe
// without affecting the delivery in progress.
func (c *Channel) Publish(event string, args ...any) {
	c.mu.RLock()
	list := make([]subscriber, len(c.subs[event]))
	copy(list, c.subs[event])
	c.mu.RUnlock()

	for _, s := range list {
		if err := invoke(s.cb, args); err != nil {
			c.report(event, err)
		}
	}
}

func (c *Channel) remove(event string, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.subs[event]
	for i, s := range list {
		if s.id != id {
			continue
		}
		// build a fresh slice: publishers may still hold the old one
		next := make([]subscriber, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(c.subs, event)
		} else {
			c.subs[event] = next
		}
		return
	}
}

func (c *Channel) report(event string, err error) {
	if c.reporter != nil {
		c.reporter.ReportError(event, err)
	}
}

// invoke runs cb and converts a panic into an error.
func invoke(cb Callback, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()
	return cb(args...)
}
