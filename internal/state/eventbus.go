package state

import (
	"sync"
)

type EventType int

const (
	PROOFS_CHAN_LENGTH = 16
)

const (
	EventUnknown EventType = iota
	ProofsPersisted
	PaymentReceived
	BackupPublished
	MintConnected
)

func (e EventType) String() string {
	return [...]string{"EventUnknown", "ProofsPersisted", "PaymentReceived", "BackupPublished", "MintConnected"}[e]
}

type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan interface{}
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]chan interface{}),
	}
}

func (eb *EventBus) Subscribe(eventType EventType, ch chan interface{}) {
	if ch == nil {
		panic("channel == nil")
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
}

// Publish never blocks. A subscriber whose channel is full is dropped,
// slow consumers must size their buffers accordingly. Unsubscribe before
// closing a channel.
func (eb *EventBus) Publish(eventType EventType, data interface{}) {
	eb.mu.RLock()
	subscribers, ok := eb.subscribers[eventType]
	if !ok {
		eb.mu.RUnlock()
		return
	}
	var stale []chan interface{}
	for _, ch := range subscribers {
		select {
		case ch <- data:
		default:
			stale = append(stale, ch)
		}
	}
	eb.mu.RUnlock()

	if len(stale) > 0 {
		eb.mu.Lock()
		kept := eb.subscribers[eventType][:0]
	next:
		for _, ch := range eb.subscribers[eventType] {
			for _, dead := range stale {
				if ch == dead {
					continue next
				}
			}
			kept = append(kept, ch)
		}
		eb.subscribers[eventType] = kept
		eb.mu.Unlock()
	}
}

func (eb *EventBus) Unsubscribe(eventType EventType, ch chan interface{}) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscribers, ok := eb.subscribers[eventType]
	if !ok {
		return
	}
	for i, subscriber := range subscribers {
		if subscriber == ch {
			eb.subscribers[eventType] = append(subscribers[:i], subscribers[i+1:]...)
			break
		}
	}
	if len(eb.subscribers[eventType]) == 0 {
		delete(eb.subscribers, eventType)
	}
}
