package service

import (
	"sync"

	"github.com/mojika/mojika/internal/domain"
)

type EventType string

const (
	EventTypeStatus   EventType = "status"
	EventTypeProgress EventType = "progress"
)

// Event is a snapshot of a session's lifecycle pushed to subscribers.
type Event struct {
	Type     EventType
	State    State
	Progress *domain.ProgressInfo
	Err      *domain.ErrorInfo
	Job      *domain.TranscriptionJob
}

type EventPublisher interface {
	Publish(sessionID string, event Event)
}

type EventBus struct {
	subscribers map[string][]chan Event
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
	}
}

func (eb *EventBus) Subscribe(sessionID string) chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, 16)
	eb.subscribers[sessionID] = append(eb.subscribers[sessionID], ch)
	return ch
}

func (eb *EventBus) Unsubscribe(sessionID string, ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[sessionID]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[sessionID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(eb.subscribers[sessionID]) == 0 {
		delete(eb.subscribers, sessionID)
	}
}

func (eb *EventBus) Publish(sessionID string, event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[sessionID] {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is slow
		}
	}
}
