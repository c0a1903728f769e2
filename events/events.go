// Package events provides a small typed publish/subscribe mechanism. Emitters are typed by their event payload;
// handlers may subscribe to one emitter or globally to every event of a payload type.
package events

import (
	"reflect"
	"sync"
)

// EventHandler is a callback receiving a published event payload.
type EventHandler[T any] func(T)

var (
	// globalHandlers maps payload type names to handlers invoked by every emitter of that type.
	globalHandlers     map[string][]any
	globalHandlersLock sync.Mutex
)

// SubscribeAny registers a handler for every published event of type T, from any emitter. Global subscriptions
// live for the life of the process; short-lived objects should subscribe to a specific emitter instead.
func SubscribeAny[T any](handler EventHandler[T]) {
	eventType := reflect.TypeOf((*T)(nil)).Elem().String()

	globalHandlersLock.Lock()
	defer globalHandlersLock.Unlock()
	if globalHandlers == nil {
		globalHandlers = make(map[string][]any)
	}
	globalHandlers[eventType] = append(globalHandlers[eventType], handler)
}

// EventEmitter publishes events of one payload type to its subscribers and to any global subscribers of that
// type. The zero value is ready to use.
type EventEmitter[T any] struct {
	subscriptions []EventHandler[T]
}

// Subscribe registers a handler invoked on every event this emitter publishes.
func (e *EventEmitter[T]) Subscribe(handler EventHandler[T]) {
	e.subscriptions = append(e.subscriptions, handler)
}

// Publish delivers the event to this emitter's subscribers, then to global subscribers of the payload type.
func (e *EventEmitter[T]) Publish(event T) {
	for _, handler := range e.subscriptions {
		handler(event)
	}

	eventType := reflect.TypeOf(event).String()
	globalHandlersLock.Lock()
	handlers := globalHandlers[eventType]
	globalHandlersLock.Unlock()
	for _, handler := range handlers {
		handler.(EventHandler[T])(event)
	}
}
