package events

import (
	"context"
	"slices"
	"sync"

	"github.com/embercash/payflow/logger"
)

type Event struct {
	Event      string      `json:"event"`
	Properties interface{} `json:"properties,omitempty"`
}

type EventSubscriber interface {
	ConsumeEvent(ctx context.Context, event *Event, globalProperties map[string]interface{})
}

type EventPublisher interface {
	RegisterSubscriber(subscriber EventSubscriber)
	RemoveSubscriber(subscriber EventSubscriber)
	Publish(event *Event)
	PublishSync(event *Event)
	SetGlobalProperty(key string, value interface{})
}

type eventPublisher struct {
	listeners        []EventSubscriber
	subscriberMtx    sync.Mutex
	globalProperties map[string]interface{}
}

func NewEventPublisher() *eventPublisher {
	return &eventPublisher{
		listeners:        []EventSubscriber{},
		globalProperties: map[string]interface{}{},
	}
}

func (ep *eventPublisher) RegisterSubscriber(listener EventSubscriber) {
	ep.subscriberMtx.Lock()
	defer ep.subscriberMtx.Unlock()
	ep.listeners = append(ep.listeners, listener)
}

func (ep *eventPublisher) RemoveSubscriber(listenerToRemove EventSubscriber) {
	ep.subscriberMtx.Lock()
	defer ep.subscriberMtx.Unlock()

	for i, listener := range ep.listeners {
		if listener == listenerToRemove {
			ep.listeners = slices.Delete(ep.listeners, i, i+1)
			return
		}
	}
}

func (ep *eventPublisher) SetGlobalProperty(key string, value interface{}) {
	ep.subscriberMtx.Lock()
	defer ep.subscriberMtx.Unlock()
	ep.globalProperties[key] = value
}

// Publish delivers the event to every subscriber on its own goroutine.
// Delivery order across distinct events for the same subscriber follows
// the order the underlying operations complete, not publish order.
func (ep *eventPublisher) Publish(event *Event) {
	ep.subscriberMtx.Lock()
	listeners := slices.Clone(ep.listeners)
	globalProperties := ep.globalProperties
	ep.subscriberMtx.Unlock()

	logger.Logger.Debug().
		Str("event", event.Event).
		Msg("Publishing event")

	for _, listener := range listeners {
		go listener.ConsumeEvent(context.Background(), event, globalProperties)
	}
}

// PublishSync delivers the event to every subscriber before returning.
func (ep *eventPublisher) PublishSync(event *Event) {
	ep.subscriberMtx.Lock()
	listeners := slices.Clone(ep.listeners)
	globalProperties := ep.globalProperties
	ep.subscriberMtx.Unlock()

	logger.Logger.Debug().
		Str("event", event.Event).
		Msg("Publishing event (sync)")

	for _, listener := range listeners {
		listener.ConsumeEvent(context.Background(), event, globalProperties)
	}
}
