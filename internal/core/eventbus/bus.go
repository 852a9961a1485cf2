package eventbus

import (
	"context"
	"sync"
)

const defaultBuffer = 64

type envelope struct {
	event   Event
	payload any
}

// EventBus dispatches typed events to subscribers on a single background
// goroutine. Publishing never blocks: events are dropped (and the OnDrop
// hook fired) when the buffer is full.
type EventBus struct {
	ch    chan envelope
	hooks hooks

	mu          sync.RWMutex
	subscribers map[Event][]func(any)

	done chan struct{}
}

// New creates an EventBus with the default buffer size.
func New() *EventBus {
	return &EventBus{
		ch:          make(chan envelope, defaultBuffer),
		subscribers: make(map[Event][]func(any)),
		done:        make(chan struct{}),
	}
}

// Start begins dispatching events until ctx is cancelled.
func (bus *EventBus) Start(ctx context.Context) {
	go func() {
		defer close(bus.done)
		for {
			select {
			case <-ctx.Done():
				return
			case env := <-bus.ch:
				bus.dispatch(env)
			}
		}
	}()
}

// Wait blocks until the dispatch loop has exited.
func (bus *EventBus) Wait() {
	<-bus.done
}

func (bus *EventBus) dispatch(env envelope) {
	bus.mu.RLock()
	subs := make([]func(any), len(bus.subscribers[env.event]))
	copy(subs, bus.subscribers[env.event])
	bus.mu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					bus.runOnPanic(env.event, env.payload, r)
				}
			}()
			fn(env.payload)
		}()
	}
}

func (bus *EventBus) subscribe(event Event, fn func(any)) {
	bus.mu.Lock()
	bus.subscribers[event] = append(bus.subscribers[event], fn)
	bus.mu.Unlock()
	bus.runOnSubscribe(event)
}

// SubscribeProjectCreated registers a handler for EventProjectCreated.
func (bus *EventBus) SubscribeProjectCreated(fn func(ProjectCreatedPayload)) {
	bus.subscribe(EventProjectCreated, func(p any) {
		if payload, ok := p.(ProjectCreatedPayload); ok {
			fn(payload)
		}
	})
}

// PublishProjectCreated publishes an EventProjectCreated event.
func (bus *EventBus) PublishProjectCreated(payload ProjectCreatedPayload) {
	bus.send(EventProjectCreated, payload)
}

// SubscribeTaskCreated registers a handler for EventTaskCreated.
func (bus *EventBus) SubscribeTaskCreated(fn func(TaskCreatedPayload)) {
	bus.subscribe(EventTaskCreated, func(p any) {
		if payload, ok := p.(TaskCreatedPayload); ok {
			fn(payload)
		}
	})
}

// PublishTaskCreated publishes an EventTaskCreated event.
func (bus *EventBus) PublishTaskCreated(payload TaskCreatedPayload) {
	bus.send(EventTaskCreated, payload)
}

// SubscribeRunStarted registers a handler for EventRunStarted.
func (bus *EventBus) SubscribeRunStarted(fn func(RunStartedPayload)) {
	bus.subscribe(EventRunStarted, func(p any) {
		if payload, ok := p.(RunStartedPayload); ok {
			fn(payload)
		}
	})
}

// PublishRunStarted publishes an EventRunStarted event.
func (bus *EventBus) PublishRunStarted(payload RunStartedPayload) {
	bus.send(EventRunStarted, payload)
}

// SubscribeRunFinished registers a handler for EventRunFinished.
func (bus *EventBus) SubscribeRunFinished(fn func(RunFinishedPayload)) {
	bus.subscribe(EventRunFinished, func(p any) {
		if payload, ok := p.(RunFinishedPayload); ok {
			fn(payload)
		}
	})
}

// PublishRunFinished publishes an EventRunFinished event.
func (bus *EventBus) PublishRunFinished(payload RunFinishedPayload) {
	bus.send(EventRunFinished, payload)
}

// SubscribeSnapshotMerged registers a handler for EventSnapshotMerged.
func (bus *EventBus) SubscribeSnapshotMerged(fn func(SnapshotMergedPayload)) {
	bus.subscribe(EventSnapshotMerged, func(p any) {
		if payload, ok := p.(SnapshotMergedPayload); ok {
			fn(payload)
		}
	})
}

// PublishSnapshotMerged publishes an EventSnapshotMerged event.
func (bus *EventBus) PublishSnapshotMerged(payload SnapshotMergedPayload) {
	bus.send(EventSnapshotMerged, payload)
}

// SubscribeWriteFailed registers a handler for EventWriteFailed.
func (bus *EventBus) SubscribeWriteFailed(fn func(WriteFailedPayload)) {
	bus.subscribe(EventWriteFailed, func(p any) {
		if payload, ok := p.(WriteFailedPayload); ok {
			fn(payload)
		}
	})
}

// PublishWriteFailed publishes an EventWriteFailed event.
func (bus *EventBus) PublishWriteFailed(payload WriteFailedPayload) {
	bus.send(EventWriteFailed, payload)
}
