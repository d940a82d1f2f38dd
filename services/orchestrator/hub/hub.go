// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package hub fans events out to subscribers over typed, bounded
// channels.
//
// # Description
//
// Each topic carries one payload type. A subscriber gets its own queue;
// a slow subscriber overflows its own queue only, with a drop-oldest
// policy and a visible dropped counter. Publishing never blocks the
// producer.
//
// # Thread Safety
//
// Topics are safe for concurrent publish and subscribe. Per-subscriber
// order is preserved; there is no ordering guarantee across subscribers.
package hub

import (
	"sync"
	"sync/atomic"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
	"github.com/meridian-ai/meridian/services/orchestrator/observability"
)

// DefaultQueueSize bounds each subscriber's queue.
const DefaultQueueSize = 64

// Subscription is one subscriber's end of a topic.
type Subscription[T any] struct {
	// C delivers events in publish order.
	C <-chan T

	ch      chan T
	dropped atomic.Int64
	cancel  func()
	once    sync.Once
}

// Cancel detaches the subscription. Safe to call more than once; the
// channel is closed after detach.
func (s *Subscription[T]) Cancel() {
	s.once.Do(s.cancel)
}

// Dropped returns how many events this subscriber lost to back-pressure.
func (s *Subscription[T]) Dropped() int64 {
	return s.dropped.Load()
}

// Topic is a single-type broadcast channel.
type Topic[T any] struct {
	mu        sync.Mutex
	subs      map[int]*Subscription[T]
	nextId    int
	queueSize int
	onDrop    func()
}

// NewTopic returns a Topic whose subscribers get queues of the given
// size (0 = DefaultQueueSize).
func NewTopic[T any](queueSize int) *Topic[T] {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Topic[T]{
		subs:      make(map[int]*Subscription[T]),
		queueSize: queueSize,
	}
}

// Subscribe attaches a new bounded queue to the topic.
func (t *Topic[T]) Subscribe() *Subscription[T] {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextId
	t.nextId++

	ch := make(chan T, t.queueSize)
	sub := &Subscription[T]{C: ch, ch: ch}
	sub.cancel = func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
		close(ch)
	}
	t.subs[id] = sub
	return sub
}

// Publish delivers the event to every subscriber. A full queue drops its
// oldest event to make room; the loss is counted on that subscription.
func (t *Topic[T]) Publish(event T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, sub := range t.subs {
		select {
		case sub.ch <- event:
		default:
			select {
			case <-sub.ch:
				sub.drop(t.onDrop)
			default:
			}
			select {
			case sub.ch <- event:
			default:
				sub.drop(t.onDrop)
			}
		}
	}
}

func (s *Subscription[T]) drop(notify func()) {
	s.dropped.Add(1)
	if notify != nil {
		notify()
	}
}

// Subscribers returns the current subscriber count.
func (t *Topic[T]) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Hub bundles the gateway's broadcast topics.
type Hub struct {
	// Artifacts carries every recorded routing artifact.
	Artifacts *Topic[datatypes.RoutingArtifact]

	// Budget carries threshold alerts from the budget tracker.
	Budget *Topic[datatypes.BudgetAlert]

	// Cache carries hit/store/clear notifications.
	Cache *Topic[datatypes.CacheEvent]

	// Health carries provider health transitions.
	Health *Topic[datatypes.HealthEvent]
}

// New returns a Hub with all topics at the given queue size
// (0 = DefaultQueueSize). Per-topic losses are surfaced on the
// dropped-events counter.
func New(queueSize int) *Hub {
	h := &Hub{
		Artifacts: NewTopic[datatypes.RoutingArtifact](queueSize),
		Budget:    NewTopic[datatypes.BudgetAlert](queueSize),
		Cache:     NewTopic[datatypes.CacheEvent](queueSize),
		Health:    NewTopic[datatypes.HealthEvent](queueSize),
	}
	h.Artifacts.onDrop = dropCounter("artifact")
	h.Budget.onDrop = dropCounter("budget")
	h.Cache.onDrop = dropCounter("cache")
	h.Health.onDrop = dropCounter("health")
	return h
}

func dropCounter(topic string) func() {
	counter := observability.HubDroppedEvents.WithLabelValues(topic)
	return counter.Inc
}
