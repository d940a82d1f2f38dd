// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package hub

import (
	"fmt"
	"testing"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic_DeliversInOrder(t *testing.T) {
	topic := NewTopic[int](8)
	sub := topic.Subscribe()
	defer sub.Cancel()

	for i := 0; i < 5; i++ {
		topic.Publish(i)
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, i, <-sub.C)
	}
}

func TestTopic_IndependentSubscribers(t *testing.T) {
	topic := NewTopic[string](4)
	a := topic.Subscribe()
	b := topic.Subscribe()
	defer a.Cancel()
	defer b.Cancel()

	topic.Publish("event")

	assert.Equal(t, "event", <-a.C)
	assert.Equal(t, "event", <-b.C)
}

// TestTopic_DropOldestOnOverflow verifies the back-pressure policy: a
// full queue loses its oldest event, keeps the newest, and counts the
// loss.
func TestTopic_DropOldestOnOverflow(t *testing.T) {
	topic := NewTopic[int](2)
	sub := topic.Subscribe()
	defer sub.Cancel()

	topic.Publish(1)
	topic.Publish(2)
	topic.Publish(3) // overflows, 1 is dropped

	assert.Equal(t, int64(1), sub.Dropped())
	assert.Equal(t, 2, <-sub.C)
	assert.Equal(t, 3, <-sub.C)
}

// TestTopic_SlowSubscriberDoesNotBlockOthers publishes past one
// subscriber's capacity and checks a draining subscriber sees everything.
func TestTopic_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	topic := NewTopic[int](2)
	slow := topic.Subscribe()
	fast := topic.Subscribe()
	defer slow.Cancel()
	defer fast.Cancel()

	received := 0
	for i := 0; i < 10; i++ {
		topic.Publish(i)
		for {
			select {
			case <-fast.C:
				received++
				continue
			default:
			}
			break
		}
	}

	assert.Equal(t, 10, received)
	assert.Greater(t, slow.Dropped(), int64(0))
}

func TestSubscription_Cancel(t *testing.T) {
	topic := NewTopic[int](4)
	sub := topic.Subscribe()

	require.Equal(t, 1, topic.Subscribers())
	sub.Cancel()
	assert.Equal(t, 0, topic.Subscribers())

	// Publishing after cancel must not panic and the channel is closed.
	topic.Publish(1)
	_, open := <-sub.C
	assert.False(t, open)

	sub.Cancel() // idempotent
}

func TestHub_TypedTopics(t *testing.T) {
	h := New(8)

	artifacts := h.Artifacts.Subscribe()
	defer artifacts.Cancel()
	budget := h.Budget.Subscribe()
	defer budget.Cancel()

	h.Artifacts.Publish(datatypes.RoutingArtifact{Id: "a-1", Type: datatypes.ArtifactRouteDecision})
	h.Budget.Publish(datatypes.BudgetAlert{Status: datatypes.BudgetStatus{Period: datatypes.PeriodDaily}})

	got := <-artifacts.C
	assert.Equal(t, "a-1", got.Id)
	alert := <-budget.C
	assert.Equal(t, datatypes.PeriodDaily, alert.Status.Period)
}

func TestTopic_ManyEventsManySubscribers(t *testing.T) {
	topic := NewTopic[string](128)
	subs := make([]*Subscription[string], 4)
	for i := range subs {
		subs[i] = topic.Subscribe()
	}

	for i := 0; i < 100; i++ {
		topic.Publish(fmt.Sprintf("event-%d", i))
	}

	for _, sub := range subs {
		assert.Equal(t, "event-0", <-sub.C)
		sub.Cancel()
	}
}
