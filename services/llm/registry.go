// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// DefaultHealthInterval is the probe cadence for StartHealthLoop.
const DefaultHealthInterval = 60 * time.Second

// Outcome is the lifetime call tally for one provider.
type Outcome struct {
	Success int64 `json:"success"`
	Failure int64 `json:"failure"`
}

// SuccessRate is successes over total calls, 1.0 before any call.
func (o Outcome) SuccessRate() float64 {
	total := o.Success + o.Failure
	if total == 0 {
		return 1.0
	}
	return float64(o.Success) / float64(total)
}

// Registry holds the configured providers and their last known health.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	health    map[string]datatypes.HealthEvent
	outcomes  map[string]Outcome
	publish   func(datatypes.HealthEvent)
}

// NewRegistry returns an empty Registry. publish may be nil; the event
// hub's health topic attaches here.
func NewRegistry(publish func(datatypes.HealthEvent)) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		health:    make(map[string]datatypes.HealthEvent),
		outcomes:  make(map[string]Outcome),
		publish:   publish,
	}
}

// Register adds a provider. Registering twice under one name replaces.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	// Optimistic until the first probe says otherwise.
	r.health[p.Name()] = datatypes.HealthEvent{Provider: p.Name(), Healthy: true}
}

// Get returns the provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names lists registered providers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Health returns a copy of the last known health per provider.
func (r *Registry) Health() map[string]datatypes.HealthEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]datatypes.HealthEvent, len(r.health))
	for k, v := range r.health {
		out[k] = v
	}
	return out
}

// RecordOutcome tallies a completed chat call for the success rate.
func (r *Registry) RecordOutcome(name string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.outcomes[name]
	if ok {
		o.Success++
	} else {
		o.Failure++
	}
	r.outcomes[name] = o
}

// Outcomes returns a copy of the per-provider call tallies.
func (r *Registry) Outcomes() map[string]Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Outcome, len(r.outcomes))
	for k, v := range r.outcomes {
		out[k] = v
	}
	return out
}

// CheckAll probes every provider once, records transitions and publishes
// a health event per probe.
func (r *Registry) CheckAll(ctx context.Context) {
	r.mu.RLock()
	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	r.mu.RUnlock()

	for _, p := range providers {
		probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		start := time.Now()
		err := p.HealthCheck(probeCtx)
		cancel()

		event := datatypes.HealthEvent{
			Provider:  p.Name(),
			Healthy:   err == nil,
			LatencyMs: time.Since(start).Milliseconds(),
			CheckedAt: time.Now(),
		}
		if err != nil {
			event.Error = err.Error()
			slog.Warn("provider health probe failed", "provider", p.Name(), "error", err)
		}

		r.mu.Lock()
		r.health[p.Name()] = event
		r.mu.Unlock()

		if r.publish != nil {
			r.publish(event)
		}
	}
}

// StartHealthLoop probes all providers on the given interval until ctx
// is done (0 = DefaultHealthInterval).
func (r *Registry) StartHealthLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.CheckAll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}
