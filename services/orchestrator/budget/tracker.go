// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package budget tracks LLM spend against rolling period limits.
//
// # Description
//
// The tracker keeps an append-only log of actual costs and derives
// status snapshots for the daily (local calendar day), weekly (ISO week,
// Monday-based) and monthly (calendar month) windows. Alert thresholds
// fire once per period against the daily percent-used; the emergency
// threshold latches cheap routing until the daily window rolls over.
// Rollover is detected lazily on every alert check and latch read, and
// eagerly by Rollover for maintenance loops. Emergency mode is a latch,
// not an error — it silently changes routing for subsequent requests.
//
// # Thread Safety
//
// A single mutex serializes every mutating operation. Status reads take
// the same lock and return copies, so callers never observe a snapshot
// mid-update.
package budget

import (
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// retentionDays is how long cost records are kept before Prune drops them.
const retentionDays = 90

// Config holds the limits and alert ladder for a tracker.
type Config struct {
	DailyLimit   float64
	WeeklyLimit  float64
	MonthlyLimit float64

	// Thresholds fire in order against daily percent-used. Each key
	// (percentage+action) fires at most once per period.
	Thresholds []datatypes.AlertThreshold

	// EmergencyEnabled gates whether an emergency_mode threshold may
	// latch. Disabled trackers still log the crossing.
	EmergencyEnabled bool

	// DisableProviders lists providers that are off-limits while the
	// emergency latch is active.
	DisableProviders []string
}

// DefaultConfig returns the shipped alert ladder: informational at 50%,
// notification at 80%, emergency latch at 95%.
func DefaultConfig() Config {
	return Config{
		DailyLimit:       10.0,
		WeeklyLimit:      50.0,
		MonthlyLimit:     150.0,
		EmergencyEnabled: true,
		Thresholds: []datatypes.AlertThreshold{
			{Percentage: 50, Action: datatypes.AlertActionLog},
			{Percentage: 80, Action: datatypes.AlertActionNotify},
			{Percentage: 95, Action: datatypes.AlertActionEmergencyMode},
		},
	}
}

// AlertFunc receives fired notify/emergency alerts for fan-out.
type AlertFunc func(datatypes.BudgetAlert)

// Tracker is the budget subsystem. Construct with New.
type Tracker struct {
	mu sync.Mutex

	cfg       Config
	costs     []datatypes.ActualCost
	fired     map[string]bool
	emergency bool
	alertDay  time.Time
	onAlert   AlertFunc
	now       func() time.Time
}

// New returns a Tracker with the given config. onAlert may be nil.
func New(cfg Config, onAlert AlertFunc) *Tracker {
	return &Tracker{
		cfg:     cfg,
		fired:   make(map[string]bool),
		onAlert: onAlert,
		now:     time.Now,
	}
}

// RecordCost appends a cost record and evaluates the alert ladder.
func (t *Tracker) RecordCost(c datatypes.ActualCost) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c.Timestamp.IsZero() {
		c.Timestamp = t.now()
	}
	t.costs = append(t.costs, c)
	t.checkAlertsLocked()
}

// GetStatus derives the spend snapshot for one period. Spent and
// Remaining are rounded to micro-USD, PercentUsed to 0.01%.
func (t *Tracker) GetStatus(period datatypes.Period) datatypes.BudgetStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked(period)
}

func (t *Tracker) statusLocked(period datatypes.Period) datatypes.BudgetStatus {
	now := t.now()
	start, end := PeriodBounds(period, now)

	spent := 0.0
	for _, c := range t.costs {
		if !c.Timestamp.Before(start) && c.Timestamp.Before(end) {
			spent += c.TotalCost
		}
	}

	limit := t.limitFor(period)
	remaining := limit - spent
	if remaining < 0 {
		remaining = 0
	}
	percent := 0.0
	if limit > 0 {
		percent = spent / limit * 100
	}

	return datatypes.BudgetStatus{
		Period:      period,
		Limit:       limit,
		Spent:       roundMicro(spent),
		Remaining:   roundMicro(remaining),
		PercentUsed: math.Round(percent*100) / 100,
		PeriodStart: start,
		PeriodEnd:   end,
	}
}

func (t *Tracker) limitFor(period datatypes.Period) float64 {
	switch period {
	case datatypes.PeriodDaily:
		return t.cfg.DailyLimit
	case datatypes.PeriodWeekly:
		return t.cfg.WeeklyLimit
	case datatypes.PeriodMonthly:
		return t.cfg.MonthlyLimit
	}
	return 0
}

func roundMicro(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// PeriodBounds returns [start, end) for the period containing now.
// Daily is the local calendar day, weekly the ISO week (Monday 00:00
// local), monthly the calendar month.
func PeriodBounds(period datatypes.Period, now time.Time) (time.Time, time.Time) {
	switch period {
	case datatypes.PeriodWeekly:
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
			AddDate(0, 0, -daysSinceMonday)
		return start, start.AddDate(0, 0, 7)
	case datatypes.PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0)
	default:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 0, 1)
	}
}

// rollLocked resets the fired set and the emergency latch when the
// daily window has advanced past the one the alerts belong to. Caller
// holds t.mu.
func (t *Tracker) rollLocked() {
	start, _ := PeriodBounds(datatypes.PeriodDaily, t.now())
	if t.alertDay.Equal(start) {
		return
	}
	if !t.alertDay.IsZero() {
		t.fired = make(map[string]bool)
		if t.emergency {
			t.emergency = false
			slog.Info("emergency mode cleared by daily rollover")
		}
	}
	t.alertDay = start
}

// checkAlertsLocked walks the threshold ladder against daily usage.
// Caller holds t.mu.
func (t *Tracker) checkAlertsLocked() {
	t.rollLocked()
	status := t.statusLocked(datatypes.PeriodDaily)

	for _, th := range t.cfg.Thresholds {
		if status.PercentUsed < th.Percentage {
			continue
		}
		k := alertKey(th)
		if t.fired[k] {
			continue
		}
		t.fired[k] = true

		alert := datatypes.BudgetAlert{Threshold: th, Status: status, TriggeredAt: t.now()}
		switch th.Action {
		case datatypes.AlertActionLog:
			slog.Info("budget threshold crossed",
				"percentage", th.Percentage, "spent", status.Spent, "limit", status.Limit)
		case datatypes.AlertActionNotify:
			slog.Warn("budget threshold crossed",
				"percentage", th.Percentage, "spent", status.Spent, "limit", status.Limit)
			t.notify(alert)
		case datatypes.AlertActionEmergencyMode:
			if t.cfg.EmergencyEnabled {
				t.emergency = true
				slog.Warn("emergency mode latched",
					"percentage", th.Percentage, "spent", status.Spent, "limit", status.Limit)
			} else {
				slog.Warn("emergency threshold crossed but emergency mode is disabled",
					"percentage", th.Percentage)
			}
			t.notify(alert)
		}
	}
}

func (t *Tracker) notify(alert datatypes.BudgetAlert) {
	if t.onAlert == nil {
		return
	}
	// Fan-out must not run under the tracker lock.
	go t.onAlert(alert)
}

func alertKey(th datatypes.AlertThreshold) string {
	return string(th.Action) + "@" + strconv.FormatFloat(th.Percentage, 'f', -1, 64)
}

// IsEmergencyMode reports the current latch state.
func (t *Tracker) IsEmergencyMode() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()
	return t.emergency
}

// SetEmergencyMode forces the latch; used by operators and tests. The
// forced state belongs to the current daily window and clears with it.
func (t *Tracker) SetEmergencyMode(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()
	t.emergency = active
}

// IsProviderDisabled reports whether a provider is off-limits. Only true
// while the emergency latch is active and the provider is listed.
func (t *Tracker) IsProviderDisabled(provider string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()
	if !t.emergency {
		return false
	}
	for _, p := range t.cfg.DisableProviders {
		if p == provider {
			return true
		}
	}
	return false
}

// Rollover applies any pending daily rollover without recording spend,
// so the latch and fired set clear at midnight even when no requests
// arrive. Maintenance loops call this periodically.
func (t *Tracker) Rollover() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollLocked()
}

// ResetAlerts clears the fired set and the emergency latch immediately,
// regardless of the window. Rollover handles the daily case; this is
// the operator override.
func (t *Tracker) ResetAlerts() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fired = make(map[string]bool)
	t.emergency = false
	t.alertDay, _ = PeriodBounds(datatypes.PeriodDaily, t.now())
}

// Prune drops cost records older than the retention window.
func (t *Tracker) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().AddDate(0, 0, -retentionDays)
	kept := t.costs[:0]
	dropped := 0
	for _, c := range t.costs {
		if c.Timestamp.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, c)
	}
	t.costs = kept
	return dropped
}

// UpdateConfig swaps the limits and ladder. Fired alert keys persist so
// a config change cannot re-fire a threshold within the same period.
func (t *Tracker) UpdateConfig(cfg Config) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = cfg
}

// SpendByProvider sums monthly spend per provider.
func (t *Tracker) SpendByProvider() map[string]float64 {
	return t.spendBy(func(c datatypes.ActualCost) string { return c.Provider })
}

// SpendByModel sums monthly spend per model.
func (t *Tracker) SpendByModel() map[string]float64 {
	return t.spendBy(func(c datatypes.ActualCost) string { return c.Model })
}

func (t *Tracker) spendBy(keyFn func(datatypes.ActualCost) string) map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	start, end := PeriodBounds(datatypes.PeriodMonthly, t.now())
	out := make(map[string]float64)
	for _, c := range t.costs {
		if !c.Timestamp.Before(start) && c.Timestamp.Before(end) {
			out[keyFn(c)] = roundMicro(out[keyFn(c)] + c.TotalCost)
		}
	}
	return out
}
