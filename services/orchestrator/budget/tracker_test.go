// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package budget

import (
	"testing"
	"time"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNow is a Wednesday. Period math below depends on that.
var fixedNow = time.Date(2026, time.March, 11, 15, 30, 0, 0, time.Local)

func newTestTracker(cfg Config) *Tracker {
	tr := New(cfg, nil)
	tr.now = func() time.Time { return fixedNow }
	return tr
}

func cost(total float64, at time.Time) datatypes.ActualCost {
	return datatypes.ActualCost{
		Provider: "openai", Model: "gpt-4o-mini",
		InputTokens: 100, OutputTokens: 100,
		TotalCost: total, Timestamp: at,
	}
}

// TestGetStatus_SpentIsSumWithinPeriod verifies the core accounting
// invariant: spent equals the sum of records inside [start, end).
func TestGetStatus_SpentIsSumWithinPeriod(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	tr.RecordCost(cost(0.10, fixedNow))
	tr.RecordCost(cost(0.25, fixedNow.Add(-2*time.Hour)))
	// Yesterday: outside the daily window, inside the weekly one.
	tr.RecordCost(cost(1.00, fixedNow.AddDate(0, 0, -1)))
	// Last month: outside all windows.
	tr.RecordCost(cost(5.00, fixedNow.AddDate(0, -1, 0)))

	daily := tr.GetStatus(datatypes.PeriodDaily)
	assert.InDelta(t, 0.35, daily.Spent, 1e-9)

	weekly := tr.GetStatus(datatypes.PeriodWeekly)
	assert.InDelta(t, 1.35, weekly.Spent, 1e-9)

	monthly := tr.GetStatus(datatypes.PeriodMonthly)
	assert.InDelta(t, 1.35, monthly.Spent, 1e-9)
}

// TestPeriodBounds pins the three window definitions.
func TestPeriodBounds(t *testing.T) {
	day := time.Date(2026, time.March, 11, 15, 30, 0, 0, time.Local) // Wednesday

	start, end := PeriodBounds(datatypes.PeriodDaily, day)
	assert.Equal(t, time.Date(2026, time.March, 11, 0, 0, 0, 0, time.Local), start)
	assert.Equal(t, time.Date(2026, time.March, 12, 0, 0, 0, 0, time.Local), end)

	start, end = PeriodBounds(datatypes.PeriodWeekly, day)
	assert.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.Local), start, "ISO week starts Monday")
	assert.Equal(t, time.Date(2026, time.March, 16, 0, 0, 0, 0, time.Local), end)

	start, end = PeriodBounds(datatypes.PeriodMonthly, day)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.Local), start)
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.Local), end)

	// Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2026, time.March, 15, 8, 0, 0, 0, time.Local)
	start, _ = PeriodBounds(datatypes.PeriodWeekly, sunday)
	assert.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.Local), start)
}

// TestGetStatus_Rounding verifies micro-USD and 0.01% rounding.
func TestGetStatus_Rounding(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DailyLimit = 3.0
	tr := newTestTracker(cfg)

	tr.RecordCost(cost(0.1234567891, fixedNow))

	daily := tr.GetStatus(datatypes.PeriodDaily)
	assert.Equal(t, 0.123457, daily.Spent)
	assert.Equal(t, 2.876543, daily.Remaining)
	assert.Equal(t, 4.12, daily.PercentUsed)
}

// TestBudgetAdmission_Boundary walks the boundary case: $5 daily limit,
// $4.99 spent admits; one more $0.02 record blocks.
func TestBudgetAdmission_Boundary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DailyLimit = 5.00
	tr := newTestTracker(cfg)

	tr.RecordCost(cost(4.99, fixedNow))
	assert.Less(t, tr.GetStatus(datatypes.PeriodDaily).PercentUsed, 100.0)

	tr.RecordCost(cost(0.02, fixedNow))
	assert.GreaterOrEqual(t, tr.GetStatus(datatypes.PeriodDaily).PercentUsed, 100.0)
}

// TestAlerts_FireOncePerPeriod verifies each threshold key fires at most
// once within a period.
func TestAlerts_FireOncePerPeriod(t *testing.T) {
	alerts := make(chan datatypes.BudgetAlert, 16)
	cfg := Config{
		DailyLimit:       1.0,
		EmergencyEnabled: true,
		Thresholds: []datatypes.AlertThreshold{
			{Percentage: 50, Action: datatypes.AlertActionNotify},
		},
	}
	tr := New(cfg, func(a datatypes.BudgetAlert) { alerts <- a })
	tr.now = func() time.Time { return fixedNow }

	tr.RecordCost(cost(0.60, fixedNow))
	tr.RecordCost(cost(0.10, fixedNow))
	tr.RecordCost(cost(0.10, fixedNow))

	require.Eventually(t, func() bool { return len(alerts) == 1 },
		time.Second, 10*time.Millisecond, "notify threshold should fire exactly once")
}

// TestAlerts_RefireAfterRollover verifies the other half of the
// once-per-period invariant: a threshold that fired yesterday fires
// again when today's spend crosses it.
func TestAlerts_RefireAfterRollover(t *testing.T) {
	alerts := make(chan datatypes.BudgetAlert, 16)
	cfg := Config{
		DailyLimit: 1.0,
		Thresholds: []datatypes.AlertThreshold{
			{Percentage: 50, Action: datatypes.AlertActionNotify},
		},
	}
	tr := New(cfg, func(a datatypes.BudgetAlert) { alerts <- a })
	clock := fixedNow
	tr.now = func() time.Time { return clock }

	tr.RecordCost(cost(0.60, clock))
	require.Eventually(t, func() bool { return len(alerts) == 1 },
		time.Second, 10*time.Millisecond, "day one crossing fires")

	clock = clock.AddDate(0, 0, 1)
	require.Less(t, tr.GetStatus(datatypes.PeriodDaily).PercentUsed, 50.0,
		"the daily window reset with the clock")

	tr.RecordCost(cost(0.60, clock))
	require.Eventually(t, func() bool { return len(alerts) == 2 },
		time.Second, 10*time.Millisecond, "day two crossing fires again")
}

// TestEmergencyLatch_ClearsOnRollover verifies the latch does not
// survive midnight, with and without new spend.
func TestEmergencyLatch_ClearsOnRollover(t *testing.T) {
	cfg := Config{
		DailyLimit:       1.0,
		EmergencyEnabled: true,
		DisableProviders: []string{"anthropic"},
		Thresholds: []datatypes.AlertThreshold{
			{Percentage: 95, Action: datatypes.AlertActionEmergencyMode},
		},
	}
	tr := New(cfg, nil)
	clock := fixedNow
	tr.now = func() time.Time { return clock }

	tr.RecordCost(cost(0.96, clock))
	require.True(t, tr.IsEmergencyMode())
	require.True(t, tr.IsProviderDisabled("anthropic"))

	// A pure read after midnight observes the cleared latch.
	clock = clock.AddDate(0, 0, 1)
	assert.False(t, tr.IsEmergencyMode())
	assert.False(t, tr.IsProviderDisabled("anthropic"))

	// And the threshold is armed again for the new day.
	tr.RecordCost(cost(0.96, clock))
	assert.True(t, tr.IsEmergencyMode())
}

// TestRollover_NoSpend verifies the maintenance entry point clears the
// latch on a new day without any cost records.
func TestRollover_NoSpend(t *testing.T) {
	cfg := Config{
		DailyLimit:       1.0,
		EmergencyEnabled: true,
		Thresholds: []datatypes.AlertThreshold{
			{Percentage: 95, Action: datatypes.AlertActionEmergencyMode},
		},
	}
	tr := New(cfg, nil)
	clock := fixedNow
	tr.now = func() time.Time { return clock }

	tr.RecordCost(cost(0.96, clock))
	require.True(t, tr.IsEmergencyMode())

	clock = clock.AddDate(0, 0, 1)
	tr.Rollover()
	assert.False(t, tr.IsEmergencyMode())
}

// TestEmergencyLatch_MonotonicUntilReset covers the latch lifecycle.
func TestEmergencyLatch_MonotonicUntilReset(t *testing.T) {
	cfg := Config{
		DailyLimit:       1.0,
		EmergencyEnabled: true,
		DisableProviders: []string{"anthropic"},
		Thresholds: []datatypes.AlertThreshold{
			{Percentage: 95, Action: datatypes.AlertActionEmergencyMode},
		},
	}
	tr := newTestTracker(cfg)

	assert.False(t, tr.IsEmergencyMode())
	assert.False(t, tr.IsProviderDisabled("anthropic"), "disable list is inert until the latch")

	tr.RecordCost(cost(0.96, fixedNow))
	assert.True(t, tr.IsEmergencyMode())
	assert.True(t, tr.IsProviderDisabled("anthropic"))
	assert.False(t, tr.IsProviderDisabled("openai"))

	// More spend never unlatches.
	tr.RecordCost(cost(0.50, fixedNow))
	assert.True(t, tr.IsEmergencyMode())

	tr.ResetAlerts()
	assert.False(t, tr.IsEmergencyMode())
	assert.False(t, tr.IsProviderDisabled("anthropic"))
}

// TestEmergencyDisabled verifies the latch never engages when emergency
// mode is configured off.
func TestEmergencyDisabled(t *testing.T) {
	cfg := Config{
		DailyLimit:       1.0,
		EmergencyEnabled: false,
		Thresholds: []datatypes.AlertThreshold{
			{Percentage: 95, Action: datatypes.AlertActionEmergencyMode},
		},
	}
	tr := newTestTracker(cfg)

	tr.RecordCost(cost(2.0, fixedNow))
	assert.False(t, tr.IsEmergencyMode())
}

// TestPrune drops only records past the retention window.
func TestPrune(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	tr.RecordCost(cost(0.10, fixedNow))
	tr.RecordCost(cost(0.10, fixedNow.AddDate(0, 0, -89)))
	tr.RecordCost(cost(0.10, fixedNow.AddDate(0, 0, -91)))
	tr.RecordCost(cost(0.10, fixedNow.AddDate(0, 0, -400)))

	assert.Equal(t, 2, tr.Prune())
}

// TestSpendBreakdowns verifies the monthly by-provider/by-model sums.
func TestSpendBreakdowns(t *testing.T) {
	tr := newTestTracker(DefaultConfig())

	tr.RecordCost(datatypes.ActualCost{Provider: "openai", Model: "gpt-4o", TotalCost: 0.30, Timestamp: fixedNow})
	tr.RecordCost(datatypes.ActualCost{Provider: "openai", Model: "gpt-4o-mini", TotalCost: 0.10, Timestamp: fixedNow})
	tr.RecordCost(datatypes.ActualCost{Provider: "perplexity", Model: "sonar", TotalCost: 0.05, Timestamp: fixedNow})
	// Outside the month.
	tr.RecordCost(datatypes.ActualCost{Provider: "openai", Model: "gpt-4o", TotalCost: 9.99, Timestamp: fixedNow.AddDate(0, -2, 0)})

	byProvider := tr.SpendByProvider()
	assert.InDelta(t, 0.40, byProvider["openai"], 1e-9)
	assert.InDelta(t, 0.05, byProvider["perplexity"], 1e-9)

	byModel := tr.SpendByModel()
	assert.InDelta(t, 0.30, byModel["gpt-4o"], 1e-9)
}
