// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// Period is a rolling budget window.
type Period string

const (
	PeriodDaily   Period = "daily"   // local calendar day
	PeriodWeekly  Period = "weekly"  // ISO week, Monday 00:00 local
	PeriodMonthly Period = "monthly" // calendar month
)

// BudgetStatus is a derived snapshot of spend against a limit for one
// period. Spent equals the sum of ActualCost.TotalCost whose timestamps
// fall within [PeriodStart, PeriodEnd).
type BudgetStatus struct {
	Period      Period    `json:"period"`
	Limit       float64   `json:"limit"`
	Spent       float64   `json:"spent"`
	Remaining   float64   `json:"remaining"`
	PercentUsed float64   `json:"percentUsed"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
}

// AlertAction is what happens when a budget alert threshold is crossed.
type AlertAction string

const (
	AlertActionLog           AlertAction = "log"
	AlertActionNotify        AlertAction = "notify"
	AlertActionEmergencyMode AlertAction = "emergency_mode"
)

// AlertThreshold fires once per period when daily percent-used reaches
// Percentage. The emergency_mode action latches cheap routing until an
// explicit reset.
type AlertThreshold struct {
	Percentage float64     `json:"percentage"` // 0-100
	Action     AlertAction `json:"action"`
}

// BudgetAlert is the fan-out payload emitted when a threshold fires.
type BudgetAlert struct {
	Threshold   AlertThreshold `json:"threshold"`
	Status      BudgetStatus   `json:"status"`
	TriggeredAt time.Time      `json:"triggeredAt"`
}
