package model

import (
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/month"
)

// MonthlyBudgetEntry is the amount assigned to a category in one month.
type MonthlyBudgetEntry struct {
	CategoryID string      `json:"categoryId"`
	Month      month.Month `json:"month"`
	Assigned   money.Money `json:"assigned"`
}

// Adjustment is a manual correction to Ready to Assign.
type Adjustment struct {
	ID     string      `json:"id"`
	Month  month.Month `json:"month"`
	Amount money.Money `json:"amount"`
	Memo   string      `json:"memo,omitempty"`
}

// OverspendingType classifies a negative available balance.
type OverspendingType string

const (
	OverspendingNone   OverspendingType = ""
	OverspendingCash   OverspendingType = "cash"
	OverspendingCredit OverspendingType = "credit"
)

// BudgetItem holds the derived figures for one category in one month.
type BudgetItem struct {
	CategoryID string      `json:"categoryId"`
	Month      month.Month `json:"month"`
	Assigned   money.Money `json:"assigned"`
	Activity   money.Money `json:"activity"`
	Available  money.Money `json:"available"`
	// UncappedAvailable is the pure assignment rollover. It differs from
	// Available only for credit-card-payment categories.
	UncappedAvailable money.Money      `json:"uncappedAvailable"`
	OverspendingType  OverspendingType `json:"overspendingType,omitempty"`
}
