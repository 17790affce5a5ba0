package autoassign

import (
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

type input struct {
	category model.Category
	current  model.BudgetItem
	last     model.BudgetItem
	// recent holds the months with data inside the average window, newest
	// first.
	recent []model.BudgetItem
}

type rule func(in input) money.Money

var rules = map[Strategy]rule{
	Underfunded:       underfunded,
	AssignedLastMonth: assignedLastMonth,
	SpentLastMonth:    spentLastMonth,
	AverageAssigned:   averageAssigned,
	AverageSpent:      averageSpent,
	ReduceOverfunding: reduceOverfunding,
	ResetAvailable:    resetAvailable,
	ResetAssigned:     resetAssigned,
}

// underfunded brings available up to the target, or to zero without one.
// It never lowers a balance.
func underfunded(in input) money.Money {
	goal := money.Max(in.category.Target, 0)
	if in.current.Available >= goal {
		return 0
	}
	return goal - in.current.Available
}

func assignedLastMonth(in input) money.Money {
	return in.last.Assigned - in.current.Assigned
}

func spentLastMonth(in input) money.Money {
	return in.last.Activity.Abs() - in.current.Assigned
}

func averageAssigned(in input) money.Money {
	if len(in.recent) == 0 {
		return 0
	}
	var total money.Money
	for _, it := range in.recent {
		total += it.Assigned
	}
	return mean(total, len(in.recent)).Abs() - in.current.Assigned
}

func averageSpent(in input) money.Money {
	if len(in.recent) == 0 {
		return 0
	}
	var total money.Money
	for _, it := range in.recent {
		total += it.Activity
	}
	return mean(total, len(in.recent)).Abs() - in.current.Assigned
}

// reduceOverfunding brings available down to the target. Categories without
// a target are left alone.
func reduceOverfunding(in input) money.Money {
	target := in.category.Target
	if target <= 0 || in.current.Available <= target {
		return 0
	}
	return target - in.current.Available
}

func resetAvailable(in input) money.Money {
	return -in.current.Available
}

func resetAssigned(in input) money.Money {
	return -in.current.Assigned
}

// mean divides with truncation toward zero.
func mean(total money.Money, n int) money.Money {
	return total / money.Money(n)
}
