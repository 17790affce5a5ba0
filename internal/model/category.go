package model

import "github.com/cleared-dev/envelope/internal/money"

// GroupKind distinguishes the system-managed payment group from user groups.
type GroupKind string

const (
	GroupKindNormal             GroupKind = "normal"
	GroupKindCreditCardPayments GroupKind = "credit_card_payments"
)

// PaymentGroupName is the display name given to the payment group at creation.
// Identity is carried by Kind, never by the name.
const PaymentGroupName = "Credit Card Payments"

// CategoryGroup is a named, ordered set of categories.
type CategoryGroup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sortOrder"`
	Hidden    bool      `json:"hidden"`
	Kind      GroupKind `json:"kind"`
}

// IsPayment reports whether g is the system-managed payment group.
func (g CategoryGroup) IsPayment() bool {
	return g.Kind == GroupKindCreditCardPayments
}

// Category is an envelope money is assigned to.
type Category struct {
	ID        string `json:"id"`
	GroupID   string `json:"categoryGroupId"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
	Hidden    bool   `json:"hidden"`
	// LinkedAccountID makes this a credit-card-payment category mirroring
	// the linked credit account.
	LinkedAccountID string `json:"linkedAccountId,omitempty"`
	// Target is an optional funding target; zero means none.
	Target money.Money `json:"target,omitempty"`
}

// IsPayment reports whether c is a credit-card-payment category.
func (c Category) IsPayment() bool {
	return c.LinkedAccountID != ""
}
