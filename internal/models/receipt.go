package models

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/allocation"
)

// SplitMode selects how items are assigned when a receipt is created.
type SplitMode string

const (
	// SplitModeEqual assigns every item to every participant.
	SplitModeEqual SplitMode = "equal"
	// SplitModePerItem uses the assignees chosen for each item.
	SplitModePerItem SplitMode = "per_item"
)

// Receipt is a parsed receipt paid for by LenderID and split among
// ParticipantIDs. The lender is always a participant.
type Receipt struct {
	// ID is the unique identifier for the receipt (UUID format).
	ID string

	// Name is the human-readable label, e.g. the merchant name.
	Name string

	// LenderID is the user who paid and is owed by everyone else.
	LenderID string

	// ParticipantIDs lists the users splitting the receipt, in display order.
	ParticipantIDs []string

	SplitMode SplitMode

	Items []Item

	// Total is the amount actually paid including tax and service charges.
	// Zero means the receipt total equals the item subtotal.
	Total decimal.Decimal

	// CreatedAt is the Unix timestamp when the receipt was saved.
	CreatedAt int64
}

// Subtotal is the sum of every item total.
func (r *Receipt) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range r.Items {
		sum = sum.Add(it.Total())
	}
	return sum
}

// EffectiveTotal returns Total, or the subtotal when Total is unset.
func (r *Receipt) EffectiveTotal() decimal.Decimal {
	if r.Total.IsZero() {
		return r.Subtotal()
	}
	return r.Total
}

// IsParticipant reports whether userID is splitting this receipt.
func (r *Receipt) IsParticipant(userID string) bool {
	return slices.Contains(r.ParticipantIDs, userID)
}

// FindItem returns the item with the given ID.
func (r *Receipt) FindItem(itemID string) (*Item, bool) {
	for i := range r.Items {
		if r.Items[i].ID == itemID {
			return &r.Items[i], true
		}
	}
	return nil, false
}

// Item is a single line on a receipt.
type Item struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	// Name is the label printed on the receipt (e.g., "Es Teh").
	Name string

	// Quantity is the number of units purchased; always positive.
	Quantity int

	// UnitPrice is the price of one unit.
	UnitPrice decimal.Decimal

	// Assignees are the participants sharing this item, in allocation order.
	Assignees []string

	// CustomSplits is the committed per-person portion split, if any.
	// When empty the item is split evenly among Assignees.
	CustomSplits []allocation.PortionAssignment
}

// Total returns quantity × unit price.
func (it Item) Total() decimal.Decimal {
	return it.Allocation().Total()
}

// Allocation converts the item into the form used for split arithmetic.
func (it Item) Allocation() allocation.Item {
	return allocation.Item{
		ID:                     it.ID,
		Name:                   it.Name,
		Quantity:               it.Quantity,
		UnitPrice:              it.UnitPrice,
		AssignedParticipantIDs: it.Assignees,
		SavedSplit:             it.CustomSplits,
	}
}
