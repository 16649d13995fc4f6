package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/allocation"
)

// PersonItem is one person's share of a single item.
type PersonItem struct {
	ItemID  string
	Name    string
	Portion int
	Amount  decimal.Decimal
}

// PersonSplit represents the calculated split for one person
type PersonSplit struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Items    []PersonItem
}

// Item represents a single item on the receipt
type Item struct {
	ID         string
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
	AssignedTo []string

	// Portions is the committed custom split. Empty means an even split of the
	// item's cost among AssignedTo.
	Portions []allocation.PortionAssignment
}

func (it Item) allocation() allocation.Item {
	return allocation.Item{
		ID:                     it.ID,
		Name:                   it.Name,
		Quantity:               it.Quantity,
		UnitPrice:              it.UnitPrice,
		AssignedParticipantIDs: it.AssignedTo,
		SavedSplit:             it.Portions,
	}
}

// CalculateSplit computes how much each participant owes for a receipt,
// rounded to places decimals.
//
// Item costs go to assignees, either by committed portions or evenly. The
// difference between billTotal and the item subtotal (tax, service, discounts)
// is then shared in proportion to each person's item subtotal:
// person_total = person_subtotal × (1 + (total_tax / bill_subtotal)).
// Every distribution uses largest-remainder rounding so the person totals add
// up to the allocated amounts exactly.
//
// A zero billTotal means the bill total equals the item subtotal. With no
// items, billTotal is split evenly among all participants.
func CalculateSplit(items []Item, billTotal decimal.Decimal, participants []string, places int32) (map[string]*PersonSplit, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	splits := make(map[string]*PersonSplit, len(participants))
	for _, p := range participants {
		splits[p] = &PersonSplit{Subtotal: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
	}

	// If no items, split total equally among all participants
	if len(items) == 0 {
		shares := allocation.SplitAmount(billTotal, ones(len(participants)), places)
		for i, p := range participants {
			splits[p].Subtotal = shares[i]
			splits[p].Total = shares[i]
		}
		return splits, nil
	}

	billSubtotal := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item %q: %w", item.Name, allocation.ErrNonPositiveQuantity)
		}
		alloc := item.allocation()
		billSubtotal = billSubtotal.Add(alloc.Total())

		var ids []string
		var portions []int
		var amounts []decimal.Decimal

		if len(item.Portions) > 0 {
			if !allocation.IsValidSplit(item.Portions, alloc) {
				return nil, fmt.Errorf("item %q: %w", item.Name, &allocation.InvalidSplitError{
					TotalPortions:    allocation.TotalPortions(item.Portions),
					ExpectedQuantity: item.Quantity,
				})
			}
			for _, c := range allocation.AllocateCosts(item.Portions, alloc, places) {
				ids = append(ids, c.ParticipantID)
				portions = append(portions, c.Portion)
				amounts = append(amounts, c.Amount)
			}
		} else {
			if len(item.AssignedTo) == 0 {
				continue
			}
			ids = item.AssignedTo
			amounts = allocation.SplitAmount(alloc.Total(), ones(len(ids)), places)
			portions = make([]int, len(ids))
		}

		for i, person := range ids {
			split, exists := splits[person]
			if !exists {
				return nil, fmt.Errorf("item %q is assigned to %s who is not a participant", item.Name, person)
			}
			if portions[i] == 0 && len(item.Portions) > 0 {
				continue
			}
			split.Subtotal = split.Subtotal.Add(amounts[i])
			split.Items = append(split.Items, PersonItem{
				ItemID:  item.ID,
				Name:    item.Name,
				Portion: portions[i],
				Amount:  amounts[i],
			})
		}
	}

	if billTotal.IsZero() {
		billTotal = billSubtotal
	}

	// Share the tax in proportion to each person's subtotal
	tax := billTotal.Sub(billSubtotal)
	weights := make([]int64, len(participants))
	for i, p := range participants {
		weights[i] = splits[p].Subtotal.Shift(places).IntPart()
	}
	taxShares := allocation.SplitAmount(tax, weights, places)

	for i, p := range participants {
		split := splits[p]
		split.Tax = taxShares[i]
		split.Total = split.Subtotal.Add(split.Tax)
	}

	return splits, nil
}

func ones(n int) []int64 {
	w := make([]int64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}
