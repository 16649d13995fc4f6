// Package allocation divides the units of one receipt item among the people
// assigned to it and attributes the item's cost to each of them.
//
// Every operation is a pure function over an explicit assignment list. The
// caller owns the working list for an editing session and passes it back in on
// every call; nothing here keeps state between calls.
package allocation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveQuantity = errors.New("item quantity must be positive")
	ErrNoParticipants      = errors.New("item must have at least one eligible participant")
	ErrInvalidSplit        = errors.New("invalid split")
)

// Item is one purchased line on a receipt.
type Item struct {
	ID                     string
	Name                   string
	Quantity               int
	UnitPrice              decimal.Decimal
	AssignedParticipantIDs []string

	// SavedSplit is set only once a user has committed a custom split.
	SavedSplit []PortionAssignment
}

// Total returns quantity × unit price.
func (it Item) Total() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// IsAssigned reports whether participantID may receive a portion of the item.
func (it Item) IsAssigned(participantID string) bool {
	for _, id := range it.AssignedParticipantIDs {
		if id == participantID {
			return true
		}
	}
	return false
}

// Participant is a person who may be assigned a portion.
type Participant struct {
	ID               string
	DisplayName      string
	IsRequestingUser bool
}

// PortionAssignment is the number of units of an item given to one participant.
type PortionAssignment struct {
	ParticipantID string `json:"participant_id"`
	Portion       int    `json:"portion"`
}

// InvalidSplitError is returned by CommitSplit when the portions do not add up
// to the item quantity.
type InvalidSplitError struct {
	TotalPortions    int
	ExpectedQuantity int
}

func (e *InvalidSplitError) Error() string {
	return fmt.Sprintf("total portions %d must equal quantity %d", e.TotalPortions, e.ExpectedQuantity)
}

// Is lets errors.Is(err, ErrInvalidSplit) match any InvalidSplitError.
func (e *InvalidSplitError) Is(target error) bool {
	return target == ErrInvalidSplit
}

// SaveFunc persists a committed split for the item with the given ID.
type SaveFunc func(itemID string, assignments []PortionAssignment) error

// OrderEligible returns the participants assigned to item in allocation order:
// the requesting user first, then everyone else in the order given. Duplicate
// IDs are dropped and IsRequestingUser is set from currentUserID.
func OrderEligible(item Item, participants []Participant, currentUserID string) []Participant {
	seen := make(map[string]bool, len(participants))
	eligible := make([]Participant, 0, len(participants))

	add := func(p Participant) {
		if seen[p.ID] || !item.IsAssigned(p.ID) {
			return
		}
		seen[p.ID] = true
		p.IsRequestingUser = p.ID == currentUserID
		eligible = append(eligible, p)
	}

	for _, p := range participants {
		if p.ID == currentUserID {
			add(p)
		}
	}
	for _, p := range participants {
		add(p)
	}
	return eligible
}

// InitializeSplit returns the working assignment list for an editing session.
//
// A non-empty SavedSplit is resumed as is, regardless of the current eligible
// set. Otherwise quantity is divided evenly and the remainder goes one unit at a
// time to the first participants in eligible order, so portions differ by at
// most one and always sum to the quantity.
func InitializeSplit(item Item, eligible []Participant) ([]PortionAssignment, error) {
	if len(item.SavedSplit) > 0 {
		return clone(item.SavedSplit), nil
	}
	if item.Quantity <= 0 {
		return nil, fmt.Errorf("%w: item %s has quantity %d", ErrNonPositiveQuantity, item.ID, item.Quantity)
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: item %s", ErrNoParticipants, item.ID)
	}

	n := len(eligible)
	base := item.Quantity / n
	remainder := item.Quantity % n

	assignments := make([]PortionAssignment, n)
	for i, p := range eligible {
		portion := base
		if i < remainder {
			portion++
		}
		assignments[i] = PortionAssignment{ParticipantID: p.ID, Portion: portion}
	}
	return assignments, nil
}

// AdjustPortion returns a copy of assignments with delta applied to the
// participant's portion, clamped at zero. No upper bound is enforced; an
// over-allocated split is caught by IsValidSplit. An unknown participant leaves
// the list unchanged.
func AdjustPortion(assignments []PortionAssignment, participantID string, delta int) []PortionAssignment {
	idx := -1
	for i, a := range assignments {
		if a.ParticipantID == participantID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return assignments
	}

	out := clone(assignments)
	out[idx].Portion = max(0, out[idx].Portion+delta)
	return out
}

// TotalPortions sums every portion in the list.
func TotalPortions(assignments []PortionAssignment) int {
	total := 0
	for _, a := range assignments {
		total += a.Portion
	}
	return total
}

// IsValidSplit reports whether the portions add up to the item quantity.
func IsValidSplit(assignments []PortionAssignment, item Item) bool {
	return TotalPortions(assignments) == item.Quantity
}

// ParticipantCost attributes a share of the item's total cost proportional to
// portion / quantity. Quantity must be positive.
func ParticipantCost(portion int, item Item) decimal.Decimal {
	return item.Total().
		Mul(decimal.NewFromInt(int64(portion))).
		Div(decimal.NewFromInt(int64(item.Quantity)))
}

// CommitSplit validates assignments against the item and hands them to save.
// It returns an *InvalidSplitError without calling save when the split is
// invalid. A nil save commits without side effects.
func CommitSplit(assignments []PortionAssignment, item Item, save SaveFunc) ([]PortionAssignment, error) {
	if !IsValidSplit(assignments, item) {
		return nil, &InvalidSplitError{
			TotalPortions:    TotalPortions(assignments),
			ExpectedQuantity: item.Quantity,
		}
	}

	committed := clone(assignments)
	if save != nil {
		if err := save(item.ID, clone(committed)); err != nil {
			return nil, fmt.Errorf("failed to save split for item %s: %w", item.ID, err)
		}
	}
	return committed, nil
}

func clone(assignments []PortionAssignment) []PortionAssignment {
	if assignments == nil {
		return nil
	}
	out := make([]PortionAssignment, len(assignments))
	copy(out, assignments)
	return out
}
