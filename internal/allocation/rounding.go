package allocation

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Cost is one participant's rounded share of an item.
type Cost struct {
	ParticipantID string
	Portion       int
	Amount        decimal.Decimal
}

// AllocateCosts returns each participant's cost rounded to places decimals.
// Rounding residue is handed out by largest remainder so the amounts always sum
// to the rounded value of the allocated portions' cost; for a valid split that
// is the item total.
func AllocateCosts(assignments []PortionAssignment, item Item, places int32) []Cost {
	weights := make([]int64, len(assignments))
	for i, a := range assignments {
		weights[i] = int64(a.Portion)
	}

	allocated := ParticipantCost(TotalPortions(assignments), item)
	amounts := SplitAmount(allocated, weights, places)

	costs := make([]Cost, len(assignments))
	for i, a := range assignments {
		costs[i] = Cost{ParticipantID: a.ParticipantID, Portion: a.Portion, Amount: amounts[i]}
	}
	return costs
}

// SplitAmount divides total into len(weights) parts proportional to weights,
// each rounded to places decimals, using the largest remainder method. The parts
// sum exactly to total rounded to places. Ties go to the earlier index. When all
// weights are zero every part is zero.
func SplitAmount(total decimal.Decimal, weights []int64, places int32) []decimal.Decimal {
	parts := make([]decimal.Decimal, len(weights))
	for i := range parts {
		parts[i] = decimal.Zero
	}

	var sum int64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return parts
	}

	units := total.Round(places).Shift(places)
	denom := decimal.NewFromInt(sum)

	fractions := make([]decimal.Decimal, len(weights))
	allotted := decimal.Zero
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		raw := units.Mul(decimal.NewFromInt(w)).Div(denom)
		floor := raw.Floor()
		parts[i] = floor
		fractions[i] = raw.Sub(floor)
		allotted = allotted.Add(floor)
	}

	order := make([]int, 0, len(weights))
	for i, w := range weights {
		if w > 0 {
			order = append(order, i)
		}
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return fractions[b].Cmp(fractions[a])
	})

	left := units.Sub(allotted).IntPart()
	for k := 0; left > 0 && len(order) > 0; k = (k + 1) % len(order) {
		parts[order[k]] = parts[order[k]].Add(decimal.NewFromInt(1))
		left--
	}

	for i := range parts {
		parts[i] = parts[i].Shift(-places)
	}
	return parts
}
