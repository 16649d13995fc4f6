package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ReceiptForBalance represents a receipt with the minimal information needed for balance calculations.
type ReceiptForBalance struct {
	Total        decimal.Decimal
	LenderID     string
	Items        []Item
	Participants []string
}

// MemberBalance represents the balance information for one person.
type MemberBalance struct {
	MemberID   string
	NetBalance decimal.Decimal // Positive = owed money, Negative = owes money
	TotalPaid  decimal.Decimal // Total amount lent across all receipts
	TotalOwed  decimal.Decimal // Total amount this person owes
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes
	To     string // Person who is owed
	Amount decimal.Decimal
}

// CalculateBalances computes balances across multiple receipts and returns
// individual balances (sorted by member ID) plus a simplified list of debts.
//
// Algorithm:
// - For each receipt: lender contributed +total, each participant owes their split
// - Aggregate: net_balance = total_paid - total_owed
// - Debt list: greedy matching of the largest debtor with the largest creditor
func CalculateBalances(receipts []ReceiptForBalance, places int32) ([]MemberBalance, []DebtEdge, error) {
	balances := make(map[string]*MemberBalance)
	get := func(id string) *MemberBalance {
		if b, ok := balances[id]; ok {
			return b
		}
		b := &MemberBalance{MemberID: id, NetBalance: decimal.Zero, TotalPaid: decimal.Zero, TotalOwed: decimal.Zero}
		balances[id] = b
		return b
	}

	for _, r := range receipts {
		// Skip receipts without lender (can't calculate balances)
		if r.LenderID == "" {
			continue
		}

		splits, err := CalculateSplit(r.Items, r.Total, r.Participants, places)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to calculate split: %w", err)
		}

		paid := decimal.Zero
		for participant, personSplit := range splits {
			get(participant).TotalOwed = get(participant).TotalOwed.Add(personSplit.Total)
			paid = paid.Add(personSplit.Total)
		}
		lender := get(r.LenderID)
		lender.TotalPaid = lender.TotalPaid.Add(paid)
	}

	var memberBalances []MemberBalance
	var creditors, debtors []*MemberBalance
	for _, bal := range balances {
		bal.NetBalance = bal.TotalPaid.Sub(bal.TotalOwed)
		memberBalances = append(memberBalances, *bal)
		switch bal.NetBalance.Sign() {
		case 1:
			creditors = append(creditors, bal)
		case -1:
			debtors = append(debtors, bal)
		}
	}
	sort.Slice(memberBalances, func(i, j int) bool {
		return memberBalances[i].MemberID < memberBalances[j].MemberID
	})
	sortByMagnitude(creditors)
	sortByMagnitude(debtors)

	debtorLeft := make(map[string]decimal.Decimal, len(debtors))
	creditorLeft := make(map[string]decimal.Decimal, len(creditors))
	for _, d := range debtors {
		debtorLeft[d.MemberID] = d.NetBalance.Neg()
	}
	for _, c := range creditors {
		creditorLeft[c.MemberID] = c.NetBalance
	}

	// Greedy algorithm: match largest debts with largest credits
	var debtEdges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := debtors[i].MemberID
		creditor := creditors[j].MemberID

		amount := decimal.Min(debtorLeft[debtor], creditorLeft[creditor])
		if amount.IsPositive() {
			debtEdges = append(debtEdges, DebtEdge{From: debtor, To: creditor, Amount: amount})
		}

		debtorLeft[debtor] = debtorLeft[debtor].Sub(amount)
		creditorLeft[creditor] = creditorLeft[creditor].Sub(amount)

		if !debtorLeft[debtor].IsPositive() {
			i++
		}
		if !creditorLeft[creditor].IsPositive() {
			j++
		}
	}

	return memberBalances, debtEdges, nil
}

// sortByMagnitude orders balances by |net| descending, then by ID.
func sortByMagnitude(bals []*MemberBalance) {
	sort.Slice(bals, func(i, j int) bool {
		a, b := bals[i].NetBalance.Abs(), bals[j].NetBalance.Abs()
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return bals[i].MemberID < bals[j].MemberID
	})
}
