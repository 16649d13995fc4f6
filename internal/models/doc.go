// Package models defines the persisted domain records for receipt splitting.
//
// # Models
//
//   - User: registered account; doubles as a receipt participant and as the
//     lender who paid for a receipt
//   - Receipt: a parsed receipt owned by its lender, with the people splitting it
//   - Item: one receipt line with quantity, unit price, assignees and an
//     optional committed custom split
//
// # Design Principles
//
// 1. **IDs, not pointers**: relationships are expressed as ID strings
// 2. **Exact money**: prices and totals use decimal.Decimal, never float64
// 3. **Ordered participants**: participant and assignee order is persisted,
// since split allocation hands remainders out in that order
// 4. **Allocation lives elsewhere**: items convert to allocation.Item for any
// split arithmetic
package models
