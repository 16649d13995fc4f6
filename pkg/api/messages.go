// Package api defines the receiptsplit.v1 RPC surface: message types,
// procedure names, and Connect handler and client constructors. Messages
// travel as JSON; money is encoded as decimal strings.
package api

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/allocation"
)

// PortionAssignment is one participant's portion of an item.
type PortionAssignment = allocation.PortionAssignment

type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	Phone          string `json:"phone,omitempty"`
	PaymentMethod  string `json:"payment_method,omitempty"`
	BankName       string `json:"bank_name,omitempty"`
	PaymentAccount string `json:"payment_account,omitempty"`
	AccountHolder  string `json:"account_holder,omitempty"`
	CreatedAt      int64  `json:"created_at,omitempty"`
}

type RegisterRequest struct {
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	Password       string `json:"password"`
	Phone          string `json:"phone,omitempty"`
	PaymentMethod  string `json:"payment_method,omitempty"`
	BankName       string `json:"bank_name,omitempty"`
	PaymentAccount string `json:"payment_account,omitempty"`
	AccountHolder  string `json:"account_holder,omitempty"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

type ListUsersRequest struct{}

type ListUsersResponse struct {
	Users []*User `json:"users"`
}

// Item is a receipt line. UnitPrice is per unit; CustomSplits is set once a
// custom split was committed.
type Item struct {
	ID           string              `json:"id,omitempty"`
	Name         string              `json:"name"`
	Quantity     int                 `json:"quantity"`
	UnitPrice    decimal.Decimal     `json:"unit_price"`
	AssigneeIDs  []string            `json:"assignee_ids,omitempty"`
	CustomSplits []PortionAssignment `json:"custom_splits,omitempty"`
}

type Receipt struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	LenderID       string          `json:"lender_id"`
	ParticipantIDs []string        `json:"participant_ids"`
	SplitMode      string          `json:"split_mode"`
	Items          []*Item         `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
	CreatedAt      int64           `json:"created_at"`
}

type PersonItem struct {
	ItemID  string          `json:"item_id"`
	Name    string          `json:"name"`
	Portion int             `json:"portion,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
}

// BillSplit is what one participant owes for a receipt.
type BillSplit struct {
	ParticipantID   string          `json:"participant_id"`
	ParticipantName string          `json:"participant_name,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Amount          decimal.Decimal `json:"amount"`
	Items           []*PersonItem   `json:"items,omitempty"`
}

type CreateReceiptRequest struct {
	Name           string          `json:"name,omitempty"`
	ParticipantIDs []string        `json:"participant_ids"`
	SplitMode      string          `json:"split_mode"`
	Items          []*Item         `json:"items"`
	Total          decimal.Decimal `json:"total"`
}

type CreateReceiptResponse struct {
	Receipt *Receipt     `json:"receipt"`
	Splits  []*BillSplit `json:"splits"`
}

type GetReceiptRequest struct {
	ReceiptID string `json:"receipt_id"`
}

type GetReceiptResponse struct {
	Receipt *Receipt     `json:"receipt"`
	Splits  []*BillSplit `json:"splits"`
}

type ReceiptSummary struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	LenderID         string          `json:"lender_id"`
	IsLender         bool            `json:"is_lender"`
	Total            decimal.Decimal `json:"total"`
	ParticipantCount int32           `json:"participant_count"`
	CreatedAt        int64           `json:"created_at"`
}

type ListReceiptsRequest struct{}

type ListReceiptsResponse struct {
	Receipts []*ReceiptSummary `json:"receipts"`
}

type UpdateReceiptRequest struct {
	ReceiptID      string          `json:"receipt_id"`
	Name           string          `json:"name,omitempty"`
	ParticipantIDs []string        `json:"participant_ids"`
	SplitMode      string          `json:"split_mode"`
	Items          []*Item         `json:"items"`
	Total          decimal.Decimal `json:"total"`
}

type UpdateReceiptResponse struct {
	Receipt *Receipt     `json:"receipt"`
	Splits  []*BillSplit `json:"splits"`
}

type DeleteReceiptRequest struct {
	ReceiptID string `json:"receipt_id"`
}

type DeleteReceiptResponse struct{}

// PortionShare is one row of the split editor.
type PortionShare struct {
	ParticipantID    string          `json:"participant_id"`
	DisplayName      string          `json:"display_name,omitempty"`
	IsRequestingUser bool            `json:"is_requesting_user"`
	Portion          int             `json:"portion"`
	Cost             decimal.Decimal `json:"cost"`
}

// ItemSplitResponse carries the working assignments of a split editing
// session and the running totals to display next to them.
type ItemSplitResponse struct {
	ItemID        string              `json:"item_id"`
	ItemName      string              `json:"item_name"`
	Quantity      int                 `json:"quantity"`
	ItemTotal     decimal.Decimal     `json:"item_total"`
	Assignments   []PortionAssignment `json:"assignments"`
	TotalPortions int                 `json:"total_portions"`
	Valid         bool                `json:"valid"`
	Resumed       bool                `json:"resumed"`
	Shares        []*PortionShare     `json:"shares"`
}

type StartItemSplitRequest struct {
	ReceiptID string `json:"receipt_id"`
	ItemID    string `json:"item_id"`
}

type AdjustItemSplitRequest struct {
	ReceiptID     string              `json:"receipt_id"`
	ItemID        string              `json:"item_id"`
	Assignments   []PortionAssignment `json:"assignments"`
	ParticipantID string              `json:"participant_id"`
	Delta         int                 `json:"delta"`
}

type SaveItemSplitRequest struct {
	ReceiptID   string              `json:"receipt_id"`
	ItemID      string              `json:"item_id"`
	Assignments []PortionAssignment `json:"assignments"`
}

type SaveItemSplitResponse struct {
	Receipt *Receipt     `json:"receipt"`
	Splits  []*BillSplit `json:"splits"`
}

// MyBill is a receipt the caller owes money on.
type MyBill struct {
	ReceiptID   string          `json:"receipt_id"`
	ReceiptName string          `json:"receipt_name"`
	Lender      *User           `json:"lender"`
	Amount      decimal.Decimal `json:"amount"`
	Items       []*PersonItem   `json:"items"`
	CreatedAt   int64           `json:"created_at"`
}

type ListMyBillsRequest struct{}

type ListMyBillsResponse struct {
	Bills []*MyBill `json:"bills"`
	// Outstanding is the sum of every bill amount.
	Outstanding decimal.Decimal `json:"outstanding"`
}

type GetPaymentLinkRequest struct {
	ReceiptID string `json:"receipt_id"`
}

type GetPaymentLinkResponse struct {
	URL       string          `json:"url"`
	Phone     string          `json:"phone,omitempty"`
	Message   string          `json:"message"`
	ShareText string          `json:"share_text"`
	Amount    decimal.Decimal `json:"amount"`
}

type MemberBalance struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name,omitempty"`
	NetBalance  decimal.Decimal `json:"net_balance"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	TotalOwed   decimal.Decimal `json:"total_owed"`
}

type Debt struct {
	FromUserID string          `json:"from_user_id"`
	ToUserID   string          `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type GetBalancesRequest struct{}

type GetBalancesResponse struct {
	Balances []*MemberBalance `json:"balances"`
	Debts    []*Debt          `json:"debts"`
}
