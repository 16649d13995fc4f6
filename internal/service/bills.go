package service

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/share"
	"github.com/mmynk/receiptsplit/pkg/api"
)

// ListMyBills returns the receipts on which the caller owes the lender money.
func (s *ReceiptService) ListMyBills(ctx context.Context, req *connect.Request[api.ListMyBillsRequest]) (*connect.Response[api.ListMyBillsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	receipts, err := s.store.ListReceiptsByUser(ctx, userID)
	if err != nil {
		return nil, storeError(s.logger, "ListReceiptsByUser", err)
	}

	lenderIDs := make([]string, 0, len(receipts))
	for _, r := range receipts {
		if r.LenderID != userID {
			lenderIDs = append(lenderIDs, r.LenderID)
		}
	}
	lenders, err := s.store.GetUsersByIDs(ctx, dedupe(lenderIDs))
	if err != nil {
		return nil, storeError(s.logger, "GetUsersByIDs", err)
	}

	resp := &api.ListMyBillsResponse{Bills: []*api.MyBill{}, Outstanding: decimal.Zero}
	for _, r := range receipts {
		if r.LenderID == userID {
			continue
		}
		splits, err := s.calculate(r)
		if err != nil {
			s.logger.Error("CalculateSplit failed", "receipt_id", r.ID, "error", err)
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		mine := splits[userID]
		if mine == nil || !mine.Total.IsPositive() {
			continue
		}
		resp.Bills = append(resp.Bills, &api.MyBill{
			ReceiptID:   r.ID,
			ReceiptName: r.Name,
			Lender:      toAPIUser(lenders[r.LenderID]),
			Amount:      mine.Total,
			Items:       toAPIPersonItems(mine.Items),
			CreatedAt:   r.CreatedAt,
		})
		resp.Outstanding = resp.Outstanding.Add(mine.Total)
	}
	return connect.NewResponse(resp), nil
}

// GetPaymentLink builds a WhatsApp link that opens a chat with the lender,
// prefilled with a payment note for the caller's share of a receipt.
func (s *ReceiptService) GetPaymentLink(ctx context.Context, req *connect.Request[api.GetPaymentLinkRequest]) (*connect.Response[api.GetPaymentLinkResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	receipt, err := s.loadReceipt(ctx, userID, req.Msg.ReceiptID)
	if err != nil {
		return nil, err
	}
	if receipt.LenderID == userID {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("the lender does not owe on their own receipt"))
	}

	splits, err := s.calculate(receipt)
	if err != nil {
		s.logger.Error("CalculateSplit failed", "receipt_id", receipt.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	mine := splits[userID]

	users, err := s.store.GetUsersByIDs(ctx, []string{receipt.LenderID, userID})
	if err != nil {
		return nil, storeError(s.logger, "GetUsersByIDs", err)
	}
	lender := users[receipt.LenderID]
	if lender == nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("lender %s not found", receipt.LenderID))
	}
	personName := userID
	if me := users[userID]; me != nil {
		personName = me.DisplayName
	}

	phone, _ := share.FormatPhoneNumber(lender.Phone, s.countryCode)
	message := share.BillMessage(lender.DisplayName, receipt.Name, mine.Total, s.currency)

	resp := &api.GetPaymentLinkResponse{
		URL:       share.WhatsAppURL(phone, message),
		Phone:     phone,
		Message:   message,
		ShareText: share.ShareText(receipt.Name, personName, shareLines(mine), mine.Total, s.currency),
		Amount:    mine.Total,
	}
	s.logger.Info("Payment link created", "receipt_id", receipt.ID, "user_id", userID, "has_phone", phone != "")
	return connect.NewResponse(resp), nil
}

func shareLines(split *calculator.PersonSplit) []share.Line {
	lines := make([]share.Line, 0, len(split.Items)+1)
	for _, it := range split.Items {
		lines = append(lines, share.Line{Name: it.Name, Portion: it.Portion, Amount: it.Amount})
	}
	if !split.Tax.IsZero() {
		lines = append(lines, share.Line{Name: "Tax & service", Amount: split.Tax})
	}
	return lines
}

// GetBalances returns net balances across every receipt the caller is part of,
// with a simplified list of who pays whom.
func (s *ReceiptService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	receipts, err := s.store.ListReceiptsByUser(ctx, userID)
	if err != nil {
		return nil, storeError(s.logger, "ListReceiptsByUser", err)
	}

	forBalance := make([]calculator.ReceiptForBalance, len(receipts))
	for i, r := range receipts {
		forBalance[i] = calculator.ReceiptForBalance{
			Total:        r.Total,
			LenderID:     r.LenderID,
			Items:        calculatorItems(r),
			Participants: r.ParticipantIDs,
		}
	}

	balances, debts, err := calculator.CalculateBalances(forBalance, s.places)
	if err != nil {
		s.logger.Error("CalculateBalances failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	ids := make([]string, len(balances))
	for i, b := range balances {
		ids[i] = b.MemberID
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, storeError(s.logger, "GetUsersByIDs", err)
	}

	resp := &api.GetBalancesResponse{
		Balances: make([]*api.MemberBalance, len(balances)),
		Debts:    make([]*api.Debt, len(debts)),
	}
	for i, b := range balances {
		resp.Balances[i] = &api.MemberBalance{
			UserID:     b.MemberID,
			NetBalance: b.NetBalance,
			TotalPaid:  b.TotalPaid,
			TotalOwed:  b.TotalOwed,
		}
		if u := users[b.MemberID]; u != nil {
			resp.Balances[i].DisplayName = u.DisplayName
		}
	}
	for i, d := range debts {
		resp.Debts[i] = &api.Debt{FromUserID: d.From, ToUserID: d.To, Amount: d.Amount}
	}
	return connect.NewResponse(resp), nil
}
