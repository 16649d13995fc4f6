package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/allocation"
	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/middleware"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/share"
	"github.com/mmynk/receiptsplit/internal/storage"
	"github.com/mmynk/receiptsplit/pkg/api"
)

// ReceiptOptions configures a ReceiptService. Zero values fall back to IDR
// amounts and the Indonesian phone prefix.
type ReceiptOptions struct {
	Currency    string
	CountryCode string
	// Places is the number of decimals amounts are rounded to.
	Places  int32
	Logger  *slog.Logger
	Metrics *middleware.Metrics
}

// ReceiptService implements the Connect ReceiptService.
type ReceiptService struct {
	store       storage.Store
	logger      *slog.Logger
	metrics     *middleware.Metrics
	currency    string
	countryCode string
	places      int32
}

// NewReceiptService creates a new ReceiptService with the given storage backend.
func NewReceiptService(store storage.Store, opts ReceiptOptions) *ReceiptService {
	s := &ReceiptService{
		store:       store,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		currency:    opts.Currency,
		countryCode: opts.CountryCode,
		places:      opts.Places,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.currency == "" {
		s.currency = "IDR"
		s.places = share.Places(s.currency)
	}
	if s.countryCode == "" {
		s.countryCode = share.DefaultCountryCode
	}
	return s
}

// receiptDraft is the validated content of a create or update request.
type receiptDraft struct {
	name         string
	participants []string
	mode         models.SplitMode
	items        []*api.Item
	total        decimal.Decimal
}

// dedupe drops empty and repeated IDs, keeping first occurrences in order.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// sameMembers reports whether a and b hold the same IDs in any order.
func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, id := range a {
		if !slices.Contains(b, id) {
			return false
		}
	}
	return true
}

// buildReceipt validates a draft and turns it into a receipt lent by lenderID.
// previous, when set, supplies the committed splits that survive an update.
func (s *ReceiptService) buildReceipt(ctx context.Context, lenderID string, d receiptDraft, previous *models.Receipt) (*models.Receipt, error) {
	participants := dedupe(d.participants)
	if !slices.Contains(participants, lenderID) {
		participants = append([]string{lenderID}, participants...)
	}

	users, err := s.store.GetUsersByIDs(ctx, participants)
	if err != nil {
		return nil, storeError(s.logger, "GetUsersByIDs", err)
	}
	for _, id := range participants {
		if users[id] == nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("unknown participant %q", id))
		}
	}

	mode := d.mode
	switch mode {
	case "":
		mode = models.SplitModeEqual
	case models.SplitModeEqual, models.SplitModePerItem:
	default:
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("split_mode must be %q or %q", models.SplitModeEqual, models.SplitModePerItem))
	}

	if d.total.IsNegative() {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("total must not be negative"))
	}

	receipt := &models.Receipt{
		Name:           strings.TrimSpace(d.name),
		LenderID:       lenderID,
		ParticipantIDs: participants,
		SplitMode:      mode,
		Total:          d.total,
		Items:          make([]models.Item, 0, len(d.items)),
	}

	for i, in := range d.items {
		if in == nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("item %d is empty", i+1))
		}
		item, err := s.buildItem(in, receipt, previous)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("item %d: %w", i+1, err))
		}
		receipt.Items = append(receipt.Items, item)
	}
	return receipt, nil
}

func (s *ReceiptService) buildItem(in *api.Item, receipt *models.Receipt, previous *models.Receipt) (models.Item, error) {
	item := models.Item{
		Name:      strings.TrimSpace(in.Name),
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
	}
	if item.Name == "" {
		return item, fmt.Errorf("name is required")
	}
	if item.Quantity <= 0 {
		return item, allocation.ErrNonPositiveQuantity
	}
	if item.UnitPrice.IsNegative() {
		return item, fmt.Errorf("unit price must not be negative")
	}

	if receipt.SplitMode == models.SplitModeEqual {
		item.Assignees = slices.Clone(receipt.ParticipantIDs)
	} else {
		item.Assignees = dedupe(in.AssigneeIDs)
		for _, id := range item.Assignees {
			if !receipt.IsParticipant(id) {
				return item, fmt.Errorf("assignee %q is not a participant", id)
			}
		}
	}

	// Keep the item ID only when it belongs to the receipt being updated.
	var old *models.Item
	if previous != nil && in.ID != "" {
		if found, ok := previous.FindItem(in.ID); ok {
			old = found
			item.ID = found.ID
		}
	}

	if len(in.CustomSplits) > 0 {
		members := item.Assignees
		if len(members) == 0 {
			members = receipt.ParticipantIDs
		}
		if err := checkMembership(in.CustomSplits, members); err != nil {
			return item, err
		}
		committed, err := allocation.CommitSplit(in.CustomSplits, item.Allocation(), nil)
		if err != nil {
			return item, err
		}
		item.CustomSplits = committed
		item.Assignees = splitParticipants(committed)
		return item, nil
	}

	// A committed split survives an update only while the item's quantity and
	// assignee set are unchanged.
	if old != nil && len(old.CustomSplits) > 0 && old.Quantity == item.Quantity && sameMembers(old.Assignees, item.Assignees) {
		item.CustomSplits = old.CustomSplits
		item.Assignees = old.Assignees
	}
	return item, nil
}

// checkMembership rejects splits naming someone outside members, listing a
// participant twice or carrying a negative portion.
func checkMembership(assignments []allocation.PortionAssignment, members []string) error {
	seen := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		if !slices.Contains(members, a.ParticipantID) {
			return fmt.Errorf("%q is not assigned to this item", a.ParticipantID)
		}
		if seen[a.ParticipantID] {
			return fmt.Errorf("%q appears more than once", a.ParticipantID)
		}
		if a.Portion < 0 {
			return fmt.Errorf("portion for %q must not be negative", a.ParticipantID)
		}
		seen[a.ParticipantID] = true
	}
	return nil
}

func splitParticipants(assignments []allocation.PortionAssignment) []string {
	ids := make([]string, len(assignments))
	for i, a := range assignments {
		ids[i] = a.ParticipantID
	}
	return ids
}

// calculate computes every participant's bill for a receipt.
func (s *ReceiptService) calculate(r *models.Receipt) (map[string]*calculator.PersonSplit, error) {
	return calculator.CalculateSplit(calculatorItems(r), r.Total, r.ParticipantIDs, s.places)
}

// billSplits builds the per-participant bills of a receipt, in participant order.
func (s *ReceiptService) billSplits(ctx context.Context, r *models.Receipt) ([]*api.BillSplit, error) {
	splits, err := s.calculate(r)
	if err != nil {
		s.logger.Error("CalculateSplit failed", "receipt_id", r.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	users, err := s.store.GetUsersByIDs(ctx, r.ParticipantIDs)
	if err != nil {
		return nil, storeError(s.logger, "GetUsersByIDs", err)
	}

	out := make([]*api.BillSplit, 0, len(r.ParticipantIDs))
	for _, id := range r.ParticipantIDs {
		split := splits[id]
		bill := &api.BillSplit{
			ParticipantID: id,
			Subtotal:      split.Subtotal,
			Tax:           split.Tax,
			Amount:        split.Total,
			Items:         toAPIPersonItems(split.Items),
		}
		if u := users[id]; u != nil {
			bill.ParticipantName = u.DisplayName
		}
		out = append(out, bill)
	}
	return out, nil
}

// loadReceipt fetches a receipt the caller may see.
func (s *ReceiptService) loadReceipt(ctx context.Context, userID, receiptID string) (*models.Receipt, error) {
	if receiptID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("receipt_id required"))
	}
	receipt, err := s.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, storeError(s.logger, "GetReceipt", err)
	}
	if !receipt.IsParticipant(userID) {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you are not a participant of this receipt"))
	}
	return receipt, nil
}

// loadOwnReceipt fetches a receipt the caller lent for.
func (s *ReceiptService) loadOwnReceipt(ctx context.Context, userID, receiptID string) (*models.Receipt, error) {
	receipt, err := s.loadReceipt(ctx, userID, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.LenderID != userID {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("only the lender can change this receipt"))
	}
	return receipt, nil
}

// CreateReceipt saves a new receipt lent by the caller.
func (s *ReceiptService) CreateReceipt(ctx context.Context, req *connect.Request[api.CreateReceiptRequest]) (*connect.Response[api.CreateReceiptResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := s.buildReceipt(ctx, userID, receiptDraft{
		name:         req.Msg.Name,
		participants: req.Msg.ParticipantIDs,
		mode:         models.SplitMode(req.Msg.SplitMode),
		items:        req.Msg.Items,
		total:        req.Msg.Total,
	}, nil)
	if err != nil {
		s.logger.Warn("CreateReceipt validation failed", "user_id", userID, "error", err)
		return nil, err
	}

	if err := s.store.CreateReceipt(ctx, receipt); err != nil {
		return nil, storeError(s.logger, "CreateReceipt", err)
	}
	s.logger.Info("Receipt created", "receipt_id", receipt.ID, "lender_id", userID, "items", len(receipt.Items))

	splits, err := s.billSplits(ctx, receipt)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.CreateReceiptResponse{
		Receipt: toAPIReceipt(receipt),
		Splits:  splits,
	}), nil
}

// GetReceipt returns a receipt and every participant's bill.
func (s *ReceiptService) GetReceipt(ctx context.Context, req *connect.Request[api.GetReceiptRequest]) (*connect.Response[api.GetReceiptResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	receipt, err := s.loadReceipt(ctx, userID, req.Msg.ReceiptID)
	if err != nil {
		return nil, err
	}

	splits, err := s.billSplits(ctx, receipt)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GetReceiptResponse{
		Receipt: toAPIReceipt(receipt),
		Splits:  splits,
	}), nil
}

// ListReceipts returns the receipts the caller lent for or takes part in.
func (s *ReceiptService) ListReceipts(ctx context.Context, req *connect.Request[api.ListReceiptsRequest]) (*connect.Response[api.ListReceiptsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	receipts, err := s.store.ListReceiptsByUser(ctx, userID)
	if err != nil {
		return nil, storeError(s.logger, "ListReceiptsByUser", err)
	}

	summaries := make([]*api.ReceiptSummary, len(receipts))
	for i, r := range receipts {
		summaries[i] = &api.ReceiptSummary{
			ID:               r.ID,
			Name:             r.Name,
			LenderID:         r.LenderID,
			IsLender:         r.LenderID == userID,
			Total:            r.EffectiveTotal(),
			ParticipantCount: int32(len(r.ParticipantIDs)),
			CreatedAt:        r.CreatedAt,
		}
	}
	return connect.NewResponse(&api.ListReceiptsResponse{Receipts: summaries}), nil
}

// UpdateReceipt replaces a receipt's content. Only the lender may update it.
func (s *ReceiptService) UpdateReceipt(ctx context.Context, req *connect.Request[api.UpdateReceiptRequest]) (*connect.Response[api.UpdateReceiptResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.loadOwnReceipt(ctx, userID, req.Msg.ReceiptID)
	if err != nil {
		return nil, err
	}

	receipt, err := s.buildReceipt(ctx, userID, receiptDraft{
		name:         req.Msg.Name,
		participants: req.Msg.ParticipantIDs,
		mode:         models.SplitMode(req.Msg.SplitMode),
		items:        req.Msg.Items,
		total:        req.Msg.Total,
	}, existing)
	if err != nil {
		s.logger.Warn("UpdateReceipt validation failed", "receipt_id", existing.ID, "error", err)
		return nil, err
	}
	receipt.ID = existing.ID
	receipt.CreatedAt = existing.CreatedAt
	if receipt.Name == "" {
		receipt.Name = existing.Name
	}

	if err := s.store.UpdateReceipt(ctx, receipt); err != nil {
		return nil, storeError(s.logger, "UpdateReceipt", err)
	}
	s.logger.Info("Receipt updated", "receipt_id", receipt.ID)

	splits, err := s.billSplits(ctx, receipt)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.UpdateReceiptResponse{
		Receipt: toAPIReceipt(receipt),
		Splits:  splits,
	}), nil
}

// DeleteReceipt removes a receipt. Only the lender may delete it.
func (s *ReceiptService) DeleteReceipt(ctx context.Context, req *connect.Request[api.DeleteReceiptRequest]) (*connect.Response[api.DeleteReceiptResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	receipt, err := s.loadOwnReceipt(ctx, userID, req.Msg.ReceiptID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteReceipt(ctx, receipt.ID); err != nil {
		return nil, storeError(s.logger, "DeleteReceipt", err)
	}
	s.logger.Info("Receipt deleted", "receipt_id", receipt.ID)
	return connect.NewResponse(&api.DeleteReceiptResponse{}), nil
}

// isInvalidSplit reports whether err is a split validation failure.
func isInvalidSplit(err error) bool {
	return errors.Is(err, allocation.ErrInvalidSplit)
}
