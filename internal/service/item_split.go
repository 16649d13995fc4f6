package service

import (
	"context"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/receiptsplit/internal/allocation"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/pkg/api"
)

// Split commit outcomes reported to metrics.
const (
	commitSaved   = "saved"
	commitInvalid = "invalid"
	commitFailed  = "failed"
)

// findItem returns the receipt item or a NotFound error.
func findItem(receipt *models.Receipt, itemID string) (*models.Item, error) {
	if itemID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("item_id required"))
	}
	item, ok := receipt.FindItem(itemID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("item %s not found in receipt %s", itemID, receipt.ID))
	}
	return item, nil
}

// splitFeed builds the editor view of a working assignment list: running
// total, validity and each participant's rounded cost.
func (s *ReceiptService) splitFeed(ctx context.Context, userID string, item *models.Item, assignments []allocation.PortionAssignment) (*api.ItemSplitResponse, error) {
	users, err := s.store.GetUsersByIDs(ctx, splitParticipants(assignments))
	if err != nil {
		return nil, storeError(s.logger, "GetUsersByIDs", err)
	}

	alloc := item.Allocation()
	costs := allocation.AllocateCosts(assignments, alloc, s.places)
	shares := make([]*api.PortionShare, len(costs))
	for i, c := range costs {
		shares[i] = &api.PortionShare{
			ParticipantID:    c.ParticipantID,
			IsRequestingUser: c.ParticipantID == userID,
			Portion:          c.Portion,
			Cost:             c.Amount,
		}
		if u := users[c.ParticipantID]; u != nil {
			shares[i].DisplayName = u.DisplayName
		}
	}

	return &api.ItemSplitResponse{
		ItemID:        item.ID,
		ItemName:      item.Name,
		Quantity:      item.Quantity,
		ItemTotal:     item.Total(),
		Assignments:   assignments,
		TotalPortions: allocation.TotalPortions(assignments),
		Valid:         allocation.IsValidSplit(assignments, alloc),
		Shares:        shares,
	}, nil
}

// StartItemSplit opens a custom split editing session for an item. A committed
// split is resumed; otherwise the quantity is spread evenly over the item's
// assignees, the caller first.
func (s *ReceiptService) StartItemSplit(ctx context.Context, req *connect.Request[api.StartItemSplitRequest]) (*connect.Response[api.ItemSplitResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	receipt, err := s.loadReceipt(ctx, userID, req.Msg.ReceiptID)
	if err != nil {
		return nil, err
	}
	item, err := findItem(receipt, req.Msg.ItemID)
	if err != nil {
		return nil, err
	}

	users, err := s.store.GetUsersByIDs(ctx, receipt.ParticipantIDs)
	if err != nil {
		return nil, storeError(s.logger, "GetUsersByIDs", err)
	}
	participants := make([]allocation.Participant, len(receipt.ParticipantIDs))
	for i, id := range receipt.ParticipantIDs {
		participants[i] = allocation.Participant{ID: id}
		if u := users[id]; u != nil {
			participants[i].DisplayName = u.DisplayName
		}
	}

	alloc := item.Allocation()
	eligible := allocation.OrderEligible(alloc, participants, userID)
	assignments, err := allocation.InitializeSplit(alloc, eligible)
	if err != nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, err)
	}

	resp, err := s.splitFeed(ctx, userID, item, assignments)
	if err != nil {
		return nil, err
	}
	resp.Resumed = len(item.CustomSplits) > 0
	s.logger.Debug("Item split started", "receipt_id", receipt.ID, "item_id", item.ID, "resumed", resp.Resumed)
	return connect.NewResponse(resp), nil
}

// AdjustItemSplit applies one increment or decrement to a working assignment
// list. The client owns the list; nothing is persisted.
func (s *ReceiptService) AdjustItemSplit(ctx context.Context, req *connect.Request[api.AdjustItemSplitRequest]) (*connect.Response[api.ItemSplitResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	receipt, err := s.loadReceipt(ctx, userID, req.Msg.ReceiptID)
	if err != nil {
		return nil, err
	}
	item, err := findItem(receipt, req.Msg.ItemID)
	if err != nil {
		return nil, err
	}
	if len(req.Msg.Assignments) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("assignments required"))
	}

	adjusted := allocation.AdjustPortion(req.Msg.Assignments, req.Msg.ParticipantID, req.Msg.Delta)
	resp, err := s.splitFeed(ctx, userID, item, adjusted)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// SaveItemSplit commits a custom split for an item. The portions must add up
// to the item quantity and only name the item's assignees. Only the lender
// may save.
func (s *ReceiptService) SaveItemSplit(ctx context.Context, req *connect.Request[api.SaveItemSplitRequest]) (*connect.Response[api.SaveItemSplitResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	receipt, err := s.loadOwnReceipt(ctx, userID, req.Msg.ReceiptID)
	if err != nil {
		return nil, err
	}
	item, err := findItem(receipt, req.Msg.ItemID)
	if err != nil {
		return nil, err
	}

	if err := checkMembership(req.Msg.Assignments, item.Assignees); err != nil {
		s.metrics.RecordSplitCommit(commitInvalid)
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	save := func(itemID string, assignments []allocation.PortionAssignment) error {
		return s.store.SaveItemSplit(ctx, receipt.ID, itemID, assignments)
	}
	committed, err := allocation.CommitSplit(req.Msg.Assignments, item.Allocation(), save)
	if err != nil {
		if isInvalidSplit(err) {
			s.metrics.RecordSplitCommit(commitInvalid)
			s.logger.Warn("Split rejected", "receipt_id", receipt.ID, "item_id", item.ID, "error", err)
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		s.metrics.RecordSplitCommit(commitFailed)
		return nil, storeError(s.logger, "SaveItemSplit", err)
	}
	s.metrics.RecordSplitCommit(commitSaved)
	s.logger.Info("Split saved", "receipt_id", receipt.ID, "item_id", item.ID, "participants", len(committed))

	item.CustomSplits = committed
	item.Assignees = splitParticipants(committed)

	splits, err := s.billSplits(ctx, receipt)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.SaveItemSplitResponse{
		Receipt: toAPIReceipt(receipt),
		Splits:  splits,
	}), nil
}
