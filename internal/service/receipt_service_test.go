package service

import (
	"context"
	"slices"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/receiptsplit/pkg/api"
)

// createDinner creates a receipt lent by sari: 6 sate shared by three people,
// 2 iced teas for adi, and 4000 of tax on a 40000 subtotal.
func createDinner(t *testing.T, client api.ReceiptServiceClient) *api.CreateReceiptResponse {
	t.Helper()
	resp, err := client.CreateReceipt(context.Background(), as("sari", &api.CreateReceiptRequest{
		Name:           "Warung Sate",
		ParticipantIDs: []string{"budi", "adi"},
		SplitMode:      "per_item",
		Items: []*api.Item{
			{Name: "Sate Ayam", Quantity: 6, UnitPrice: dec("5000"), AssigneeIDs: []string{"sari", "budi", "adi"}},
			{Name: "Es Teh", Quantity: 2, UnitPrice: dec("5000"), AssigneeIDs: []string{"adi"}},
		},
		Total: dec("44000"),
	}))
	if err != nil {
		t.Fatalf("CreateReceipt failed: %v", err)
	}
	return resp.Msg
}

func TestCreateReceipt_PerItemWithTax(t *testing.T) {
	client, _ := setupTestServer(t)
	created := createDinner(t, client)

	receipt := created.Receipt
	if receipt.ID == "" || receipt.LenderID != "sari" {
		t.Fatalf("unexpected receipt header: %+v", receipt)
	}
	if strings.Join(receipt.ParticipantIDs, ",") != "sari,budi,adi" {
		t.Errorf("lender should be added first, got %v", receipt.ParticipantIDs)
	}
	assertAmount(t, "subtotal", receipt.Subtotal, "40000")
	assertAmount(t, "total", receipt.Total, "44000")

	// Sate: 10000 each. Tax 4000 shared 1:1:2 by subtotal.
	sari := splitFor(t, created.Splits, "sari")
	assertAmount(t, "sari subtotal", sari.Subtotal, "10000")
	assertAmount(t, "sari tax", sari.Tax, "1000")
	assertAmount(t, "sari amount", sari.Amount, "11000")
	if sari.ParticipantName != "Sari" {
		t.Errorf("expected participant name Sari, got %q", sari.ParticipantName)
	}

	adi := splitFor(t, created.Splits, "adi")
	assertAmount(t, "adi subtotal", adi.Subtotal, "20000")
	assertAmount(t, "adi tax", adi.Tax, "2000")
	assertAmount(t, "adi amount", adi.Amount, "22000")
	if len(adi.Items) != 2 {
		t.Errorf("adi items: expected 2, got %d", len(adi.Items))
	}

	budi := splitFor(t, created.Splits, "budi")
	assertAmount(t, "budi amount", budi.Amount, "11000")
}

func TestCreateReceipt_EqualMode(t *testing.T) {
	client, _ := setupTestServer(t)

	resp, err := client.CreateReceipt(context.Background(), as("sari", &api.CreateReceiptRequest{
		ParticipantIDs: []string{"budi", "adi"},
		SplitMode:      "equal",
		Items: []*api.Item{
			// Assignees are ignored in equal mode.
			{Name: "Nasi Goreng", Quantity: 3, UnitPrice: dec("10000"), AssigneeIDs: []string{"budi"}},
		},
	}))
	if err != nil {
		t.Fatalf("CreateReceipt failed: %v", err)
	}

	if resp.Msg.Receipt.Name != "Nasi Goreng" {
		t.Errorf("expected generated name, got %q", resp.Msg.Receipt.Name)
	}
	item := resp.Msg.Receipt.Items[0]
	if len(item.AssigneeIDs) != 3 {
		t.Errorf("expected every participant assigned, got %v", item.AssigneeIDs)
	}
	for _, id := range []string{"sari", "budi", "adi"} {
		assertAmount(t, id, splitFor(t, resp.Msg.Splits, id).Amount, "10000")
	}
}

func TestCreateReceipt_WithCustomSplit(t *testing.T) {
	client, _ := setupTestServer(t)

	resp, err := client.CreateReceipt(context.Background(), as("sari", &api.CreateReceiptRequest{
		ParticipantIDs: []string{"budi", "adi"},
		SplitMode:      "per_item",
		Items: []*api.Item{{
			Name:         "Martabak",
			Quantity:     3,
			UnitPrice:    dec("1000"),
			AssigneeIDs:  []string{"budi", "adi"},
			CustomSplits: []api.PortionAssignment{{ParticipantID: "budi", Portion: 1}, {ParticipantID: "adi", Portion: 2}},
		}},
	}))
	if err != nil {
		t.Fatalf("CreateReceipt failed: %v", err)
	}

	assertAmount(t, "budi", splitFor(t, resp.Msg.Splits, "budi").Amount, "1000")
	assertAmount(t, "adi", splitFor(t, resp.Msg.Splits, "adi").Amount, "2000")
	assertAmount(t, "sari", splitFor(t, resp.Msg.Splits, "sari").Amount, "0")
}

func TestCreateReceipt_Validation(t *testing.T) {
	client, _ := setupTestServer(t)

	item := func(mod func(*api.Item)) []*api.Item {
		it := &api.Item{Name: "Kopi", Quantity: 2, UnitPrice: dec("3000"), AssigneeIDs: []string{"budi"}}
		if mod != nil {
			mod(it)
		}
		return []*api.Item{it}
	}

	tests := []struct {
		name string
		req  *api.CreateReceiptRequest
	}{
		{"zero quantity", &api.CreateReceiptRequest{ParticipantIDs: []string{"budi"}, SplitMode: "per_item",
			Items: item(func(it *api.Item) { it.Quantity = 0 })}},
		{"negative price", &api.CreateReceiptRequest{ParticipantIDs: []string{"budi"}, SplitMode: "per_item",
			Items: item(func(it *api.Item) { it.UnitPrice = dec("-1") })}},
		{"missing name", &api.CreateReceiptRequest{ParticipantIDs: []string{"budi"}, SplitMode: "per_item",
			Items: item(func(it *api.Item) { it.Name = "  " })}},
		{"unknown participant", &api.CreateReceiptRequest{ParticipantIDs: []string{"ghost"}, SplitMode: "per_item",
			Items: item(nil)}},
		{"assignee not a participant", &api.CreateReceiptRequest{ParticipantIDs: []string{"adi"}, SplitMode: "per_item",
			Items: item(nil)}},
		{"bad split mode", &api.CreateReceiptRequest{ParticipantIDs: []string{"budi"}, SplitMode: "random",
			Items: item(nil)}},
		{"negative total", &api.CreateReceiptRequest{ParticipantIDs: []string{"budi"}, SplitMode: "per_item",
			Items: item(nil), Total: dec("-5")}},
		{"custom split does not sum", &api.CreateReceiptRequest{ParticipantIDs: []string{"budi"}, SplitMode: "per_item",
			Items: item(func(it *api.Item) {
				it.CustomSplits = []api.PortionAssignment{{ParticipantID: "budi", Portion: 1}}
			})}},
		{"custom split names outsider", &api.CreateReceiptRequest{ParticipantIDs: []string{"budi"}, SplitMode: "per_item",
			Items: item(func(it *api.Item) {
				it.CustomSplits = []api.PortionAssignment{{ParticipantID: "sari", Portion: 2}}
			})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreateReceipt(context.Background(), as("sari", tt.req))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := client.CreateReceipt(context.Background(), as("", &api.CreateReceiptRequest{Items: item(nil)}))
		assertCode(t, err, connect.CodeUnauthenticated)
	})
}

func TestReceiptAccess(t *testing.T) {
	client, _ := setupTestServer(t)
	created := createDinner(t, client)
	ctx := context.Background()
	id := created.Receipt.ID

	got, err := client.GetReceipt(ctx, as("budi", &api.GetReceiptRequest{ReceiptID: id}))
	if err != nil {
		t.Fatalf("GetReceipt failed: %v", err)
	}
	if got.Msg.Receipt.Name != "Warung Sate" || len(got.Msg.Splits) != 3 {
		t.Errorf("unexpected receipt: %+v", got.Msg.Receipt)
	}

	_, err = client.GetReceipt(ctx, as("stranger", &api.GetReceiptRequest{ReceiptID: id}))
	assertCode(t, err, connect.CodePermissionDenied)

	_, err = client.GetReceipt(ctx, as("budi", &api.GetReceiptRequest{ReceiptID: "missing"}))
	assertCode(t, err, connect.CodeNotFound)

	_, err = client.GetReceipt(ctx, as("budi", &api.GetReceiptRequest{}))
	assertCode(t, err, connect.CodeInvalidArgument)

	_, err = client.UpdateReceipt(ctx, as("budi", &api.UpdateReceiptRequest{ReceiptID: id, SplitMode: "equal"}))
	assertCode(t, err, connect.CodePermissionDenied)

	_, err = client.DeleteReceipt(ctx, as("budi", &api.DeleteReceiptRequest{ReceiptID: id}))
	assertCode(t, err, connect.CodePermissionDenied)

	list, err := client.ListReceipts(ctx, as("budi", &api.ListReceiptsRequest{}))
	if err != nil {
		t.Fatalf("ListReceipts failed: %v", err)
	}
	if len(list.Msg.Receipts) != 1 || list.Msg.Receipts[0].IsLender || list.Msg.Receipts[0].ParticipantCount != 3 {
		t.Errorf("unexpected summaries for budi: %+v", list.Msg.Receipts)
	}
	assertAmount(t, "summary total", list.Msg.Receipts[0].Total, "44000")

	list, err = client.ListReceipts(ctx, as("stranger", &api.ListReceiptsRequest{}))
	if err != nil {
		t.Fatalf("ListReceipts failed: %v", err)
	}
	if len(list.Msg.Receipts) != 0 {
		t.Errorf("stranger should see no receipts, got %d", len(list.Msg.Receipts))
	}

	if _, err := client.DeleteReceipt(ctx, as("sari", &api.DeleteReceiptRequest{ReceiptID: id})); err != nil {
		t.Fatalf("DeleteReceipt failed: %v", err)
	}
	_, err = client.GetReceipt(ctx, as("sari", &api.GetReceiptRequest{ReceiptID: id}))
	assertCode(t, err, connect.CodeNotFound)
}

// createSateForThree creates a receipt with 10 sate shared by all three
// participants and no tax.
func createSateForThree(t *testing.T, client api.ReceiptServiceClient) (receiptID, itemID string) {
	t.Helper()
	resp, err := client.CreateReceipt(context.Background(), as("sari", &api.CreateReceiptRequest{
		Name:           "Sate",
		ParticipantIDs: []string{"budi", "adi"},
		SplitMode:      "per_item",
		Items: []*api.Item{
			{Name: "Sate Ayam", Quantity: 10, UnitPrice: dec("5000"), AssigneeIDs: []string{"budi", "sari", "adi"}},
		},
	}))
	if err != nil {
		t.Fatalf("CreateReceipt failed: %v", err)
	}
	return resp.Msg.Receipt.ID, resp.Msg.Receipt.Items[0].ID
}

func TestItemSplitSession(t *testing.T) {
	client, reg := setupTestServer(t)
	ctx := context.Background()
	receiptID, itemID := createSateForThree(t, client)

	start, err := client.StartItemSplit(ctx, as("sari", &api.StartItemSplitRequest{ReceiptID: receiptID, ItemID: itemID}))
	if err != nil {
		t.Fatalf("StartItemSplit failed: %v", err)
	}
	// Caller first, remainder to the first participant.
	want := []api.PortionAssignment{{ParticipantID: "sari", Portion: 4}, {ParticipantID: "budi", Portion: 3}, {ParticipantID: "adi", Portion: 3}}
	if !slices.Equal(start.Msg.Assignments, want) {
		t.Fatalf("initial assignments = %v, want %v", start.Msg.Assignments, want)
	}
	if !start.Msg.Valid || start.Msg.Resumed || start.Msg.TotalPortions != 10 {
		t.Errorf("unexpected feed: valid=%v resumed=%v total=%d", start.Msg.Valid, start.Msg.Resumed, start.Msg.TotalPortions)
	}
	assertAmount(t, "item total", start.Msg.ItemTotal, "50000")
	if !start.Msg.Shares[0].IsRequestingUser || start.Msg.Shares[0].DisplayName != "Sari" {
		t.Errorf("first share should be the caller: %+v", start.Msg.Shares[0])
	}
	assertAmount(t, "sari cost", start.Msg.Shares[0].Cost, "20000")
	assertAmount(t, "budi cost", start.Msg.Shares[1].Cost, "15000")

	// Decrement below zero clamps.
	adj, err := client.AdjustItemSplit(ctx, as("sari", &api.AdjustItemSplitRequest{
		ReceiptID: receiptID, ItemID: itemID, Assignments: start.Msg.Assignments, ParticipantID: "sari", Delta: -5,
	}))
	if err != nil {
		t.Fatalf("AdjustItemSplit failed: %v", err)
	}
	if adj.Msg.Assignments[0].Portion != 0 || adj.Msg.TotalPortions != 6 || adj.Msg.Valid {
		t.Errorf("after decrement: %+v", adj.Msg)
	}

	adj, err = client.AdjustItemSplit(ctx, as("sari", &api.AdjustItemSplitRequest{
		ReceiptID: receiptID, ItemID: itemID, Assignments: adj.Msg.Assignments, ParticipantID: "adi", Delta: 4,
	}))
	if err != nil {
		t.Fatalf("AdjustItemSplit failed: %v", err)
	}
	if !adj.Msg.Valid || adj.Msg.Assignments[2].Portion != 7 {
		t.Errorf("after increment: %+v", adj.Msg)
	}

	// Only the lender commits.
	_, err = client.SaveItemSplit(ctx, as("budi", &api.SaveItemSplitRequest{ReceiptID: receiptID, ItemID: itemID, Assignments: adj.Msg.Assignments}))
	assertCode(t, err, connect.CodePermissionDenied)

	saved, err := client.SaveItemSplit(ctx, as("sari", &api.SaveItemSplitRequest{ReceiptID: receiptID, ItemID: itemID, Assignments: adj.Msg.Assignments}))
	if err != nil {
		t.Fatalf("SaveItemSplit failed: %v", err)
	}
	assertAmount(t, "sari", splitFor(t, saved.Msg.Splits, "sari").Amount, "0")
	assertAmount(t, "budi", splitFor(t, saved.Msg.Splits, "budi").Amount, "15000")
	assertAmount(t, "adi", splitFor(t, saved.Msg.Splits, "adi").Amount, "35000")

	// Reopening resumes the committed split.
	again, err := client.StartItemSplit(ctx, as("sari", &api.StartItemSplitRequest{ReceiptID: receiptID, ItemID: itemID}))
	if err != nil {
		t.Fatalf("StartItemSplit failed: %v", err)
	}
	if !again.Msg.Resumed || !slices.Equal(again.Msg.Assignments, adj.Msg.Assignments) {
		t.Errorf("expected resumed split %v, got %v (resumed=%v)", adj.Msg.Assignments, again.Msg.Assignments, again.Msg.Resumed)
	}

	got, err := client.GetReceipt(ctx, as("adi", &api.GetReceiptRequest{ReceiptID: receiptID}))
	if err != nil {
		t.Fatalf("GetReceipt failed: %v", err)
	}
	if !slices.Equal(got.Msg.Receipt.Items[0].CustomSplits, adj.Msg.Assignments) {
		t.Errorf("custom split not persisted: %v", got.Msg.Receipt.Items[0].CustomSplits)
	}

	if n, err := testutil.GatherAndCount(reg, "receiptsplit_split_commits_total"); err != nil || n != 1 {
		t.Errorf("expected one commit outcome series, got %d (%v)", n, err)
	}
}

func TestSaveItemSplit_Rejections(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()
	receiptID, itemID := createSateForThree(t, client)

	_, err := client.SaveItemSplit(ctx, as("sari", &api.SaveItemSplitRequest{
		ReceiptID: receiptID, ItemID: itemID,
		Assignments: []api.PortionAssignment{{ParticipantID: "sari", Portion: 3}, {ParticipantID: "budi", Portion: 3}, {ParticipantID: "adi", Portion: 3}},
	}))
	assertCode(t, err, connect.CodeInvalidArgument)
	if !strings.Contains(err.Error(), "total portions 9 must equal quantity 10") {
		t.Errorf("unexpected message: %v", err)
	}

	_, err = client.SaveItemSplit(ctx, as("sari", &api.SaveItemSplitRequest{
		ReceiptID: receiptID, ItemID: itemID,
		Assignments: []api.PortionAssignment{{ParticipantID: "stranger", Portion: 10}},
	}))
	assertCode(t, err, connect.CodeInvalidArgument)

	_, err = client.SaveItemSplit(ctx, as("sari", &api.SaveItemSplitRequest{
		ReceiptID: receiptID, ItemID: "missing",
		Assignments: []api.PortionAssignment{{ParticipantID: "sari", Portion: 10}},
	}))
	assertCode(t, err, connect.CodeNotFound)

	_, err = client.AdjustItemSplit(ctx, as("sari", &api.AdjustItemSplitRequest{ReceiptID: receiptID, ItemID: itemID}))
	assertCode(t, err, connect.CodeInvalidArgument)

	_, err = client.StartItemSplit(ctx, as("stranger", &api.StartItemSplitRequest{ReceiptID: receiptID, ItemID: itemID}))
	assertCode(t, err, connect.CodePermissionDenied)
}

func TestStartItemSplit_NoAssignees(t *testing.T) {
	client, _ := setupTestServer(t)

	resp, err := client.CreateReceipt(context.Background(), as("sari", &api.CreateReceiptRequest{
		ParticipantIDs: []string{"budi"},
		SplitMode:      "per_item",
		Items:          []*api.Item{{Name: "Kerupuk", Quantity: 1, UnitPrice: dec("2000")}},
	}))
	if err != nil {
		t.Fatalf("CreateReceipt failed: %v", err)
	}

	_, err = client.StartItemSplit(context.Background(), as("sari", &api.StartItemSplitRequest{
		ReceiptID: resp.Msg.Receipt.ID, ItemID: resp.Msg.Receipt.Items[0].ID,
	}))
	assertCode(t, err, connect.CodeFailedPrecondition)
}

func TestUpdateReceipt_SavedSplitLifecycle(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()
	receiptID, itemID := createSateForThree(t, client)

	split := []api.PortionAssignment{{ParticipantID: "sari", Portion: 2}, {ParticipantID: "budi", Portion: 2}, {ParticipantID: "adi", Portion: 6}}
	if _, err := client.SaveItemSplit(ctx, as("sari", &api.SaveItemSplitRequest{ReceiptID: receiptID, ItemID: itemID, Assignments: split})); err != nil {
		t.Fatalf("SaveItemSplit failed: %v", err)
	}

	update := func(assignees []string, quantity int) *api.Item {
		t.Helper()
		resp, err := client.UpdateReceipt(ctx, as("sari", &api.UpdateReceiptRequest{
			ReceiptID:      receiptID,
			ParticipantIDs: []string{"budi", "adi"},
			SplitMode:      "per_item",
			Items: []*api.Item{
				{ID: itemID, Name: "Sate Ayam", Quantity: quantity, UnitPrice: dec("5000"), AssigneeIDs: assignees},
			},
		}))
		if err != nil {
			t.Fatalf("UpdateReceipt failed: %v", err)
		}
		if resp.Msg.Receipt.Name != "Sate" {
			t.Errorf("name should be kept, got %q", resp.Msg.Receipt.Name)
		}
		return resp.Msg.Receipt.Items[0]
	}

	// Same assignee set in another order keeps the split.
	item := update([]string{"adi", "sari", "budi"}, 10)
	if item.ID != itemID || !slices.Equal(item.CustomSplits, split) {
		t.Errorf("split should survive an unchanged assignee set: %+v", item)
	}

	// Dropping an assignee discards it.
	item = update([]string{"budi", "adi"}, 10)
	if len(item.CustomSplits) != 0 {
		t.Errorf("split should be cleared when assignees change: %v", item.CustomSplits)
	}

	start, err := client.StartItemSplit(ctx, as("sari", &api.StartItemSplitRequest{ReceiptID: receiptID, ItemID: itemID}))
	if err != nil {
		t.Fatalf("StartItemSplit failed: %v", err)
	}
	if start.Msg.Resumed || len(start.Msg.Assignments) != 2 {
		t.Errorf("expected a fresh split over the new assignees, got %+v", start.Msg)
	}
}

func TestCommittedSplitCostsReconcile(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()

	resp, err := client.CreateReceipt(ctx, as("sari", &api.CreateReceiptRequest{
		ParticipantIDs: []string{"budi", "adi"},
		SplitMode:      "per_item",
		Items: []*api.Item{
			{Name: "Pisang Goreng", Quantity: 3, UnitPrice: dec("3333.33"), AssigneeIDs: []string{"sari", "budi", "adi"}},
		},
	}))
	if err != nil {
		t.Fatalf("CreateReceipt failed: %v", err)
	}

	total := splitFor(t, resp.Msg.Splits, "sari").Amount.
		Add(splitFor(t, resp.Msg.Splits, "budi").Amount).
		Add(splitFor(t, resp.Msg.Splits, "adi").Amount)
	assertAmount(t, "reconciled total", total, "9999.99")
}
