package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/middleware"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
	"github.com/mmynk/receiptsplit/pkg/api"
)

// callerID returns the authenticated user, or an Unauthenticated error.
func callerID(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// storeError maps a storage failure onto a Connect error.
func storeError(logger *slog.Logger, op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	logger.Error(op+" failed", "error", err)
	return connect.NewError(connect.CodeInternal, err)
}

func toAPIUser(u *models.User) *api.User {
	if u == nil {
		return nil
	}
	return &api.User{
		ID:             u.ID,
		Email:          u.Email,
		DisplayName:    u.DisplayName,
		Phone:          u.Phone,
		PaymentMethod:  string(u.PaymentMethod),
		BankName:       u.BankName,
		PaymentAccount: u.PaymentAccount,
		AccountHolder:  u.AccountHolder,
		CreatedAt:      u.CreatedAt,
	}
}

func toAPIReceipt(r *models.Receipt) *api.Receipt {
	items := make([]*api.Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = &api.Item{
			ID:           it.ID,
			Name:         it.Name,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			AssigneeIDs:  it.Assignees,
			CustomSplits: it.CustomSplits,
		}
	}
	return &api.Receipt{
		ID:             r.ID,
		Name:           r.Name,
		LenderID:       r.LenderID,
		ParticipantIDs: r.ParticipantIDs,
		SplitMode:      string(r.SplitMode),
		Items:          items,
		Subtotal:       r.Subtotal(),
		Total:          r.EffectiveTotal(),
		CreatedAt:      r.CreatedAt,
	}
}

func toAPIPersonItems(items []calculator.PersonItem) []*api.PersonItem {
	out := make([]*api.PersonItem, len(items))
	for i, it := range items {
		out[i] = &api.PersonItem{
			ItemID:  it.ItemID,
			Name:    it.Name,
			Portion: it.Portion,
			Amount:  it.Amount,
		}
	}
	return out
}

// calculatorItems converts receipt items for split arithmetic.
func calculatorItems(r *models.Receipt) []calculator.Item {
	items := make([]calculator.Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = calculator.Item{
			ID:         it.ID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			AssignedTo: it.Assignees,
			Portions:   it.CustomSplits,
		}
	}
	return items
}
