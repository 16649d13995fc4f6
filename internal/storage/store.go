// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/receiptsplit/internal/allocation"
	"github.com/mmynk/receiptsplit/internal/models"
)

// ErrNotFound is returned when a receipt or item does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for receipt and user storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateReceipt persists a new receipt with its items.
	// The receipt.ID, item IDs and CreatedAt are populated by the store when empty.
	CreateReceipt(ctx context.Context, receipt *models.Receipt) error

	// GetReceipt retrieves a receipt by its ID.
	// Returns an error wrapping ErrNotFound if the receipt does not exist.
	GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error)

	// UpdateReceipt replaces an existing receipt's fields, participants and items.
	UpdateReceipt(ctx context.Context, receipt *models.Receipt) error

	// DeleteReceipt removes a receipt and everything attached to it.
	DeleteReceipt(ctx context.Context, receiptID string) error

	// ListReceiptsByUser returns receipts the user lent for or participates in,
	// newest first.
	ListReceiptsByUser(ctx context.Context, userID string) ([]*models.Receipt, error)

	// SaveItemSplit stores a committed custom split for one item and makes the
	// split's participants the item's assignees.
	SaveItemSplit(ctx context.Context, receiptID, itemID string, assignments []allocation.PortionAssignment) error

	// User operations. Lookups return (nil, nil) when the user does not exist.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
