// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/receiptsplit/internal/allocation"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Foreign keys are a per-connection setting, so request them in the DSN
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateReceipt persists a new receipt to the database.
func (s *SQLiteStore) CreateReceipt(ctx context.Context, receipt *models.Receipt) error {
	// Generate IDs if not set
	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	if receipt.CreatedAt == 0 {
		receipt.CreatedAt = time.Now().Unix()
	}
	if receipt.Name == "" {
		receipt.Name = generateName(receipt.Items)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO receipts (id, name, lender_id, split_mode, total, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		receipt.ID, receipt.Name, receipt.LenderID, string(receipt.SplitMode), receipt.Total.String(), receipt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}

	if err := insertChildren(ctx, tx, receipt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateReceipt replaces the receipt row, its participants and its items.
func (s *SQLiteStore) UpdateReceipt(ctx context.Context, receipt *models.Receipt) error {
	if receipt.Name == "" {
		receipt.Name = generateName(receipt.Items)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE receipts SET name = ?, split_mode = ?, total = ? WHERE id = ?",
		receipt.Name, string(receipt.SplitMode), receipt.Total.String(), receipt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update receipt: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	} else if n == 0 {
		return fmt.Errorf("receipt %s: %w", receipt.ID, storage.ErrNotFound)
	}

	// Children cascade from items; participants are keyed by receipt
	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE receipt_id = ?", receipt.ID); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM receipt_participants WHERE receipt_id = ?", receipt.ID); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}

	if err := insertChildren(ctx, tx, receipt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteReceipt removes a receipt; items, assignees and splits cascade.
func (s *SQLiteStore) DeleteReceipt(ctx context.Context, receiptID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM receipts WHERE id = ?", receiptID)
	if err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("receipt %s: %w", receiptID, storage.ErrNotFound)
	}
	return nil
}

// insertChildren writes participants, items, assignees and custom splits.
func insertChildren(ctx context.Context, tx *sql.Tx, receipt *models.Receipt) error {
	for pos, userID := range receipt.ParticipantIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO receipt_participants (receipt_id, user_id, position) VALUES (?, ?, ?)",
			receipt.ID, userID, pos,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	for i := range receipt.Items {
		item := &receipt.Items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}

		_, err := tx.ExecContext(ctx,
			"INSERT INTO items (id, receipt_id, position, name, quantity, unit_price) VALUES (?, ?, ?, ?, ?, ?)",
			item.ID, receipt.ID, i, item.Name, item.Quantity, item.UnitPrice.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}

		for pos, userID := range item.Assignees {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO item_assignees (item_id, user_id, position) VALUES (?, ?, ?)",
				item.ID, userID, pos,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item assignee: %w", err)
			}
		}

		if err := insertSplits(ctx, tx, item.ID, item.CustomSplits); err != nil {
			return err
		}
	}
	return nil
}

func insertSplits(ctx context.Context, tx *sql.Tx, itemID string, splits []allocation.PortionAssignment) error {
	for pos, a := range splits {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO item_custom_splits (item_id, user_id, position, portion) VALUES (?, ?, ?, ?)",
			itemID, a.ParticipantID, pos, a.Portion,
		)
		if err != nil {
			return fmt.Errorf("failed to insert custom split: %w", err)
		}
	}
	return nil
}

// SaveItemSplit replaces the item's custom split and sets its assignees to the
// split's participants, in split order.
func (s *SQLiteStore) SaveItemSplit(ctx context.Context, receiptID, itemID string, assignments []allocation.PortionAssignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE id = ? AND receipt_id = ?",
		itemID, receiptID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up item: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("item %s in receipt %s: %w", itemID, receiptID, storage.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM item_custom_splits WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("failed to clear custom split: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM item_assignees WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("failed to clear assignees: %w", err)
	}

	for pos, a := range assignments {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO item_assignees (item_id, user_id, position) VALUES (?, ?, ?)",
			itemID, a.ParticipantID, pos,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item assignee: %w", err)
		}
	}
	if err := insertSplits(ctx, tx, itemID, assignments); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetReceipt retrieves a receipt by ID, including all items and participants.
func (s *SQLiteStore) GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error) {
	receipt := &models.Receipt{}
	var splitMode, total string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, lender_id, split_mode, total, created_at FROM receipts WHERE id = ?",
		receiptID,
	).Scan(&receipt.ID, &receipt.Name, &receipt.LenderID, &splitMode, &total, &receipt.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("receipt %s: %w", receiptID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	receipt.SplitMode = models.SplitMode(splitMode)
	if err := receipt.Total.UnmarshalText([]byte(total)); err != nil {
		return nil, fmt.Errorf("failed to parse receipt total %q: %w", total, err)
	}

	receipt.ParticipantIDs, err = s.queryIDs(ctx,
		"SELECT user_id FROM receipt_participants WHERE receipt_id = ? ORDER BY position",
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	receipt.Items, err = s.loadItems(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// loadItems reads the items of a receipt, then their assignees and splits.
func (s *SQLiteStore) loadItems(ctx context.Context, receiptID string) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, quantity, unit_price FROM items WHERE receipt_id = ? ORDER BY position",
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}

	var items []models.Item
	for rows.Next() {
		var item models.Item
		var price string
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &price); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if err := item.UnitPrice.UnmarshalText([]byte(price)); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to parse unit price %q: %w", price, err)
		}
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	for i := range items {
		item := &items[i]
		item.Assignees, err = s.queryIDs(ctx,
			"SELECT user_id FROM item_assignees WHERE item_id = ? ORDER BY position",
			item.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to get item assignees: %w", err)
		}

		item.CustomSplits, err = s.loadSplits(ctx, item.ID)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *SQLiteStore) loadSplits(ctx context.Context, itemID string) ([]allocation.PortionAssignment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, portion FROM item_custom_splits WHERE item_id = ? ORDER BY position",
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get custom split: %w", err)
	}
	defer rows.Close()

	var splits []allocation.PortionAssignment
	for rows.Next() {
		var a allocation.PortionAssignment
		if err := rows.Scan(&a.ParticipantID, &a.Portion); err != nil {
			return nil, fmt.Errorf("failed to scan custom split: %w", err)
		}
		splits = append(splits, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate custom split: %w", err)
	}
	return splits, nil
}

// ListReceiptsByUser returns every receipt the user lent for or participates in.
func (s *SQLiteStore) ListReceiptsByUser(ctx context.Context, userID string) ([]*models.Receipt, error) {
	ids, err := s.queryIDs(ctx, `
		SELECT r.id FROM receipts r
		WHERE r.lender_id = ?
		   OR EXISTS (SELECT 1 FROM receipt_participants p WHERE p.receipt_id = r.id AND p.user_id = ?)
		ORDER BY r.created_at DESC, r.id`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}

	receipts := make([]*models.Receipt, 0, len(ids))
	for _, id := range ids {
		r, err := s.GetReceipt(ctx, id)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}

// queryIDs runs a query returning a single string column.
func (s *SQLiteStore) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// generateName creates a receipt name from its items.
func generateName(items []models.Item) string {
	if len(items) == 0 {
		return fmt.Sprintf("Receipt - %s", time.Now().Format("Jan 2, 2006"))
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	if len(names) <= 3 {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s and %d more",
		strings.Join(names[:2], ", "),
		len(names)-2,
	)
}
