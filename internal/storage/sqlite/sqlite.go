// Package sqlite provides a SQLite-backed implementation of the storage interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/mealbox/internal/models"
	"github.com/mmynk/mealbox/internal/storage"
)

// Ensure SQLiteStore implements the storage interfaces
var (
	_ storage.CartStore   = (*SQLiteStore)(nil)
	_ storage.CheckoutLog = (*SQLiteStore)(nil)
)

// SQLiteStore implements storage.CartStore and storage.CheckoutLog using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Concurrent writers otherwise fail fast with SQLITE_BUSY
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Migrate opens the database at dbPath, applies the schema and closes it.
func Migrate(dbPath string) error {
	s, err := New(dbPath)
	if err != nil {
		return err
	}
	return s.Close()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadCart retrieves the saved cart for a customer.
func (s *SQLiteStore) LoadCart(ctx context.Context, key string) ([]models.LineItem, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		"SELECT items FROM carts WHERE customer_id = ?",
		key,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return []models.LineItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	var items []models.LineItem
	if err := json.Unmarshal([]byte(blob), &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return items, nil
}

// SaveCart upserts the cart for a customer. An empty cart deletes the row.
func (s *SQLiteStore) SaveCart(ctx context.Context, key string, items []models.LineItem) error {
	if len(items) == 0 {
		return s.DeleteCart(ctx, key)
	}

	blob, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO carts (customer_id, items, item_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(customer_id) DO UPDATE SET
			items = excluded.items,
			item_count = excluded.item_count,
			updated_at = excluded.updated_at
	`, key, string(blob), len(items), s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// DeleteCart removes the saved cart for a customer.
func (s *SQLiteStore) DeleteCart(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM carts WHERE customer_id = ?", key); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// RecordCheckout persists a new checkout.
func (s *SQLiteStore) RecordCheckout(ctx context.Context, c *storage.Checkout) error {
	if c.CreatedAt == 0 {
		c.CreatedAt = s.now().Unix()
	}
	if c.Status == "" {
		c.Status = storage.CheckoutPending
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO checkouts (session_id, order_id, customer_id, total, status, created_at, cart_key, redirect_url) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		c.SessionID, c.OrderID, c.CustomerID, int64(c.Total), string(c.Status), c.CreatedAt, c.CartKey, c.RedirectURL,
	)
	if err != nil {
		return fmt.Errorf("failed to insert checkout: %w", err)
	}
	return nil
}

const checkoutColumns = "session_id, order_id, customer_id, total, status, created_at, cart_key, redirect_url"

func scanCheckout(row *sql.Row) (*storage.Checkout, error) {
	c := &storage.Checkout{}
	var total int64
	var status string
	if err := row.Scan(&c.SessionID, &c.OrderID, &c.CustomerID, &total, &status, &c.CreatedAt, &c.CartKey, &c.RedirectURL); err != nil {
		return nil, err
	}
	c.Total = models.Money(total)
	c.Status = storage.CheckoutStatus(status)
	return c, nil
}

// GetCheckout retrieves a checkout by payment session id.
func (s *SQLiteStore) GetCheckout(ctx context.Context, sessionID string) (*storage.Checkout, error) {
	c, err := scanCheckout(s.db.QueryRowContext(ctx,
		"SELECT "+checkoutColumns+" FROM checkouts WHERE session_id = ?",
		sessionID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checkout %s: %w", sessionID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout: %w", err)
	}
	return c, nil
}

// PendingCheckout finds the newest unpaid checkout of a customer for one cart.
func (s *SQLiteStore) PendingCheckout(ctx context.Context, customerID, cartKey string) (*storage.Checkout, error) {
	c, err := scanCheckout(s.db.QueryRowContext(ctx,
		"SELECT "+checkoutColumns+" FROM checkouts WHERE customer_id = ? AND cart_key = ? AND status = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		customerID, cartKey, string(storage.CheckoutPending),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pending checkout for %s: %w", customerID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending checkout: %w", err)
	}
	return c, nil
}

// MarkCheckoutPaid flips a checkout to paid.
func (s *SQLiteStore) MarkCheckoutPaid(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE checkouts SET status = ? WHERE session_id = ?",
		string(storage.CheckoutPaid), sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update checkout: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("checkout %s: %w", sessionID, storage.ErrNotFound)
	}
	return nil
}
