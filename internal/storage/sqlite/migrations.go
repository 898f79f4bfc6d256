package sqlite

import (
	"database/sql"
	"fmt"
)

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS carts (
    customer_id TEXT PRIMARY KEY,
    items TEXT NOT NULL,
    item_count INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS checkouts (
    session_id TEXT PRIMARY KEY,
    order_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    total INTEGER NOT NULL,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    cart_key TEXT NOT NULL DEFAULT '',
    redirect_url TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_checkouts_customer_id ON checkouts(customer_id);
CREATE INDEX IF NOT EXISTS idx_checkouts_order_id ON checkouts(order_id);
`

// addedColumns lists checkouts columns newer than the first schema, for
// databases created before they existed.
var addedColumns = []struct{ name, ddl string }{
	{"cart_key", "ALTER TABLE checkouts ADD COLUMN cart_key TEXT NOT NULL DEFAULT ''"},
	{"redirect_url", "ALTER TABLE checkouts ADD COLUMN redirect_url TEXT NOT NULL DEFAULT ''"},
}

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	existing, err := columns(db, "checkouts")
	if err != nil {
		return err
	}
	for _, c := range addedColumns {
		if existing[c.name] {
			continue
		}
		if _, err := db.Exec(c.ddl); err != nil {
			return fmt.Errorf("failed to add column %s: %w", c.name, err)
		}
	}

	_, err = db.Exec("CREATE INDEX IF NOT EXISTS idx_checkouts_pending ON checkouts(customer_id, cart_key, status)")
	return err
}

func columns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}
