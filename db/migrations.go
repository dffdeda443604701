package db

import (
	"database/sql"
	"log"
)

const (
	sqlCreateIdentitiesIndices = `
		CREATE INDEX IF NOT EXISTS idx_identities_expires_at ON identities(expires_at);
		CREATE INDEX IF NOT EXISTS idx_identities_principal ON identities(principal);
	`
)

// RunMigrations brings an existing identity store up to the current schema.
func (db *DB) RunMigrations() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlCreateIdentitiesIndices); err != nil {
			log.Printf("Warning: Failed to create identities indices: %v", err)
		}

		// Extend existing tables (ignore errors if columns already exist)
		db.extendExistingTables(tx)
		return nil
	})
}

func (db *DB) extendExistingTables(tx *sql.Tx) {
	if !db.hasColumn(tx, "identities", "last_used_at") {
		if _, err := tx.Exec("ALTER TABLE identities ADD COLUMN last_used_at TIMESTAMP"); err != nil {
			log.Printf("Warning: Failed to add identities.last_used_at: %v", err)
		}
	}
}

func (db *DB) hasColumn(tx *sql.Tx, table, column string) bool {
	rows, err := tx.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil && name == column {
			return true
		}
	}
	return false
}
