package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/util"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the local store for login identities.
type DB struct {
	db *sql.DB
}

var (
	dbInstance *DB
	dbOnce     sync.Once
	dbFile     = "inkblock.db"
)

const maxBusyRetries = 5

const (
	sqlCreateIdentitiesTable = `CREATE TABLE IF NOT EXISTS identities(
                        owner varchar(100) NOT NULL PRIMARY KEY,
                        principal varchar(64) NOT NULL,
                        private_key text NOT NULL,
                        public_key text NOT NULL,
                        delegation text,
                        expires_at integer,
                        created_at timestamp default current_timestamp
                        )`
	sqlUpsertIdentity = `INSERT INTO identities(owner, principal, private_key, public_key, delegation, expires_at, created_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?)
                        ON CONFLICT(owner) DO UPDATE SET
                            principal = excluded.principal,
                            private_key = excluded.private_key,
                            public_key = excluded.public_key,
                            delegation = excluded.delegation,
                            expires_at = excluded.expires_at,
                            created_at = excluded.created_at`
	sqlSelectIdentityByOwner = `SELECT principal, private_key, public_key, delegation, expires_at, created_at FROM identities WHERE owner = ?`
	sqlDeleteIdentityByOwner = `DELETE FROM identities WHERE owner = ?`
	sqlTouchIdentity         = `UPDATE identities SET last_used_at = ? WHERE owner = ?`
	sqlDeleteExpired         = `DELETE FROM identities WHERE expires_at > 0 AND expires_at <= ?`
)

// SetFile sets the database file GetDB opens. Call it before the first GetDB.
func SetFile(name string) {
	dbFile = name
}

func GetDB() *DB {
	dbOnce.Do(func() {
		path := util.ResolveFilePath(dbFile)
		db, err := Open(path)
		if err != nil {
			panic(err)
		}
		log.Printf("Identity store opened at %s", path)
		dbInstance = db
	})

	return dbInstance
}

// Open opens (and creates if needed) an identity store. ":memory:" is
// supported and pinned to a single connection so all callers share it.
func Open(dsn string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dsn, err)
	}

	if dsn == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetConnMaxLifetime(time.Hour)

		var journalMode string
		if err := sqlDB.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
			log.Printf("Warning: Failed to enable WAL mode: %v", err)
		}
		sqlDB.Exec("PRAGMA busy_timeout = 5000")
	}

	db := &DB{db: sqlDB}
	if err := db.CreateDB(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// CreateDB creates the database.
func (db *DB) CreateDB() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlCreateIdentitiesTable)
		return err
	})
}

// SaveIdentity stores the identity for owner, replacing any previous one.
func (db *DB) SaveIdentity(owner string, id *domain.Identity) error {
	// expires_at holds unix nanoseconds like the ledger timestamps, 0 for none
	var expires int64
	if !id.Expiration.IsZero() {
		expires = id.Expiration.UnixNano()
	}
	created := id.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpsertIdentity, owner, id.Principal.String(), id.PrivateKeyPem, id.PublicKeyPem,
			id.Delegation, expires, created.UTC())
		return err
	})
}

// ReadIdentityByOwner returns nil and no error when the owner has no identity.
func (db *DB) ReadIdentityByOwner(owner string) (*domain.Identity, error) {
	var (
		principalText string
		delegation    sql.NullString
		expires       sql.NullInt64
		id            domain.Identity
	)

	row := db.db.QueryRow(sqlSelectIdentityByOwner, owner)
	err := row.Scan(&principalText, &id.PrivateKeyPem, &id.PublicKeyPem, &delegation, &expires, &id.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity of %s: %w", owner, err)
	}

	id.Principal, err = domain.ParsePrincipal(principalText)
	if err != nil {
		return nil, fmt.Errorf("stored identity of %s: %w", owner, err)
	}
	id.Delegation = delegation.String
	if expires.Valid && expires.Int64 > 0 {
		id.Expiration = time.Unix(0, expires.Int64)
	}

	return &id, nil
}

func (db *DB) DeleteIdentityByOwner(owner string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteIdentityByOwner, owner)
		return err
	})
}

// TouchIdentity records that the owner's identity was restored.
func (db *DB) TouchIdentity(owner string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlTouchIdentity, time.Now().UTC(), owner)
		return err
	})
}

// PurgeExpiredIdentities deletes identities whose delegation expired before now.
func (db *DB) PurgeExpiredIdentities(now time.Time) (int64, error) {
	var purged int64
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlDeleteExpired, now.UnixNano())
		if err != nil {
			return err
		}
		purged, err = res.RowsAffected()
		return err
	})
	return purged, err
}

// wrapTransaction runs the given function within a transaction, starting
// over when sqlite reports the database as busy.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxBusyRetries; attempt++ {
		err = db.runTransaction(f)
		if !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return err
}

func (db *DB) runTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return err
	}

	if err = f(tx); err != nil {
		tx.Rollback()
		if !isBusy(err) {
			log.Printf("error in transaction: %s", err)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		log.Printf("error committing transaction: %s", err)
		return err
	}
	return nil
}

func isBusy(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code() == sqlitelib.SQLITE_BUSY
}
