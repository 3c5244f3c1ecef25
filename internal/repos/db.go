package repos

import (
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: ":memory:" is per-connection and SQLite serialises writers anyway.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Ensure demo accounts exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Users (sellers, buyers, admins)
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  user_type TEXT NOT NULL CHECK (user_type IN ('seller','buyer','admin')),
  funds INTEGER NOT NULL DEFAULT 0 CHECK (funds >= 0),
  frozen INTEGER NOT NULL DEFAULT 0,
  closed INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(LOWER(username));

-- Items; timestamps are unix milliseconds
CREATE TABLE IF NOT EXISTS items(
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL REFERENCES users(id),
  name TEXT NOT NULL,
  description TEXT NOT NULL,
  init_price INTEGER NOT NULL CHECK (init_price >= 1),
  start_date INTEGER NOT NULL,
  end_date INTEGER NOT NULL,
  length_of_auction INTEGER NOT NULL CHECK (length_of_auction >= 1),
  item_state TEXT NOT NULL DEFAULT 'inactive'
    CHECK (item_state IN ('inactive','active','completed','failed','archived')),
  frozen INTEGER NOT NULL DEFAULT 0,
  images_json TEXT NOT NULL DEFAULT '[]',
  current_bid_id TEXT,
  past_bids_json TEXT NOT NULL DEFAULT '[]',
  sold_bid_id TEXT,
  sold_time INTEGER,
  created_at INTEGER NOT NULL,
  CHECK (end_date > start_date)
);
CREATE INDEX IF NOT EXISTS idx_items_seller   ON items(seller_id);
CREATE INDEX IF NOT EXISTS idx_items_state    ON items(item_state);
CREATE INDEX IF NOT EXISTS idx_items_end_date ON items(end_date);

-- Bids
CREATE TABLE IF NOT EXISTS bids(
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
  bidder_id TEXT NOT NULL REFERENCES users(id),
  amount INTEGER NOT NULL CHECK (amount > 0),
  bid_time INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_bids_item   ON bids(item_id);
CREATE INDEX IF NOT EXISTS idx_bids_bidder ON bids(bidder_id);
-- at most one active bid per item
CREATE UNIQUE INDEX IF NOT EXISTS idx_bids_one_active ON bids(item_id) WHERE is_active = 1;

-- Purchases, appended at fulfillment
CREATE TABLE IF NOT EXISTS purchases(
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL REFERENCES users(id),
  item_id TEXT NOT NULL UNIQUE REFERENCES items(id),
  bid_id TEXT NOT NULL REFERENCES bids(id),
  amount INTEGER NOT NULL,
  purchased_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_purchases_buyer ON purchases(buyer_id);
`
	_, err := db.Exec(schema)
	return err
}

// seedUsers ensures an admin plus one demo seller and buyer exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Username, Type, Hash string
		Funds                    int64
	}
	mk := func(id, username, userType, raw string, funds int64) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Username: username, Type: userType, Hash: string(h), Funds: funds}
	}

	users := []u{
		mk("u-admin", "admin", "admin", "Passw0rd!", 0),
		mk("u-sally", "sally", "seller", "Passw0rd!", 0),
		mk("u-bob", "bob", "buyer", "Passw0rd!", 100),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	now := ms(time.Now())
	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,username,password_hash,user_type,funds,created_at)
			VALUES(?,?,?,?,?,?)
			ON CONFLICT(id) DO NOTHING
		`, x.ID, x.Username, x.Hash, x.Type, x.Funds, now); err != nil {
			return err
		}
	}
	log.Printf("[seed] ensured %d demo users", len(users))
	return tx.Commit()
}

func ms(t time.Time) int64 { return t.UnixMilli() }

func fromMS(v int64) time.Time { return time.UnixMilli(v).UTC() }

func notFound(err error) bool { return errors.Is(err, sql.ErrNoRows) }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// affected returns ErrConditionFailed-style sentinel when a conditional write matched no row.
func affected(res sql.Result, err error, none error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}

func toLower(s string) string { return strings.ToLower(s) }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches s literally anywhere; pair it with ESCAPE '\'.
func containsPattern(s string) string { return "%" + likeEscaper.Replace(toLower(s)) + "%" }
