package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"auctionhouse/internal/events"
)

// PostgresSink stores archived events in the auction_events table.
type PostgresSink struct {
	DB *sqlx.DB
}

func NewPostgresSink(ctx context.Context, url string) (*PostgresSink, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &PostgresSink{DB: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS auction_events (
  id          VARCHAR(64) PRIMARY KEY,
  type        VARCHAR(64) NOT NULL,
  item_id     VARCHAR(64) NOT NULL,
  actor_id    VARCHAR(64),
  bid_id      VARCHAR(64),
  amount      BIGINT,
  old_state   VARCHAR(32),
  new_state   VARCHAR(32),
  occurred_at TIMESTAMPTZ NOT NULL,
  archived_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_auction_events_item ON auction_events(item_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_auction_events_type ON auction_events(type);
`

func (s *PostgresSink) InitSchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

type eventRow struct {
	ID         string    `db:"id"`
	Type       string    `db:"type"`
	ItemID     string    `db:"item_id"`
	ActorID    *string   `db:"actor_id"`
	BidID      *string   `db:"bid_id"`
	Amount     *int64    `db:"amount"`
	OldState   *string   `db:"old_state"`
	NewState   *string   `db:"new_state"`
	OccurredAt time.Time `db:"occurred_at"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toRow(e events.Event) eventRow {
	r := eventRow{
		ID:         e.ID,
		Type:       e.Type,
		ItemID:     e.ItemID,
		ActorID:    optional(e.ActorID),
		BidID:      optional(e.BidID),
		OldState:   optional(e.OldState),
		NewState:   optional(e.NewState),
		OccurredAt: e.Timestamp.UTC(),
	}
	if e.Amount != 0 {
		r.Amount = &e.Amount
	}
	return r
}

// Store inserts the event once; a redelivered event is a no-op.
func (s *PostgresSink) Store(ctx context.Context, e events.Event) error {
	_, err := s.DB.NamedExecContext(ctx, `
INSERT INTO auction_events (id, type, item_id, actor_id, bid_id, amount, old_state, new_state, occurred_at)
VALUES (:id, :type, :item_id, :actor_id, :bid_id, :amount, :old_state, :new_state, :occurred_at)
ON CONFLICT (id) DO NOTHING`, toRow(e))
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	return nil
}

func (s *PostgresSink) Close() error { return s.DB.Close() }
