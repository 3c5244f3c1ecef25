package repos

import (
	"context"
	"fmt"

	"auctionhouse/internal/domain"

	"github.com/jmoiron/sqlx"
)

type BidRepo struct{ DB *sqlx.DB }

func NewBidRepo(db *sqlx.DB) *BidRepo { return &BidRepo{DB: db} }

type bidRow struct {
	ID        string `db:"id"`
	ItemID    string `db:"item_id"`
	BidderID  string `db:"bidder_id"`
	Amount    int64  `db:"amount"`
	BidTime   int64  `db:"bid_time"`
	CreatedAt int64  `db:"created_at"`
	IsActive  bool   `db:"is_active"`
}

func (r bidRow) bid() domain.Bid {
	return domain.Bid{
		ID:        r.ID,
		ItemID:    r.ItemID,
		BidderID:  r.BidderID,
		Amount:    r.Amount,
		BidTime:   fromMS(r.BidTime),
		CreatedAt: fromMS(r.CreatedAt),
		IsActive:  r.IsActive,
	}
}

func rowsToBids(rows []bidRow) []domain.Bid {
	out := make([]domain.Bid, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.bid())
	}
	return out
}

const bidSelect = `SELECT id,item_id,bidder_id,amount,bid_time,created_at,is_active FROM bids`

// Place installs b as the item's current bid in one transaction.
// The item update is conditioned on prevBidID, the current bid id the caller read;
// if another bid landed in between nothing is written and ErrBidSuperseded is returned.
func (r *BidRepo) Place(ctx context.Context, b domain.Bid, prevBidID string, pastBids []string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	history := append(append([]string{}, pastBids...), b.ID)
	res, err := tx.ExecContext(ctx, `
		UPDATE items SET current_bid_id=?, past_bids_json=?
		WHERE id=? AND item_state='active' AND frozen=0 AND COALESCE(current_bid_id,'')=?`,
		b.ID, encodeList(history), b.ItemID, prevBidID)
	if err := affected(res, err, domain.ErrBidSuperseded); err != nil {
		return err
	}

	if prevBidID != "" {
		res, err = tx.ExecContext(ctx, `UPDATE bids SET is_active=0 WHERE id=? AND is_active=1`, prevBidID)
		if err := affected(res, err, domain.ErrBidSuperseded); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bids(id,item_id,bidder_id,amount,bid_time,created_at,is_active)
		VALUES(?,?,?,?,?,?,1)`,
		b.ID, b.ItemID, b.BidderID, b.Amount, ms(b.BidTime), ms(b.CreatedAt)); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrBidSuperseded
		}
		return err
	}
	return tx.Commit()
}

func (r *BidRepo) Get(ctx context.Context, id string) (domain.Bid, error) {
	var row bidRow
	if err := r.DB.GetContext(ctx, &row, bidSelect+` WHERE id=?`, id); err != nil {
		if notFound(err) {
			return domain.Bid{}, fmt.Errorf("%w: bid %s", domain.ErrNotFound, id)
		}
		return domain.Bid{}, err
	}
	return row.bid(), nil
}

// ByItem is the bid history of an item, newest first.
func (r *BidRepo) ByItem(ctx context.Context, itemID string) ([]domain.Bid, error) {
	var rows []bidRow
	if err := r.DB.SelectContext(ctx, &rows,
		bidSelect+` WHERE item_id=? ORDER BY bid_time DESC, amount DESC`, itemID); err != nil {
		return nil, err
	}
	return rowsToBids(rows), nil
}

// ActiveByBidder lists the bids of a buyer that are still the current bid on their item.
func (r *BidRepo) ActiveByBidder(ctx context.Context, bidderID string) ([]domain.Bid, error) {
	var rows []bidRow
	if err := r.DB.SelectContext(ctx, &rows,
		bidSelect+` WHERE bidder_id=? AND is_active=1 ORDER BY bid_time DESC`, bidderID); err != nil {
		return nil, err
	}
	return rowsToBids(rows), nil
}

func (r *BidRepo) All(ctx context.Context) ([]domain.Bid, error) {
	var rows []bidRow
	if err := r.DB.SelectContext(ctx, &rows, bidSelect+` ORDER BY bid_time, id`); err != nil {
		return nil, err
	}
	return rowsToBids(rows), nil
}
