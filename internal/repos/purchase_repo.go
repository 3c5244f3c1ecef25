package repos

import (
	"context"
	"time"

	"auctionhouse/internal/domain"

	"github.com/jmoiron/sqlx"
)

type PurchaseRepo struct{ DB *sqlx.DB }

func NewPurchaseRepo(db *sqlx.DB) *PurchaseRepo { return &PurchaseRepo{DB: db} }

type purchaseRow struct {
	ID          string `db:"id"`
	BuyerID     string `db:"buyer_id"`
	ItemID      string `db:"item_id"`
	BidID       string `db:"bid_id"`
	ItemName    string `db:"item_name"`
	Amount      int64  `db:"amount"`
	PurchasedAt int64  `db:"purchased_at"`
}

const purchaseSelect = `
  SELECT p.id, p.buyer_id, p.item_id, p.bid_id, COALESCE(i.name,'') AS item_name, p.amount, p.purchased_at
  FROM purchases p LEFT JOIN items i ON i.id = p.item_id`

// Fulfill records the sale of a completed item in one transaction: it stamps the sold time
// (only once), debits the winning buyer and appends the purchase.
func (r *PurchaseRepo) Fulfill(ctx context.Context, p domain.Purchase, now time.Time) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE items SET sold_time=?
		WHERE id=? AND item_state='completed' AND sold_bid_id=? AND sold_time IS NULL AND end_date <= ?`,
		ms(now), p.ItemID, p.BidID, ms(now))
	if err := affected(res, err, domain.ErrInvalidState); err != nil {
		return err
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE users SET funds = funds - ?
		WHERE id=? AND funds >= ? AND frozen=0 AND closed=0`, p.Amount, p.BuyerID, p.Amount)
	if err := affected(res, err, domain.ErrInsufficientFunds); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO purchases(id,buyer_id,item_id,bid_id,amount,purchased_at)
		VALUES(?,?,?,?,?,?)`,
		p.ID, p.BuyerID, p.ItemID, p.BidID, p.Amount, ms(p.PurchasedAt)); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrInvalidState
		}
		return err
	}
	return tx.Commit()
}

func (r *PurchaseRepo) ByBuyer(ctx context.Context, buyerID string) ([]domain.Purchase, error) {
	var rows []purchaseRow
	if err := r.DB.SelectContext(ctx, &rows, purchaseSelect+`
  WHERE p.buyer_id=? ORDER BY p.purchased_at DESC`, buyerID); err != nil {
		return nil, err
	}
	return rowsToPurchases(rows), nil
}

func (r *PurchaseRepo) All(ctx context.Context) ([]domain.Purchase, error) {
	var rows []purchaseRow
	if err := r.DB.SelectContext(ctx, &rows, purchaseSelect+` ORDER BY p.purchased_at`); err != nil {
		return nil, err
	}
	return rowsToPurchases(rows), nil
}

func rowsToPurchases(rows []purchaseRow) []domain.Purchase {
	out := make([]domain.Purchase, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Purchase{
			ID:          r.ID,
			BuyerID:     r.BuyerID,
			ItemID:      r.ItemID,
			BidID:       r.BidID,
			ItemName:    r.ItemName,
			Amount:      r.Amount,
			PurchasedAt: fromMS(r.PurchasedAt),
		})
	}
	return out
}
