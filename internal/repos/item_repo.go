package repos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"auctionhouse/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ItemRepo struct{ DB *sqlx.DB }

func NewItemRepo(db *sqlx.DB) *ItemRepo { return &ItemRepo{DB: db} }

type itemRow struct {
	ID               string        `db:"id"`
	SellerID         string        `db:"seller_id"`
	Name             string        `db:"name"`
	Description      string        `db:"description"`
	InitPrice        int64         `db:"init_price"`
	StartDate        int64         `db:"start_date"`
	EndDate          int64         `db:"end_date"`
	LengthOfAuction  int           `db:"length_of_auction"`
	ItemState        string        `db:"item_state"`
	Frozen           bool          `db:"frozen"`
	ImagesJSON       string        `db:"images_json"`
	CurrentBidID     string        `db:"current_bid_id"`
	PastBidsJSON     string        `db:"past_bids_json"`
	SoldBidID        string        `db:"sold_bid_id"`
	SoldTime         sql.NullInt64 `db:"sold_time"`
	CreatedAt        int64         `db:"created_at"`
	CurrentBidAmount int64         `db:"current_bid_amount"`
	SoldAmount       int64         `db:"sold_amount"`
}

func (r itemRow) item() domain.Item {
	it := domain.Item{
		ID:               r.ID,
		SellerID:         r.SellerID,
		Name:             r.Name,
		Description:      r.Description,
		InitPrice:        r.InitPrice,
		StartDate:        fromMS(r.StartDate),
		EndDate:          fromMS(r.EndDate),
		LengthOfAuction:  r.LengthOfAuction,
		ItemState:        domain.ItemState(r.ItemState),
		Frozen:           r.Frozen,
		CurrentBidID:     r.CurrentBidID,
		SoldBidID:        r.SoldBidID,
		CreatedAt:        fromMS(r.CreatedAt),
		CurrentBidAmount: r.CurrentBidAmount,
		SoldAmount:       r.SoldAmount,
	}
	_ = json.Unmarshal([]byte(r.ImagesJSON), &it.Images)
	_ = json.Unmarshal([]byte(r.PastBidsJSON), &it.PastBids)
	if it.Images == nil {
		it.Images = []string{}
	}
	if it.PastBids == nil {
		it.PastBids = []string{}
	}
	if r.SoldTime.Valid {
		t := fromMS(r.SoldTime.Int64)
		it.SoldTime = &t
	}
	return it
}

func rowsToItems(rows []itemRow) []domain.Item {
	out := make([]domain.Item, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.item())
	}
	return out
}

const itemSelect = `
  SELECT
    i.id, i.seller_id, i.name, i.description, i.init_price, i.start_date, i.end_date,
    i.length_of_auction, i.item_state, i.frozen, i.images_json,
    COALESCE(i.current_bid_id,'') AS current_bid_id, i.past_bids_json,
    COALESCE(i.sold_bid_id,'') AS sold_bid_id, i.sold_time, i.created_at,
    COALESCE(cb.amount,0) AS current_bid_amount, COALESCE(sb.amount,0) AS sold_amount
  FROM items i
  LEFT JOIN bids cb ON cb.id = i.current_bid_id
  LEFT JOIN bids sb ON sb.id = i.sold_bid_id`

func encodeList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func (r *ItemRepo) Create(ctx context.Context, it domain.Item) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO items(id,seller_id,name,description,init_price,start_date,end_date,
		  length_of_auction,item_state,frozen,images_json,past_bids_json,created_at)
		VALUES(?,?,?,?,?,?,?,?,?,0,?,'[]',?)`,
		it.ID, it.SellerID, it.Name, it.Description, it.InitPrice, ms(it.StartDate), ms(it.EndDate),
		it.LengthOfAuction, string(domain.ItemInactive), encodeList(it.Images), ms(it.CreatedAt))
	return err
}

func (r *ItemRepo) Get(ctx context.Context, id string) (domain.Item, error) {
	var row itemRow
	if err := r.DB.GetContext(ctx, &row, itemSelect+` WHERE i.id = ?`, id); err != nil {
		if notFound(err) {
			return domain.Item{}, fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
		}
		return domain.Item{}, err
	}
	return row.item(), nil
}

// Update writes the editable fields, conditioned on owner, inactive state and not frozen.
func (r *ItemRepo) Update(ctx context.Context, it domain.Item) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE items SET name=?, description=?, init_price=?, length_of_auction=?, end_date=?, images_json=?
		WHERE id=? AND seller_id=? AND item_state='inactive' AND frozen=0`,
		it.Name, it.Description, it.InitPrice, it.LengthOfAuction, ms(it.EndDate), encodeList(it.Images),
		it.ID, it.SellerID)
	return affected(res, err, domain.ErrConditionFailed)
}

func (r *ItemRepo) Delete(ctx context.Context, id, sellerID string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM items WHERE id=? AND seller_id=? AND item_state='inactive'`, id, sellerID)
	return affected(res, err, domain.ErrConditionFailed)
}

// Publish moves inactive → active and fixes the auction window, in one conditional write.
// The seller row is part of the condition so a frozen or closed seller cannot publish.
func (r *ItemRepo) Publish(ctx context.Context, id, sellerID string, start, end time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE items SET item_state='active', start_date=?, end_date=?
		WHERE id=? AND seller_id=? AND item_state='inactive' AND frozen=0
		  AND EXISTS (SELECT 1 FROM users u WHERE u.id=items.seller_id AND u.frozen=0 AND u.closed=0)`,
		ms(start), ms(end), id, sellerID)
	return affected(res, err, domain.ErrConditionFailed)
}

func (r *ItemRepo) Unpublish(ctx context.Context, id, sellerID string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE items SET item_state='inactive'
		WHERE id=? AND seller_id=? AND item_state='active' AND current_bid_id IS NULL`,
		id, sellerID)
	return affected(res, err, domain.ErrConditionFailed)
}

func (r *ItemRepo) Archive(ctx context.Context, id, sellerID string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE items SET item_state='archived'
		WHERE id=? AND seller_id=? AND item_state='inactive'`,
		id, sellerID)
	return affected(res, err, domain.ErrConditionFailed)
}

func (r *ItemRepo) SetFrozen(ctx context.Context, id string, frozen bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE items SET frozen=? WHERE id=?`, frozen, id)
	return affected(res, err, fmt.Errorf("%w: item %s", domain.ErrNotFound, id))
}

// Closed is one item moved out of active by CloseExpired.
type Closed struct {
	ItemID    string
	SellerID  string
	State     domain.ItemState
	SoldBidID string
}

// CloseExpired settles every active item whose end date has passed:
// items with a current bid become completed, the rest failed.
func (r *ItemRepo) CloseExpired(ctx context.Context, now time.Time) ([]Closed, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var due []struct {
		ID           string `db:"id"`
		SellerID     string `db:"seller_id"`
		CurrentBidID string `db:"current_bid_id"`
	}
	if err := tx.SelectContext(ctx, &due, `
		SELECT id, seller_id, COALESCE(current_bid_id,'') AS current_bid_id
		FROM items WHERE item_state='active' AND end_date <= ?
		ORDER BY end_date`, ms(now)); err != nil {
		return nil, err
	}

	out := make([]Closed, 0, len(due))
	for _, d := range due {
		c := Closed{ItemID: d.ID, SellerID: d.SellerID}
		var res sql.Result
		if d.CurrentBidID != "" {
			c.State, c.SoldBidID = domain.ItemCompleted, d.CurrentBidID
			res, err = tx.ExecContext(ctx, `
				UPDATE items SET item_state='completed', sold_bid_id=current_bid_id, current_bid_id=NULL
				WHERE id=? AND item_state='active' AND current_bid_id=?`, d.ID, d.CurrentBidID)
		} else {
			c.State = domain.ItemFailed
			res, err = tx.ExecContext(ctx, `
				UPDATE items SET item_state='failed'
				WHERE id=? AND item_state='active' AND current_bid_id IS NULL`, d.ID)
		}
		if err := affected(res, err, domain.ErrConditionFailed); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// Search lists active, unfrozen items. Price filters apply to the current highest amount.
func (r *ItemRepo) Search(ctx context.Context, q domain.ItemQuery) ([]domain.Item, error) {
	where := `i.item_state = 'active' AND i.frozen = 0`
	args := []any{}
	if q.Q != "" {
		where += ` AND (LOWER(i.name) LIKE ? ESCAPE '\' OR LOWER(i.description) LIKE ? ESCAPE '\')`
		like := containsPattern(q.Q)
		args = append(args, like, like)
	}
	price := `COALESCE(cb.amount, i.init_price)`
	if q.Min != nil {
		where += ` AND ` + price + ` >= ?`
		args = append(args, *q.Min)
	}
	if q.Max != nil {
		where += ` AND ` + price + ` <= ?`
		args = append(args, *q.Max)
	}

	order := `i.start_date`
	if q.Sort == "price" {
		order = price
	}
	dir := `DESC`
	if q.Order == "asc" {
		dir = `ASC`
	}
	query := itemSelect + `
  WHERE ` + where + `
  ORDER BY ` + order + ` ` + dir + `, i.id
  LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	var rows []itemRow
	if err := r.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rowsToItems(rows), nil
}

// RecentlySold lists completed items with a sold bid, latest end first.
func (r *ItemRepo) RecentlySold(ctx context.Context, limit int) ([]domain.Item, error) {
	var rows []itemRow
	err := r.DB.SelectContext(ctx, &rows, itemSelect+`
  WHERE i.item_state = 'completed' AND i.sold_bid_id IS NOT NULL AND i.frozen = 0
  ORDER BY i.end_date DESC
  LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return rowsToItems(rows), nil
}

func (r *ItemRepo) BySeller(ctx context.Context, sellerID string) ([]domain.Item, error) {
	var rows []itemRow
	if err := r.DB.SelectContext(ctx, &rows, itemSelect+`
  WHERE i.seller_id = ?
  ORDER BY i.created_at DESC, i.id`, sellerID); err != nil {
		return nil, err
	}
	return rowsToItems(rows), nil
}

// All is the full item snapshot used by reports.
func (r *ItemRepo) All(ctx context.Context) ([]domain.Item, error) {
	var rows []itemRow
	if err := r.DB.SelectContext(ctx, &rows, itemSelect+` ORDER BY i.created_at, i.id`); err != nil {
		return nil, err
	}
	return rowsToItems(rows), nil
}
