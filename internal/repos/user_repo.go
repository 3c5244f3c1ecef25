package repos

import (
	"context"
	"fmt"

	"auctionhouse/internal/domain"
	"auctionhouse/internal/validate"

	"github.com/jmoiron/sqlx"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

type userRow struct {
	ID        string `db:"id"`
	Username  string `db:"username"`
	Hash      string `db:"password_hash"`
	UserType  string `db:"user_type"`
	Funds     int64  `db:"funds"`
	Frozen    bool   `db:"frozen"`
	Closed    bool   `db:"closed"`
	CreatedAt int64  `db:"created_at"`
}

func (r userRow) user() *domain.User {
	return &domain.User{
		ID:        r.ID,
		Username:  r.Username,
		Hash:      r.Hash,
		UserType:  domain.UserType(r.UserType),
		Funds:     r.Funds,
		Frozen:    r.Frozen,
		Closed:    r.Closed,
		CreatedAt: fromMS(r.CreatedAt),
	}
}

const userSelect = `SELECT id,username,password_hash,user_type,funds,frozen,closed,created_at FROM users`

func (r *UserRepo) get(ctx context.Context, where string, arg any) (*domain.User, error) {
	var row userRow
	if err := r.DB.GetContext(ctx, &row, userSelect+` WHERE `+where, arg); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: user", domain.ErrNotFound)
		}
		return nil, err
	}
	return row.user(), nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `id=?`, id)
}

func (r *UserRepo) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.get(ctx, `LOWER(username)=LOWER(?)`, username)
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users(id,username,password_hash,user_type,funds,frozen,closed,created_at)
		VALUES(?,?,?,?,?,0,0,?)`,
		u.ID, u.Username, u.Hash, string(u.UserType), u.Funds, ms(u.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username taken", domain.ErrValidation)
	}
	return err
}

// AddFunds credits a buyer that is neither frozen nor closed and returns the new balance.
func (r *UserRepo) AddFunds(ctx context.Context, id string, amount int64) (int64, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	if err := tx.GetContext(ctx, &current, `SELECT funds FROM users WHERE id=?`, id); err != nil {
		if notFound(err) {
			return 0, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
		}
		return 0, err
	}
	if amount > validate.MaxAmount-current {
		return 0, fmt.Errorf("%w: balance would exceed %d", domain.ErrValidation, validate.MaxAmount)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE users SET funds = funds + ?
		WHERE id=? AND user_type='buyer' AND frozen=0 AND closed=0 AND funds <= ?`, amount, id, validate.MaxAmount-amount)
	if err := affected(res, err, domain.ErrConditionFailed); err != nil {
		return 0, err
	}
	var funds int64
	if err := tx.GetContext(ctx, &funds, `SELECT funds FROM users WHERE id=?`, id); err != nil {
		return 0, err
	}
	return funds, tx.Commit()
}

func (r *UserRepo) SetFrozen(ctx context.Context, id string, frozen bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET frozen=? WHERE id=? AND user_type<>'admin'`, frozen, id)
	return affected(res, err, fmt.Errorf("%w: user %s", domain.ErrNotFound, id))
}

// Close is irreversible; closing an already closed account is an invalid state.
func (r *UserRepo) Close(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET closed=1 WHERE id=? AND closed=0`, id)
	return affected(res, err, domain.ErrInvalidState)
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := r.DB.SelectContext(ctx, &rows, userSelect+` ORDER BY created_at, id`); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.user())
	}
	return out, nil
}
