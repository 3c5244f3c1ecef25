package services

import (
	"context"
	"fmt"

	"auctionhouse/internal/domain"
	"auctionhouse/internal/validate"
)

type AccountService struct {
	Users UserStore
	Sales PurchaseStore
}

func NewAccountService(users UserStore, purchases PurchaseStore) *AccountService {
	return &AccountService{Users: users, Sales: purchases}
}

func self(caller *domain.User, id string) bool { return caller != nil && caller.ID == id }

func (s *AccountService) AddFunds(ctx context.Context, caller *domain.User, buyerID string, amount int64) (int64, error) {
	if !validate.Amount(amount) {
		return 0, fmt.Errorf("%w: amount must be between 1 and %d", domain.ErrValidation, validate.MaxAmount)
	}
	if !self(caller, buyerID) || caller.UserType != domain.UserBuyer {
		return 0, fmt.Errorf("%w: buyers can only fund their own account", domain.ErrForbidden)
	}
	if !caller.CanTransact() {
		return 0, fmt.Errorf("%w: account is frozen or closed", domain.ErrFrozen)
	}
	// the store re-checks frozen/closed in the same write
	return s.Users.AddFunds(ctx, buyerID, amount)
}

func (s *AccountService) Purchases(ctx context.Context, caller *domain.User, buyerID string) ([]domain.Purchase, error) {
	if !self(caller, buyerID) && (caller == nil || caller.UserType != domain.UserAdmin) {
		return nil, fmt.Errorf("%w: not your purchases", domain.ErrForbidden)
	}
	return s.Sales.ByBuyer(ctx, buyerID)
}

// Close is irreversible. Account holders close their own account; admins any account.
func (s *AccountService) Close(ctx context.Context, caller *domain.User, id string) error {
	if !self(caller, id) && (caller == nil || caller.UserType != domain.UserAdmin) {
		return fmt.Errorf("%w: cannot close another account", domain.ErrForbidden)
	}
	if _, err := s.Users.ByID(ctx, id); err != nil {
		return err
	}
	return s.Users.Close(ctx, id)
}

func (s *AccountService) SetFrozen(ctx context.Context, admin *domain.User, id string, frozen bool) (*domain.User, error) {
	if admin == nil || admin.UserType != domain.UserAdmin {
		return nil, fmt.Errorf("%w: admins only", domain.ErrForbidden)
	}
	if admin.ID == id {
		return nil, fmt.Errorf("%w: cannot freeze yourself", domain.ErrValidation)
	}
	if err := s.Users.SetFrozen(ctx, id, frozen); err != nil {
		return nil, err
	}
	return s.Users.ByID(ctx, id)
}

func (s *AccountService) List(ctx context.Context) ([]domain.User, error) {
	return s.Users.List(ctx)
}
