package domain

import "errors"

var (
	ErrValidation        = errors.New("validation error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrFrozen            = errors.New("frozen")
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrConditionFailed   = errors.New("condition failed")
	ErrExpired           = errors.New("auction expired")
	ErrBidTooLow         = errors.New("bid too low")
	ErrBidSuperseded     = errors.New("bid superseded")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
