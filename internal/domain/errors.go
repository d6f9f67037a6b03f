package domain

import "errors"

var (
	ErrInvalidParameter      = errors.New("invalid parameter")
	ErrNotFound              = errors.New("not found")
	ErrCapacityExceeded      = errors.New("capacity exceeded")
	ErrIndexOutOfRange       = errors.New("index out of range")
	ErrInactiveLevel         = errors.New("level is inactive")
	ErrAlreadyActive         = errors.New("level is already active")
	ErrAlreadyInactive       = errors.New("level is already inactive")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNothingToClaim        = errors.New("nothing to claim")
	ErrDivisionHazard        = errors.New("deposit against zero total shares")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrAlreadyExists         = errors.New("already exists")
)
