package errors

import "errors"

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrTokenRequired = errors.New("player token required")
	ErrNameRequired  = errors.New("name required")

	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomBusy          = errors.New("room is busy, retry")
	ErrUnsupportedAction = errors.New("unsupported action")

	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidProfile      = errors.New("invalid profile payload")
	ErrInvalidWalletAmount = errors.New("invalid wallet amount")
	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrInvalidSessionToken = errors.New("invalid session token")
)
