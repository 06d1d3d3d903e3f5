package entity

import "errors"

var (
	// Source errors
	ErrInvalidSourceURL = errors.New("invalid source url")
	ErrSourceDisabled   = errors.New("source disabled")

	// Task errors
	ErrTaskNotRunning   = errors.New("task not running")
	ErrTaskTerminal     = errors.New("task already in terminal state")
	ErrDuplicateURL     = errors.New("duplicate item url")
	ErrQuotaReached     = errors.New("item quota reached")
	ErrMissingItemDate  = errors.New("item has no resolvable date")
	ErrEmptyItemTitle   = errors.New("item title is empty")
)
