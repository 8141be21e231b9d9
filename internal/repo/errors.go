package repo

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateChannelID indicates the channel id is already bound to a restaurant.
	ErrDuplicateChannelID = errors.New("channel id already registered")
	// ErrInvalidPrice indicates a negative price was supplied.
	ErrInvalidPrice = errors.New("price must be a non-negative integer")
)
