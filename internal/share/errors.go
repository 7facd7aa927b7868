package share

import "errors"

var (
	ErrInvalidShareID  = errors.New("share id must be 3-64 letters, digits, dashes or underscores")
	ErrShareIDTaken    = errors.New("share id is already taken")
	ErrNotFound        = errors.New("this board no longer exists")
	ErrExpired         = errors.New("this board has expired")
	ErrEmptyBoard      = errors.New("board has no items")
	ErrUnresolvedAsset = errors.New("item still references a local blob")
	ErrInvalidRequest  = errors.New("invalid share request")
)
