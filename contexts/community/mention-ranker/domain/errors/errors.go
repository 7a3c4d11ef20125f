package errors

import "errors"

var (
	ErrCreatorRequired = errors.New("creator id is required")
	ErrInvalidRequest  = errors.New("invalid request")
)
