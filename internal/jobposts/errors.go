package jobposts

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyQueued = errors.New("ranking already queued or completed")
)
