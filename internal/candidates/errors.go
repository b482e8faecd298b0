package candidates

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNoResume      = errors.New("no resume uploaded")
	ErrAlreadyQueued = errors.New("parse already queued or completed")
)
