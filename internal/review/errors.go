package review

import "errors"

// Decision errors, comparable with errors.Is
var (
	ErrNotFound        = errors.New("document not found")
	ErrAlreadyResolved = errors.New("document already resolved")
	ErrNoJobSelected   = errors.New("no job selected and no suggestion available")
	ErrUnknownJob      = errors.New("unknown job")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidAction   = errors.New("invalid action")
)
