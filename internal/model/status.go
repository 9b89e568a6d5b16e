package model

import (
	"errors"
	"fmt"
)

// LogStatus is the lifecycle state of a ProcessingLog entry
type LogStatus string

const (
	LogProcessing LogStatus = "processing"
	LogCompleted  LogStatus = "completed"
	LogFailed     LogStatus = "failed"
)

// DocumentStatus is the review state of a PendingDocument
type DocumentStatus string

const (
	StatusPending  DocumentStatus = "pending"
	StatusApproved DocumentStatus = "approved"
	StatusRejected DocumentStatus = "rejected"
)

// ErrIllegalTransition is returned for any move out of a terminal review state
var ErrIllegalTransition = errors.New("illegal status transition")

// Terminal reports whether no further transition is defined from s
func (s DocumentStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Transition validates moving from s to next. Only pending -> approved and
// pending -> rejected are legal.
func (s DocumentStatus) Transition(next DocumentStatus) error {
	if s == StatusPending && next.Terminal() {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s, next)
}
