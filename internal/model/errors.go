package model

import "errors"

var (
	// ErrNotFound reports that an anchor, occurrence or record does not
	// exist (or was already deleted).
	ErrNotFound = errors.New("model: not found")

	// ErrInvalidRule reports a malformed recurrence rule.
	ErrInvalidRule = errors.New("model: invalid recurrence rule")

	// ErrValidation reports invalid field values on a constructed object
	// or request.
	ErrValidation = errors.New("model: validation failed")
)
