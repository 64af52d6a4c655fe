// CLAUDE:SUMMARY Sentinel errors for the cv domain: not found, invalid input.
package cv

import "errors"

// ErrNotFound is returned when a profile, record or section kind does not exist.
var ErrNotFound = errors.New("cv: not found")

// ErrInvalidInput is returned when a record fails validation on save.
var ErrInvalidInput = errors.New("cv: invalid input")
