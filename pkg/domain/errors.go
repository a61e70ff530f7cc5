package domain

import "errors"

// ErrRunNotFound is returned when a run id cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")
