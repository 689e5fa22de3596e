package batch

import "errors"

// ErrExceedsCapacity is returned when a single primitive needs more room than an empty buffer has.
var ErrExceedsCapacity = errors.New("primitive exceeds buffer capacity")
