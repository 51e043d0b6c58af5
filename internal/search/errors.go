package search

import "errors"

// ErrUnknownPolicy is returned by ParsePolicy for an unrecognized name.
var ErrUnknownPolicy = errors.New("unknown traversal policy")
