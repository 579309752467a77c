package cacheadapter

import "errors"

var (
	errAtomicUnsupported = errors.New("wrapped repository does not apply votes atomically")
	errInvalidSize       = errors.New("document cache size must be positive")
	errInvalidTTL        = errors.New("document cache ttl must be positive")
)
