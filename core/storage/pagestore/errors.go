package pagestore

import "errors"

// --- Error Definitions ---

var (
	ErrNodeNotFound = errors.New("node page not found")
	ErrShortRead    = errors.New("short read: page smaller than page size")
	ErrIO           = errors.New("i/o error")
)
