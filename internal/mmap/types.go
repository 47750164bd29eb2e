package mmap

import "errors"

// AccessPattern is a hint about how mapped data will be accessed.
type AccessPattern int

const (
	AccessDefault AccessPattern = iota
	AccessSequential
	AccessRandom
	AccessWillNeed
)

var (
	// ErrClosed is returned when advising a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the file is too large to map.
	ErrInvalidSize = errors.New("mmap: invalid file size")
)
