package types

import "errors"

var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrIncompatibleRecord = errors.New("record format is newer than supported")
	ErrQueueFull          = errors.New("save queue is full")
	ErrClosed             = errors.New("closed")
)
