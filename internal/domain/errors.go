package domain

import "errors"

var (
	// ErrInvalidMaxScore is returned when an attempt's max score is not positive.
	ErrInvalidMaxScore = errors.New("max score must be positive")
	// ErrScoreOutOfRange is returned when a score falls outside [0, maxScore].
	ErrScoreOutOfRange = errors.New("score out of range")
	// ErrUnknownAddressType is returned for types other than IPv4, IPv6, MAC and none.
	ErrUnknownAddressType = errors.New("unknown address type")
	// ErrCorruptState indicates persisted scores could not be decoded.
	ErrCorruptState = errors.New("corrupt score state")
	// ErrQuestionNotFound indicates the answered question was never issued or has expired.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidChoice indicates an answer choice outside the offered set.
	ErrInvalidChoice = errors.New("invalid answer choice")
	// ErrInvalidLevels is returned for an empty or descending level ladder.
	ErrInvalidLevels = errors.New("invalid level ladder")
)
