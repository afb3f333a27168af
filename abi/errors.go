package abi

import "errors"

var (
	// ErrTruncatedInput is returned when fewer bytes remain than a type requires
	ErrTruncatedInput = errors.New("abi: truncated input")

	// ErrInvalidOffset is returned when a dynamic offset or length points outside the buffer
	ErrInvalidOffset = errors.New("abi: invalid offset")

	// ErrTypeMismatch is returned when bytes or a value cannot be represented by the declared type
	ErrTypeMismatch = errors.New("abi: type mismatch")

	// ErrInvalidType is returned for malformed type descriptors
	ErrInvalidType = errors.New("abi: invalid type")
)
