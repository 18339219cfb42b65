// Copyright (c) 2024-2025 The bscsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrWrongMessageID is returned when the leading message id byte of a
	// payload does not match the id expected by the decoder.
	ErrWrongMessageID = errors.New("wrong message id")

	// ErrMalformedMessage is returned when a message body fails to decode
	// as the structure required by its message id.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUnknownMessage is returned when decoding a message id that this
	// package has no concrete type for.
	ErrUnknownMessage = errors.New("received unknown message")
)

// MessageError describes an issue with a message such as a failure to decode
// a body or a payload which exceeds the maximum allowed for the message type.
type MessageError struct {
	Func        string // Function name
	Description string // Human readable description of the issue
	Err         error  // Sentinel error for the failure class, if any
}

// Error satisfies the error interface and prints human-readable errors.
func (e *MessageError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%v: %v", e.Func, e.Description)
	}
	return e.Description
}

// Unwrap returns the wrapped failure class so callers can use errors.Is.
func (e *MessageError) Unwrap() error {
	return e.Err
}

// messageError creates an error for the given function and description.
func messageError(f string, desc string) *MessageError {
	return &MessageError{Func: f, Description: desc}
}

// messageErrorWrapped creates an error for the given function and description
// that wraps the passed failure class.
func messageErrorWrapped(f string, desc string, err error) *MessageError {
	return &MessageError{Func: f, Description: desc, Err: err}
}
