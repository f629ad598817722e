package protocol

import "errors"

var (
	// errMalformedRequest ends a session without recording an event.
	errMalformedRequest = errors.New("malformed request")

	// errLineTooLong is returned when a client line exceeds maxLineBytes.
	errLineTooLong = errors.New("line too long")

	// errHeadersTooLarge is returned when HTTP headers exceed maxHeaderBytes.
	errHeadersTooLarge = errors.New("request headers too large")
)
