package lsm

import "errors"

// ErrInvalidRecord is returned by Add when key or value contains the
// newline byte, which the on-disk record framing uses as a separator.
var ErrInvalidRecord = errors.New("lsm: key or value must not contain a newline byte")
