package engine

import (
	"errors"
	"fmt"

	"lspedit/types"
)

// ErrRange matches every *RangeError via errors.Is.
var ErrRange = errors.New("invalid range")

// RangeError reports a range that stays inverted after normalization and
// clamping against the buffer.
type RangeError struct {
	Range  types.Range
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range %s: %s", e.Range, e.Reason)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrRange
}
