package publish

import (
	"errors"
	"fmt"
)

// ErrEmptyDataset reports a data directory with no matching record files.
var ErrEmptyDataset = errors.New("no record files found")

// InvalidInputError is a pre-flight validation failure. No network round-trip
// has been spent when it is returned.
type InvalidInputError struct {
	Dir string
	Err error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s: %v", e.Dir, e.Err)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }
