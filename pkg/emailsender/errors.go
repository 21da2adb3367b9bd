package emailsender

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateEmailNames is returned when two declared emails share a
	// name. Names are the state keys, so nothing is sent in that case.
	ErrDuplicateEmailNames = errors.New("email names must be unique")
	ErrTooManyPending      = errors.New("can only send one email at a time")
)

// UnknownAliasError reports an audience alias the resolver does not know.
type UnknownAliasError struct {
	Alias string
}

func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("unknown alias: %s", e.Alias)
}

// TooManyPendingError lists the pending emails when more than one is found.
type TooManyPendingError struct {
	Names []string
}

func (e *TooManyPendingError) Error() string {
	return fmt.Sprintf("%s: %d pending (%s)", ErrTooManyPending, len(e.Names), strings.Join(e.Names, ", "))
}

func (e *TooManyPendingError) Is(target error) bool {
	return target == ErrTooManyPending
}
