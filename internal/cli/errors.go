package cli

import (
	"errors"
	"fmt"

	"github.com/pileo/discovery/internal/discovery"
)

var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// describeError turns structured discovery errors into friendly usage errors
// carrying the error code, the input and the JSON Pointer when known.
func describeError(err error, input string) error {
	var de *discovery.Error
	if !errors.As(err, &de) {
		return err
	}
	msg := fmt.Sprintf("%s\nCode: %s", de.Message, de.Code)
	if input != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, input)
	}
	if de.Pointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, de.Pointer)
	}
	return usageError{msg: msg}
}
