package generate

import (
	"errors"
	"fmt"
)

// tooBusyError signals that the admission gate could not seat a request in time.
type tooBusyError struct{ modelID string }

func (e tooBusyError) Error() string { return "too busy: " + e.modelID }

// IsTooBusy reports whether err came from admission backpressure.
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// ErrMalformedOutput is returned when the model output is shorter than its input,
// so no continuation can be isolated.
var ErrMalformedOutput = errors.New("model output shorter than input")

func malformed(in, out int) error {
	return fmt.Errorf("%w: input %d tokens, output %d tokens", ErrMalformedOutput, in, out)
}
