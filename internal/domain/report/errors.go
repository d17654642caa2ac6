package report

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for an input kind other than text or image.
	ErrInvalidInput = errors.New("invalid input type")

	// ErrResponseParse is returned when the provider reply holds no usable JSON object.
	ErrResponseParse = errors.New("failed to parse AI response")
)

func parseErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrResponseParse, fmt.Sprintf(format, args...))
}
