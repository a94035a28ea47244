package intake

import (
	"errors"
	"fmt"
)

// EmptyInputError is returned when the submission is blank after trimming.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string { return "no code provided" }

// OversizeError is returned when the submission exceeds the size limit.
type OversizeError struct {
	Limit int
	Size  int
	// Truncated is set when reading stopped at the limit, so Size is a lower bound.
	Truncated bool
}

func (e *OversizeError) Error() string {
	if e.Truncated {
		return fmt.Sprintf("input exceeds the %d byte limit", e.Limit)
	}
	return fmt.Sprintf("input is %d bytes, limit is %d", e.Size, e.Limit)
}

// NotTextError is returned for binary content.
type NotTextError struct {
	Filename string
}

func (e *NotTextError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("%s does not look like a text file", e.Filename)
	}
	return "input does not look like text"
}

// UnsupportedFileError is returned for uploads that are not Python files.
type UnsupportedFileError struct {
	Filename string
}

func (e *UnsupportedFileError) Error() string {
	return fmt.Sprintf("%q is not a Python file (.py, .pyw, .pyi)", e.Filename)
}

// IsValidationError reports whether err is one of the intake validation errors.
func IsValidationError(err error) bool {
	var (
		empty    *EmptyInputError
		oversize *OversizeError
		notText  *NotTextError
		file     *UnsupportedFileError
	)
	return errors.As(err, &empty) || errors.As(err, &oversize) ||
		errors.As(err, &notText) || errors.As(err, &file)
}
