package extract

import (
	"errors"
	"fmt"
)

// Extraction input errors. "No match found" is never an error in this
// package: generators return empty results for that, and callers must treat
// empty as a normal outcome for low-quality source documents.
var (
	// ErrEmptyInput is returned when there is no text and no OCR structure
	// to work on at all. Distinct from "input present, nothing matched".
	ErrEmptyInput = errors.New("extraction input is empty")
)

// ExtractError wraps errors with the operation that failed.
type ExtractError struct {
	Op      string
	Err     error
	Details string
}

func (e *ExtractError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extract: %s failed: %v", e.Op, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

func (e *ExtractError) Is(target error) bool { return errors.Is(e.Err, target) }

// WrapExtractError wraps an error as an ExtractError if it isn't already one.
func WrapExtractError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var xe *ExtractError
	if errors.As(err, &xe) {
		return err
	}
	return &ExtractError{Op: op, Err: err, Details: details}
}
