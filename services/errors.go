package services

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the session manager. Callers classify with errors.Is.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("session not found")
	ErrIndexing       = errors.New("indexing failed")
	ErrGeneration     = errors.New("generation failed")
	ErrCleanupFailure = errors.New("collection cleanup failed")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func indexingError(stage string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIndexing, stage, err)
}

func generationError(stage string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrGeneration, stage, err)
}
