package models

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery marks malformed or empty caller input.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNotFound marks valid input that matched no entity.
	ErrNotFound = errors.New("not found")
	// ErrNoSignal marks a student profile with nothing to rank on.
	ErrNoSignal = errors.New("profile has no interests, skills or preferred areas")
	// ErrCompletionFailed marks an unreachable or failing language model.
	ErrCompletionFailed = errors.New("completion failed")
	// ErrBackendUnavailable marks an unreachable vector index or document store.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// WrapBackend annotates a document-store or embedding failure so that callers
// can match it with ErrBackendUnavailable. Context cancellation is passed through.
func WrapBackend(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBackendUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrBackendUnavailable, err)
}
