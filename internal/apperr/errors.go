// Package apperr defines the error kinds shared by the service, gateway, and tool layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrNotFound             = errors.New("not found")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrStorageConflict      = errors.New("storage conflict")
	ErrInvalidInput         = errors.New("invalid input")
	ErrRateLimited          = errors.New("rate limited")
)

// Wrap tags err with kind so that both errors.Is(err, kind) and the
// original cause survive. A nil err yields nil.
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Kind returns the first known kind err matches, or nil.
func Kind(err error) error {
	for _, k := range []error{
		ErrUnauthorized,
		ErrPermissionDenied,
		ErrNotFound,
		ErrInvalidInput,
		ErrRateLimited,
		ErrEmbeddingUnavailable,
		ErrStorageConflict,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
