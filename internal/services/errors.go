package services

import (
	"errors"
	"fmt"

	"marketplace-chat/internal/repositories"
)

// Failure kinds surfaced to the transport layers.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
)

// notFound converts repository misses into ErrNotFound and passes other
// errors through with context.
func notFound(err error, what string) error {
	if errors.Is(err, repositories.ErrConversationNotFound) || errors.Is(err, repositories.ErrUserNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
