package session

import (
	"errors"
	"fmt"

	"github.com/opencode-ai/copilot/pkg/types"
)

var (
	// ErrForbidden is returned when a referenced entity exists but does not
	// belong to the requester.
	ErrForbidden = errors.New("forbidden")
	// ErrGenerationFailed is returned when a provider call fails.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrPendingClosed is returned when a pending message is used after it
	// was sealed or discarded.
	ErrPendingClosed = errors.New("pending message already closed")
	// ErrInvalidMessage is returned for a message with an unknown role.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrNotGenerating is returned by Abort when a session has no active generation.
	ErrNotGenerating = errors.New("session not generating")
)

// Forbidden reasons.
const (
	ReasonDifferentSession = "message from different session"
	ReasonDifferentUser    = "request from different user"
)

// ForbiddenError records who was refused what.
type ForbiddenError struct {
	UserID    string
	SessionID string
	MessageID string
	Reason    string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// IsForbidden checks if an error is a forbidden error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// GenerationError wraps a provider failure.
type GenerationError struct {
	SessionID  string
	MessageID  string
	ProviderID string
	Mode       types.Mode
	Err        error
}

func (e *GenerationError) Error() string {
	if e.ProviderID == "" {
		return fmt.Sprintf("generation failed (%s): %v", e.Mode, e.Err)
	}
	return fmt.Sprintf("generation failed (%s via %s): %v", e.Mode, e.ProviderID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}
