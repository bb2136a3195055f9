package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks failures of external binaries (ffmpeg, whisper).
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks bad client input (empty question, no scope content).
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration (missing API key).
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks missing sessions, jobs, or sources.
	ErrNotFound = errors.New("not found")
	// ErrSchema marks language-model output that is not valid JSON or does
	// not match the expected shape.
	ErrSchema = errors.New("schema error")
	// ErrTransient marks retryable upstream failures.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// userFacing carries a message safe to show outside the system boundary
// alongside the internal diagnostic chain.
type userFacing struct {
	err     error
	message string
}

func (u *userFacing) Error() string { return u.err.Error() }

func (u *userFacing) Unwrap() error { return u.err }

func (u *userFacing) UserMessage() string { return u.message }

// WithUserMessage attaches a user-facing message to err. The internal error
// text is preserved for logs; only the attached message should cross the API
// boundary.
func WithUserMessage(err error, message string) error {
	if err == nil {
		return nil
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return err
	}
	return &userFacing{err: err, message: message}
}

// UserMessage extracts the user-facing message from an error chain. When no
// message was attached it returns fallback.
func UserMessage(err error, fallback string) string {
	var carrier interface{ UserMessage() string }
	if errors.As(err, &carrier) {
		if msg := strings.TrimSpace(carrier.UserMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
