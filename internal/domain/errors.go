package domain

import (
	"errors"
	"fmt"
)

var (
	ErrJobNotFound        = errors.New("asset job not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrBusy               = errors.New("generation already running")
	ErrNoImages           = errors.New("no reference images")
	ErrInvalidKind        = errors.New("invalid asset kind")
	ErrInvalidAspect      = errors.New("invalid aspect ratio")
	ErrInvalidBackground  = errors.New("invalid background style")
	ErrInvalidLayout      = errors.New("invalid layout style")
	ErrSceneIndex         = errors.New("scene index out of range")
	ErrImageIndex         = errors.New("image index out of range")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// ProviderErrorKind classifies failures returned by a generation provider.
type ProviderErrorKind string

const (
	ProviderPermission   ProviderErrorKind = "permission"
	ProviderTransient    ProviderErrorKind = "transient"
	ProviderInvalidInput ProviderErrorKind = "invalid_input"
	ProviderEmpty        ProviderErrorKind = "empty"
)

// ProviderError is returned by provider clients so callers can branch on the
// failure class instead of the message text.
type ProviderError struct {
	Kind    ProviderErrorKind
	Status  int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ClassifyStatus maps an HTTP status code onto a provider error kind.
func ClassifyStatus(status int) ProviderErrorKind {
	switch {
	case status == 401 || status == 403 || status == 404:
		return ProviderPermission
	case status == 429 || status >= 500:
		return ProviderTransient
	default:
		return ProviderInvalidInput
	}
}

// IsPermissionError reports whether err means the current credential cannot
// be used and a new one should be selected.
func IsPermissionError(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == ProviderPermission
	}
	return false
}

// ProviderErrorKindOf returns the kind of a wrapped provider error, or empty.
func ProviderErrorKindOf(err error) ProviderErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
