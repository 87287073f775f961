package service

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds surfaced to transports. Everything Assemble returns matches
// exactly one of these with errors.Is, except caller cancellation.
var (
	ErrValidation         = errors.New("invalid request")
	ErrProfileNotFound    = errors.New("driver profile not found")
	ErrProfileUnavailable = errors.New("driver profile unavailable")
	ErrEmbedConfiguration = errors.New("dashboard embed misconfigured")
)

var (
	ErrInvalidDriverID = fmt.Errorf("%w: driver id must be a positive integer", ErrValidation)
	ErrInvalidViewMode = fmt.Errorf("%w: view", ErrValidation)
)

// UserMessage maps an error to the text shown to the person viewing the page.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidDriverID):
		return "The driver id must be a positive whole number."
	case errors.Is(err, ErrInvalidViewMode):
		return "Unknown profile view."
	case errors.Is(err, ErrValidation):
		return "The request is invalid."
	case errors.Is(err, ErrProfileNotFound):
		return "No profile exists for this driver."
	case errors.Is(err, ErrProfileUnavailable):
		return "Driver profiles are temporarily unavailable. Please try again."
	case errors.Is(err, ErrEmbedConfiguration):
		return "The insights dashboard is not available right now."
	case errors.Is(err, context.Canceled):
		return "The request was canceled."
	default:
		return "Failed to fetch driver profile."
	}
}
