package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is returned when a phase transition's precondition
	// does not hold. It wraps ErrValidation.
	ErrInvalidTransition = fmt.Errorf("%w: invalid phase transition", ErrValidation)

	ErrEmptySongID        = fmt.Errorf("%w: song ID cannot be empty", ErrValidation)
	ErrEmptySongUserID    = fmt.Errorf("%w: song user ID cannot be empty", ErrValidation)
	ErrEmptySongOrderID   = fmt.Errorf("%w: song order ID cannot be empty", ErrValidation)
	ErrInvalidDescription = fmt.Errorf("%w: description must be between %d and %d characters", ErrValidation, MinDescriptionLength, MaxDescriptionLength)
	ErrInvalidLyrics      = fmt.Errorf("%w: lyrics must be between %d and %d characters", ErrValidation, MinLyricsLength, MaxLyricsLength)
	ErrInvalidTitle       = fmt.Errorf("%w: title must be between 1 and %d characters", ErrValidation, MaxTitleLength)
	ErrInvalidMusicStyle  = fmt.Errorf("%w: invalid music style", ErrValidation)
	ErrInvalidTone        = fmt.Errorf("%w: invalid emotional tone", ErrValidation)
	ErrInvalidVideoFormat = fmt.Errorf("%w: invalid video format", ErrValidation)
	ErrInvalidImageCount  = fmt.Errorf("%w: image count cannot be negative", ErrValidation)
	ErrInvalidContentRef  = fmt.Errorf("%w: content reference must be an http(s) URL", ErrValidation)
	ErrInvalidAudioJob    = fmt.Errorf("%w: audio job needs a provider and an ID", ErrValidation)
	ErrInvalidVideoJob    = fmt.Errorf("%w: video job needs a provider and an ID", ErrValidation)
	ErrInvalidDuration    = fmt.Errorf("%w: duration cannot be negative", ErrValidation)
	ErrInvalidStatus      = fmt.Errorf("%w: invalid phase status", ErrValidation)
	ErrNotReady           = fmt.Errorf("%w: song is not ready for delivery", ErrValidation)
	ErrAlreadyDelivered   = fmt.Errorf("%w: song already delivered", ErrValidation)

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// TransitionError describes a rejected phase transition.
type TransitionError struct {
	Op     string
	Phase  Phase
	Status PhaseStatus
	Want   PhaseStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s: %s is %s, want %s", e.Op, e.Phase, e.Status, e.Want)
}

// Unwrap allows errors.Is(err, ErrInvalidTransition) and ErrValidation.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
