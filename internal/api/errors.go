package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/songcraft/songcraft-api/internal/api/shared"
	"github.com/songcraft/songcraft-api/internal/domain"
	"github.com/songcraft/songcraft-api/internal/service"
	"github.com/songcraft/songcraft-api/internal/service/auth"
	"github.com/songcraft/songcraft-api/internal/store"
)

// domainMessages are validation errors whose text is safe to show.
var domainMessages = []error{
	domain.ErrInvalidDescription,
	domain.ErrInvalidLyrics,
	domain.ErrInvalidTitle,
	domain.ErrInvalidMusicStyle,
	domain.ErrInvalidTone,
	domain.ErrInvalidVideoFormat,
	domain.ErrInvalidImageCount,
	domain.ErrEmptySongUserID,
	domain.ErrEmptySongOrderID,
}

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing internal types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	case errors.Is(err, service.ErrSongNotFound),
		errors.Is(err, store.ErrSongNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrSongExists),
		errors.Is(err, domain.ErrNotReady),
		errors.Is(err, domain.ErrAlreadyDelivered):
		return http.StatusConflict

	case errors.Is(err, service.ErrQueueUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		isValidationErrors(err):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Authentication required"
	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this song"
	case errors.Is(err, service.ErrSongNotFound),
		errors.Is(err, store.ErrSongNotFound):
		return "Song not found"
	case errors.Is(err, service.ErrSongExists):
		return "A song already exists for this order"
	case errors.Is(err, domain.ErrNotReady):
		return "Song is not ready for delivery"
	case errors.Is(err, domain.ErrAlreadyDelivered):
		return "Song was already delivered"
	case errors.Is(err, service.ErrQueueUnavailable):
		return "Song generation is temporarily unavailable, please retry"
	}

	for _, known := range domainMessages {
		if errors.Is(err, known) {
			return capitalize(strings.TrimPrefix(known.Error(), domain.ErrValidation.Error()+": "))
		}
	}
	if errors.Is(err, domain.ErrValidation) {
		return "Invalid request"
	}
	return "An unexpected error occurred"
}

// HandleAPIError writes the status and safe message for err. A non-empty
// message replaces the safe message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

func isValidationErrors(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}

// SanitizeValidationError turns validator failures into a short message
// naming the first offending field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "uuid":
		return "must be a UUID"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gte":
		return "too small"
	default:
		return "validation failed"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
