package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when lyrics or title generation fails for any general reason
	ErrGenerationFailed = errors.New("generation failed")

	// ErrInvalidResponse is returned when a vendor response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from provider")

	// ErrContentBlocked is returned when the model blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by provider safety filters")

	// ErrTransientFailure is returned for network errors, timeouts and 5xx responses
	ErrTransientFailure = errors.New("transient provider failure")

	// ErrUnavailable is returned when a provider explicitly refuses new work
	// (rate limited, out of credits, maintenance).
	ErrUnavailable = errors.New("provider unavailable")

	// ErrAllProvidersFailed is returned by AudioChain when no provider accepted the job
	ErrAllProvidersFailed = errors.New("all audio providers failed")

	// ErrUnknownProvider is returned when a job handle names a provider that is not configured
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidConfig is returned when a provider configuration is invalid
	ErrInvalidConfig = errors.New("invalid provider configuration")
)
