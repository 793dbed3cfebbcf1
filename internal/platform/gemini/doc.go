// Package gemini implements generation.TextGenerator with Google's Gemini
// models through the google.golang.org/genai client.
//
// The generator makes exactly one GenerateContent call per request and
// classifies failures into the generation package's sentinel errors:
//   - API 429 responses map to generation.ErrUnavailable
//   - API 5xx responses and network errors map to generation.ErrTransientFailure
//   - safety stops map to generation.ErrContentBlocked
//   - empty or malformed responses map to generation.ErrInvalidResponse
package gemini
