package archie

import "context"

// NoTextSentinel is returned when the backend's reply carries no text part.
const NoTextSentinel = "The model returned no text."

// providerClient is the internal interface each generation backend implements.
// Implementations return errors already mapped into the taxonomy.
type providerClient interface {
	// Generate sends prompt as a single user message to model and returns the
	// first text part of the first candidate, or NoTextSentinel.
	Generate(ctx context.Context, model, prompt string) (string, error)
}
