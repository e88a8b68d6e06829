package domain

import (
	"context"
	"encoding/json"
)

// OracleRequest is one call into the generation oracle.
type OracleRequest struct {
	Prompt      string
	System      string
	Temperature float64
	MaxTokens   int
}

// Oracle is the external text generation capability. Implementations must
// return an error wrapping ErrNoUsableOutput on any failure, including
// timeouts and output that does not contain a JSON object.
type Oracle interface {
	// Generate returns free text.
	Generate(ctx context.Context, req OracleRequest) (string, error)

	// GenerateJSON returns the JSON object extracted from the model output.
	GenerateJSON(ctx context.Context, req OracleRequest) (json.RawMessage, error)
}

// EmbeddingService turns text into a vector.
type EmbeddingService interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}
