package embedder

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the embedding service could not be reached or
// refused the request in a way that may succeed on retry. Callers check
// for it with errors.Is to decide whether to retry.
var ErrUnavailable = errors.New("embedding service unavailable")

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed returns a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns vector embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int
}

// retryableStatus reports whether an HTTP status from an embedding backend
// is worth retrying. Rate limits, timeouts and server-side failures
// qualify; auth and validation errors do not.
func retryableStatus(code int) bool {
	return code == 408 || code == 429 || code >= 500
}
