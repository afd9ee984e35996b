package agent

import (
	"context"
	"iter"
)

// TextModel is an external text generation capability.
type TextModel interface {
	// Generate returns one complete reply.
	Generate(ctx context.Context, system, user string) (string, error)

	// Stream yields reply fragments in order. A non-nil error ends the stream.
	Stream(ctx context.Context, system, user string) iter.Seq2[string, error]
}

// Ensure GeminiClient implements TextModel.
var _ TextModel = (*GeminiClient)(nil)
