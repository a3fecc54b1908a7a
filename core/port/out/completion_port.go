package out

import "context"

// CompletionRequest carries the per-variant generation parameters
type CompletionRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// CompletionPort generates reply text from a prompt
type CompletionPort interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
