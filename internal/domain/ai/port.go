package ai

import "context"

// Client sends one chat completion and returns the raw reply text.
type Client interface {
	Complete(ctx context.Context, req InferenceRequest) (string, error)
}

// ConfigChecker is implemented by clients that can report missing configuration
// before a request is built.
type ConfigChecker interface {
	CheckConfig() error
}
