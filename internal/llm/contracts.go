package llm

import "context"

// Completer is the single capability the pipeline needs from a language
// model: prompt in, text out. Implementations wrap transport failures into
// the common taxonomy (ErrRateLimited, ErrTimeout) so the orchestrator can
// decide what is retryable without knowing the provider.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface; used heavily by
// tests to stub the model.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
