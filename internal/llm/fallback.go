package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// FallbackProvider tries the primary provider and, when it fails, the
// secondary. Context cancellation is returned immediately.
type FallbackProvider struct {
	primary   Provider
	secondary Provider
	logger    *zap.Logger
}

// WithFallback chains secondary behind primary.
func WithFallback(primary, secondary Provider, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackProvider{primary: primary, secondary: secondary, logger: logger}
}

func (f *FallbackProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := f.primary.Generate(ctx, req)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	f.logger.Warn("primary LLM provider failed, using fallback",
		zap.String("primary", f.primary.ModelID()),
		zap.String("fallback", f.secondary.ModelID()),
		zap.Error(err))

	resp, fbErr := f.secondary.Generate(ctx, req)
	if fbErr != nil {
		return nil, fmt.Errorf("fallback %s: %w (primary: %v)", f.secondary.ModelID(), fbErr, err)
	}
	return resp, nil
}

// ModelID returns the primary's model.
func (f *FallbackProvider) ModelID() string {
	return f.primary.ModelID()
}
