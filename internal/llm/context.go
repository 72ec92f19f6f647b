package llm

import "context"

type callKey struct{}

// CallInfo labels an LLM request for the request log. Empty fields are
// omitted from log lines.
type CallInfo struct {
	Purpose      string
	ExamID       string
	CompetencyID string
}

// WithCall attaches call labels to ctx.
func WithCall(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callKey{}, info)
}

// CallFrom returns the labels attached to ctx. Purpose defaults to
// "unknown".
func CallFrom(ctx context.Context) CallInfo {
	info, _ := ctx.Value(callKey{}).(CallInfo)
	if info.Purpose == "" {
		info.Purpose = "unknown"
	}
	return info
}

// WithPurpose sets only the purpose label, keeping any other labels.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	info, _ := ctx.Value(callKey{}).(CallInfo)
	info.Purpose = purpose
	return WithCall(ctx, info)
}

// PurposeFrom is CallFrom(ctx).Purpose.
func PurposeFrom(ctx context.Context) string {
	return CallFrom(ctx).Purpose
}
