// Package textgen wraps the external text-generation collaborator that
// produces qualitative reasoning for risk assessments. The collaborator
// is best-effort: every caller must tolerate ErrUpstreamUnavailable and
// degrade the affected field instead of failing its own operation.
package textgen

import "context"

// Generator produces a short prose completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Noop is a Generator that returns nothing. It stands in when no
// collaborator endpoint is configured.
type Noop struct{}

// Generate returns an empty completion.
func (Noop) Generate(ctx context.Context, prompt string) (string, error) {
	return "", nil
}
