package provider

import (
	"context"
	"strings"
)

// MockProvider provides deterministic local replies when no real provider is wired.
type MockProvider struct {
	name string
}

func NewMockProvider(name string) *MockProvider {
	if strings.TrimSpace(name) == "" {
		name = KindMock
	}
	return &MockProvider{name: name}
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) Complete(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return buildMockReply(prompt), nil
}

func buildMockReply(prompt string) string {
	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	last = strings.TrimSpace(strings.TrimPrefix(last, "user:"))
	if last == "" {
		return "I am listening."
	}
	return "I heard you: " + last
}
