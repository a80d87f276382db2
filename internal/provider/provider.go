// Package provider talks to external text-generation endpoints and resolves a
// reply by trying them in priority order.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Provider is one external text-generation endpoint.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Kinds of provider a Descriptor can build.
const (
	KindHTTP      = "http"
	KindOpenAI    = "openai"
	KindAnthropic = "anthropic"
	KindMock      = "mock"
)

// DefaultTimeout bounds a single provider call when a descriptor sets none.
const DefaultTimeout = 18 * time.Second

// Descriptor describes how to reach one provider: endpoint, request shape (Kind)
// and auth. APIKey is resolved from env or keyring before construction.
type Descriptor struct {
	Name        string
	Kind        string
	Endpoint    string
	Model       string
	APIKey      string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int

	// Serialize allows at most one in-flight call to this provider process-wide,
	// followed by Cooldown while the lock is still held.
	Serialize bool
	Cooldown  time.Duration
}

// New builds the provider a descriptor names.
func New(d Descriptor) (Provider, error) {
	if strings.TrimSpace(d.Name) == "" {
		return nil, errors.New("provider name is required")
	}
	if d.Timeout <= 0 {
		d.Timeout = DefaultTimeout
	}

	var p Provider
	switch strings.ToLower(strings.TrimSpace(d.Kind)) {
	case KindHTTP, "":
		if strings.TrimSpace(d.Endpoint) == "" {
			return nil, fmt.Errorf("provider %s: endpoint is required for http kind", d.Name)
		}
		p = NewHTTPProvider(d)
	case KindOpenAI:
		p = NewOpenAIProvider(d)
	case KindAnthropic:
		if strings.TrimSpace(d.APIKey) == "" {
			return nil, fmt.Errorf("provider %s: api key is required for anthropic kind", d.Name)
		}
		p = NewAnthropicProvider(d)
	case KindMock:
		p = NewMockProvider(d.Name)
	default:
		return nil, fmt.Errorf("provider %s: unsupported kind %q", d.Name, d.Kind)
	}

	if d.Serialize {
		p = NewSerialized(p, d.Cooldown)
	}
	return p, nil
}

// NewChain builds providers in the given priority order.
func NewChain(descriptors []Descriptor) ([]Provider, error) {
	if len(descriptors) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	seen := make(map[string]bool, len(descriptors))
	out := make([]Provider, 0, len(descriptors))
	for _, d := range descriptors {
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate provider name %q", d.Name)
		}
		seen[d.Name] = true
		p, err := New(d)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
