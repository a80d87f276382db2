package provider

import (
	"context"
	"sync"
	"time"
)

// Serialized guards a rate-limited provider: at most one call is in flight across
// the process. Waiting for the lock has no timeout.
type Serialized struct {
	inner    Provider
	cooldown time.Duration

	mu sync.Mutex
}

func NewSerialized(inner Provider, cooldown time.Duration) *Serialized {
	return &Serialized{inner: inner, cooldown: cooldown}
}

func (s *Serialized) Name() string { return s.inner.Name() }

func (s *Serialized) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.inner.Complete(ctx, prompt)
	if s.cooldown > 0 {
		time.Sleep(s.cooldown)
	}
	return text, err
}
