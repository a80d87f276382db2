package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ent0n29/lankachat/internal/observability"
	"github.com/ent0n29/lankachat/internal/reliability"
)

type stubProvider struct {
	name  string
	reply string
	err   error
	delay time.Duration
	calls atomic.Int32

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	sawCanceled atomic.Bool
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Complete(ctx context.Context, _ string) (string, error) {
	s.calls.Add(1)
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if ctx.Err() != nil {
		s.sawCanceled.Store(true)
	}
	return s.reply, s.err
}

const testFallback = "sorry, no reply right now"

func TestResolveShortCircuits(t *testing.T) {
	a := &stubProvider{name: "a", err: &reliability.StatusError{Code: 502}}
	b := &stubProvider{name: "b", reply: "ok"}
	c := &stubProvider{name: "c", reply: "unused"}

	res := NewResolver([]Provider{a, b, c}, testFallback).Resolve(context.Background(), "prompt")
	if res.Text != "ok" || res.Provider != "b" || res.Fallback {
		t.Fatalf("Resolve() = %+v, want ok from b", res)
	}
	if c.calls.Load() != 0 {
		t.Fatalf("provider c calls = %d, want 0", c.calls.Load())
	}
	if len(res.Misses) != 1 || res.Misses[0].Provider != "a" || res.Misses[0].Reason != reliability.ReasonStatus {
		t.Fatalf("misses = %+v, want one status miss from a", res.Misses)
	}
}

func TestResolveFallbackOnlyWhenAllMiss(t *testing.T) {
	cases := []struct {
		name         string
		providers    []Provider
		wantFallback bool
		wantText     string
	}{
		{
			name: "all miss",
			providers: []Provider{
				&stubProvider{name: "a", err: context.DeadlineExceeded},
				&stubProvider{name: "b", err: errors.New("connection refused")},
				&stubProvider{name: "c", reply: "   "},
			},
			wantFallback: true,
			wantText:     testFallback,
		},
		{
			name: "last succeeds",
			providers: []Provider{
				&stubProvider{name: "a", err: reliability.ErrMalformed},
				&stubProvider{name: "b", reply: "late but fine"},
			},
			wantText: "late but fine",
		},
		{
			name:         "no providers",
			providers:    nil,
			wantFallback: true,
			wantText:     testFallback,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := NewResolver(tc.providers, testFallback).Resolve(context.Background(), "prompt")
			if res.Fallback != tc.wantFallback || res.Text != tc.wantText {
				t.Fatalf("Resolve() = %+v, want fallback=%v text=%q", res, tc.wantFallback, tc.wantText)
			}
		})
	}
}

func TestResolveCountsAttemptsAndFallbacks(t *testing.T) {
	metrics := observability.NewMetricsWith(prometheus.NewRegistry(), "test")
	r := NewResolver([]Provider{
		&stubProvider{name: "a", err: context.DeadlineExceeded},
		&stubProvider{name: "b", reply: ""},
	}, testFallback, WithMetrics(metrics))

	res := r.Resolve(context.Background(), "prompt")
	if !res.Fallback {
		t.Fatalf("Resolve() fallback = false, want true")
	}
	if got := testutil.ToFloat64(metrics.ProviderAttempts.WithLabelValues("a", "timeout")); got != 1 {
		t.Fatalf("a timeout attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ProviderAttempts.WithLabelValues("b", "empty")); got != 1 {
		t.Fatalf("b empty attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.FallbackReplies); got != 1 {
		t.Fatalf("fallback replies = %v, want 1", got)
	}
}

func TestResolveDetachesCallerCancellation(t *testing.T) {
	p := &stubProvider{name: "a", reply: "still answered"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewResolver([]Provider{p}, testFallback).Resolve(ctx, "prompt")
	if res.Text != "still answered" {
		t.Fatalf("Resolve() = %+v, want provider reply", res)
	}
	if p.sawCanceled.Load() {
		t.Fatalf("provider observed caller cancellation")
	}
}

func TestSerializedProviderAllowsOneCallInFlight(t *testing.T) {
	inner := &stubProvider{name: "limited", reply: "ok", delay: 20 * time.Millisecond}
	limited := NewSerialized(inner, 5*time.Millisecond)
	free := &stubProvider{name: "free", reply: "ok", delay: 20 * time.Millisecond}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = limited.Complete(context.Background(), "prompt")
		}()
		go func() {
			defer wg.Done()
			_, _ = free.Complete(context.Background(), "prompt")
		}()
	}
	wg.Wait()

	if got := inner.maxInFlight.Load(); got != 1 {
		t.Fatalf("serialized max in-flight = %d, want 1", got)
	}
	if got := inner.calls.Load(); got != 6 {
		t.Fatalf("serialized calls = %d, want 6", got)
	}
	if got := free.maxInFlight.Load(); got < 2 {
		t.Fatalf("unserialized max in-flight = %d, want concurrent calls", got)
	}
}

func TestSerializedProviderHoldsLockDuringCooldown(t *testing.T) {
	inner := &stubProvider{name: "limited", reply: "ok"}
	limited := NewSerialized(inner, 30*time.Millisecond)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = limited.Complete(context.Background(), "prompt")
		}()
	}
	wg.Wait()
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Fatalf("three serialized calls took %v, want >= 90ms of cooldown", elapsed)
	}
}
