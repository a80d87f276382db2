package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/ent0n29/lankachat/internal/observability"
	"github.com/ent0n29/lankachat/internal/policy"
	"github.com/ent0n29/lankachat/internal/reliability"
)

// Result is the outcome of a Resolve call. Fallback is set when every provider
// missed and Text is the fixed fallback reply.
type Result struct {
	Text     string
	Provider string
	Fallback bool
	Misses   []*reliability.Miss
}

// Resolver tries providers in fixed priority order and returns the first
// non-empty reply.
type Resolver struct {
	providers []Provider
	fallback  string
	logger    *zap.Logger
	metrics   *observability.Metrics
	tracer    trace.Tracer
}

type ResolverOption func(*Resolver)

func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(metrics *observability.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = metrics }
}

func WithTracer(tp trace.TracerProvider) ResolverOption {
	return func(r *Resolver) {
		if tp != nil {
			r.tracer = tp.Tracer(observability.TracerName)
		}
	}
}

func NewResolver(providers []Provider, fallback string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		providers: providers,
		fallback:  fallback,
		logger:    zap.NewNop(),
		tracer:    noop.NewTracerProvider().Tracer(observability.TracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Providers returns the chain in priority order.
func (r *Resolver) Providers() []Provider {
	return r.providers
}

// Resolve never fails: when every provider misses it returns the fallback text.
// Issued calls are detached from the caller's cancellation and run until their
// own timeout.
func (r *Resolver) Resolve(ctx context.Context, prompt string) Result {
	callCtx := context.WithoutCancel(ctx)

	var misses []*reliability.Miss
	for _, p := range r.providers {
		text, err := r.attempt(callCtx, p, prompt)
		if err == nil {
			return Result{Text: text, Provider: p.Name(), Misses: misses}
		}

		miss := reliability.NewMiss(p.Name(), err)
		misses = append(misses, miss)
		r.logger.Warn("provider miss, trying next",
			zap.String("provider", p.Name()),
			zap.String("reason", string(miss.Reason)),
			zap.Bool("retryable", miss.Retryable()),
			zap.String("error", policy.ForLog(miss.Err.Error())),
		)
	}

	r.metrics.ObserveFallback()
	r.logger.Error("all providers missed, answering with fallback reply",
		zap.Int("providers", len(r.providers)),
	)
	return Result{Text: r.fallback, Fallback: true, Misses: misses}
}

func (r *Resolver) attempt(ctx context.Context, p Provider, prompt string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "provider.attempt", trace.WithAttributes(
		attribute.String("provider.name", p.Name()),
		attribute.Int("prompt.chars", len(prompt)),
	))
	defer span.End()

	start := time.Now()
	text, err := p.Complete(ctx, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = reliability.ErrEmptyReply
	}
	elapsed := time.Since(start)

	if err != nil {
		reason := reliability.Classify(err)
		r.metrics.ObserveProviderAttempt(p.Name(), string(reason), elapsed)
		span.SetStatus(codes.Error, string(reason))
		span.RecordError(errors.New(policy.ForLog(err.Error())))
		return "", err
	}

	r.metrics.ObserveProviderAttempt(p.Name(), "ok", elapsed)
	span.SetAttributes(attribute.Int("reply.chars", len(text)))
	r.logger.Debug("provider replied",
		zap.String("provider", p.Name()),
		zap.Duration("elapsed", elapsed),
	)
	return text, nil
}
