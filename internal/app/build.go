package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ent0n29/lankachat/internal/chat"
	"github.com/ent0n29/lankachat/internal/config"
	"github.com/ent0n29/lankachat/internal/httpapi"
	"github.com/ent0n29/lankachat/internal/memory"
	"github.com/ent0n29/lankachat/internal/observability"
	"github.com/ent0n29/lankachat/internal/provider"
)

const serviceName = "lankachat"

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Chat     *chat.Service
	Store    memory.Store
	Resolver *provider.Resolver
	Metrics  *observability.Metrics
	Tracer   trace.TracerProvider

	// Cleanup should be called on shutdown to flush spans and release the store.
	Cleanup func(ctx context.Context) error
}

// Descriptors turns the configured provider chain into provider descriptors.
func Descriptors(cfg config.Config) []provider.Descriptor {
	out := make([]provider.Descriptor, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		out = append(out, provider.Descriptor{
			Name:        p.Name,
			Kind:        p.Kind,
			Endpoint:    p.Endpoint,
			Model:       p.Model,
			APIKey:      p.APIKey,
			Timeout:     p.Timeout.Duration,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
			Serialize:   p.Serialize,
			Cooldown:    p.Cooldown.Duration,
		})
	}
	return out
}

func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetricsWith(reg, cfg.MetricsNamespace)

	tp, shutdownTracing, err := observability.NewTracerProvider(ctx, serviceName, cfg.TracesFile)
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	providers, err := provider.NewChain(Descriptors(cfg))
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("provider chain init failed: %w", err)
	}

	if memory.BackendOf(cfg.DatabaseURL) == memory.BackendInMemory {
		logger.Warn("DATABASE_URL is not set; turns are kept in memory and lost on restart")
	}
	store, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("memory store init failed: %w", err)
	}

	resolver := provider.NewResolver(providers, cfg.FallbackReply,
		provider.WithLogger(logger.Named("resolver")),
		provider.WithMetrics(metrics),
		provider.WithTracer(tp),
	)
	service := chat.NewService(store, resolver, chat.Config{
		Persona:      cfg.Persona,
		HistoryLimit: cfg.HistoryLimit,
	}, logger.Named("chat"), metrics, tp)

	api := httpapi.New(cfg, service, store, metrics, logger.Named("http"))

	cleanup := func(ctx context.Context) error {
		var errs []string
		if err := shutdownTracing(ctx); err != nil {
			errs = append(errs, err.Error())
		}
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return errors.New(strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Chat:     service,
		Store:    store,
		Resolver: resolver,
		Metrics:  metrics,
		Tracer:   tp,
		Cleanup:  cleanup,
	}, nil
}
