// Package chat runs one conversation exchange: store the user turn, build the
// prompt from recent history, resolve a reply and store it.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/ent0n29/lankachat/internal/memory"
	"github.com/ent0n29/lankachat/internal/observability"
	"github.com/ent0n29/lankachat/internal/policy"
	"github.com/ent0n29/lankachat/internal/prompt"
	"github.com/ent0n29/lankachat/internal/provider"
)

// Message is an inbound chat message.
type Message struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
	Text string `json:"text"`
}

// Reply is the produced answer. Fallback is set when no provider answered.
type Reply struct {
	ExchangeID string `json:"-"`
	Text       string `json:"reply"`
	Provider   string `json:"-"`
	Fallback   bool   `json:"-"`
}

// ErrInvalidRole rejects inbound roles other than user.
var ErrInvalidRole = errors.New("role must be \"user\"")

// ValidationError reports an unusable inbound message.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Resolver produces a reply for a prompt; it never fails.
type Resolver interface {
	Resolve(ctx context.Context, prompt string) provider.Result
}

type Config struct {
	Persona      string
	HistoryLimit int
}

type Service struct {
	store    memory.Store
	resolver Resolver
	cfg      Config
	logger   *zap.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer
}

func NewService(store memory.Store, resolver Resolver, cfg Config, logger *zap.Logger, metrics *observability.Metrics, tp trace.TracerProvider) *Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = memory.DefaultRecentLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Service{
		store:    store,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		tracer:   tp.Tracer(observability.TracerName),
	}
}

// Normalize validates msg and returns it with a canonical role.
func Normalize(msg Message) (Message, error) {
	msg.UID = strings.TrimSpace(msg.UID)
	if msg.UID == "" {
		return Message{}, &ValidationError{Field: "uid", Reason: "must not be empty"}
	}
	if strings.TrimSpace(msg.Text) == "" {
		return Message{}, &ValidationError{Field: "text", Reason: "must not be empty"}
	}
	role := strings.ToLower(strings.TrimSpace(msg.Role))
	if role == "" {
		role = memory.RoleUser
	}
	if role != memory.RoleUser {
		return Message{}, &ValidationError{Field: "role", Reason: fmt.Sprintf("%q is not accepted", msg.Role), Err: ErrInvalidRole}
	}
	msg.Role = role
	return msg, nil
}

// Handle stores the user turn, resolves a reply and stores it as an assistant
// turn. Store failures are returned; provider failures end in the fallback reply.
// The two inserts are independent: a failure between them leaves the user turn.
func (s *Service) Handle(ctx context.Context, msg Message) (Reply, error) {
	msg, err := Normalize(msg)
	if err != nil {
		return Reply{}, err
	}

	exchangeID := uuid.NewString()
	uidHash := policy.HashID(msg.UID)
	ctx, span := s.tracer.Start(ctx, "chat.handle", trace.WithAttributes(
		attribute.String("chat.exchange_id", exchangeID),
		attribute.String("chat.uid_hash", uidHash),
	))
	defer span.End()
	log := s.logger.With(zap.String("exchange_id", exchangeID), zap.String("uid_hash", uidHash))

	userSeq, err := s.store.Append(ctx, msg.UID, msg.Role, msg.Text)
	if err != nil {
		return Reply{}, s.storageFailure(span, log, "append_user", err)
	}

	// Once the user turn is stored the exchange runs to completion even if the
	// caller goes away.
	ctx = context.WithoutCancel(ctx)

	history, err := s.store.Recent(ctx, msg.UID, s.cfg.HistoryLimit+1)
	if err != nil {
		return Reply{}, s.storageFailure(span, log, "recent", err)
	}
	history = withoutTurn(history, userSeq)
	if len(history) > s.cfg.HistoryLimit {
		history = history[len(history)-s.cfg.HistoryLimit:]
	}

	assembled := prompt.Assemble(s.cfg.Persona, history, msg.Text)
	res := s.resolver.Resolve(ctx, assembled)
	span.SetAttributes(
		attribute.Int("chat.history_turns", len(history)),
		attribute.Bool("chat.fallback", res.Fallback),
		attribute.String("chat.provider", res.Provider),
	)

	if _, err := s.store.Append(ctx, msg.UID, memory.RoleAssistant, res.Text); err != nil {
		return Reply{}, s.storageFailure(span, log, "append_assistant", err)
	}

	log.Info("chat exchange completed",
		zap.Int("history_turns", len(history)),
		zap.String("provider", res.Provider),
		zap.Bool("fallback", res.Fallback),
		zap.Int("misses", len(res.Misses)),
	)
	return Reply{
		ExchangeID: exchangeID,
		Text:       res.Text,
		Provider:   res.Provider,
		Fallback:   res.Fallback,
	}, nil
}

func (s *Service) storageFailure(span trace.Span, log *zap.Logger, op string, err error) error {
	s.metrics.ObserveStorageError(op)
	span.SetStatus(codes.Error, op)
	span.RecordError(err)
	log.Error("turn store failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

// withoutTurn drops the turn with the given sequence id so the new message is not
// repeated in the history block.
func withoutTurn(turns []memory.Turn, seq int64) []memory.Turn {
	out := make([]memory.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Seq != seq {
			out = append(out, t)
		}
	}
	return out
}
