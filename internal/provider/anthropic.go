package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ent0n29/lankachat/internal/reliability"
)

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	name        string
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

func NewAnthropicProvider(d Descriptor) *AnthropicProvider {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(d.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if endpoint := strings.TrimSpace(d.Endpoint); endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}

	model := strings.TrimSpace(d.Model)
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	maxTokens := d.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}

	return &AnthropicProvider{
		name:        d.Name,
		client:      anthropic.NewClient(opts...),
		model:       model,
		temperature: d.Temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
	}
}

func (p *AnthropicProvider) Name() string { return p.name }

func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if p.temperature > 0 {
		params.Temperature = anthropic.Float(p.temperature)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &reliability.StatusError{Code: apiErr.StatusCode, Body: truncate(apiErr.Error(), 512)}
		}
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", reliability.ErrEmptyReply
	}
	return out.String(), nil
}
