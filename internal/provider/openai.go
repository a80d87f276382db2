package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ent0n29/lankachat/internal/reliability"
)

// OpenAIProvider calls an OpenAI-compatible chat completions API through the SDK.
type OpenAIProvider struct {
	name        string
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

func NewOpenAIProvider(d Descriptor) *OpenAIProvider {
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
		model = "gpt-4o-mini"
	}

	return &OpenAIProvider{
		name:        d.Name,
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: d.Temperature,
		maxTokens:   d.MaxTokens,
		timeout:     timeout,
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if p.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.maxTokens))
	}
	if p.temperature > 0 {
		params.Temperature = openai.Float(p.temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &reliability.StatusError{Code: apiErr.StatusCode, Body: truncate(apiErr.Error(), 512)}
		}
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", reliability.ErrMalformed)
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", reliability.ErrEmptyReply
	}
	return text, nil
}
