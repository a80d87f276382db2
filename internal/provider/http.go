package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/lankachat/internal/reliability"
)

// HTTPProvider POSTs an OpenAI chat-completions shaped body to an exact endpoint
// URL, the way the pollinations.ai gateway expects it.
type HTTPProvider struct {
	name        string
	url         string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	client      *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

func NewHTTPProvider(d Descriptor) *HTTPProvider {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPProvider{
		name:        d.Name,
		url:         strings.TrimSpace(d.Endpoint),
		model:       strings.TrimSpace(d.Model),
		apiKey:      d.APIKey,
		temperature: d.Temperature,
		maxTokens:   d.MaxTokens,
		timeout:     timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *HTTPProvider) Name() string { return p.name }

func (p *HTTPProvider) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	payload, err := json.Marshal(chatCompletionRequest{
		Model:       p.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	res, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", &reliability.StatusError{Code: res.StatusCode, Body: truncate(string(body), 512)}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return parseCompletion(body)
}

func parseCompletion(body []byte) (string, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", fmt.Errorf("%w: %v", reliability.ErrMalformed, err)
	}

	text, ok := choiceContent(obj)
	if !ok {
		text, ok = extractText(obj)
	}
	if !ok {
		return "", fmt.Errorf("%w: no reply text in response", reliability.ErrMalformed)
	}
	if strings.TrimSpace(text) == "" {
		return "", reliability.ErrEmptyReply
	}
	return text, nil
}

// choiceContent reads choices[0].message.content.
func choiceContent(obj map[string]any) (string, bool) {
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := first["message"].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := msg["content"].(string)
	return content, ok
}

func extractText(obj map[string]any) (string, bool) {
	for _, k := range []string{"text", "output", "message", "reply"} {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}
