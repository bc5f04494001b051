package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var gatewayTracer = otel.Tracer("lakeside.internal.chat.gateway")

const (
	defaultGatewayPath    = "/chat/completions"
	defaultGatewayModel   = "gpt-4o-mini"
	defaultGatewayTimeout = 10 * time.Second
	gatewayTemperature    = 0.3
	maxGatewayBody        = 1 << 20
)

// GatewayConfig describes the chat-completion endpoint.
type GatewayConfig struct {
	Enabled bool
	APIKey  string
	BaseURL string
	Path    string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Gateway calls an OpenAI-compatible chat-completion endpoint.
type Gateway struct {
	enabled bool
	apiKey  string
	url     string
	model   string
	timeout time.Duration
	http    *http.Client
}

// NewGateway builds a client. A disabled or keyless config yields a gateway
// whose Configured method reports false.
func NewGateway(cfg GatewayConfig) *Gateway {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = defaultGatewayPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGatewayModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Gateway{
		enabled: cfg.Enabled,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		url:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/") + path,
		model:   model,
		timeout: timeout,
		http:    client,
	}
}

// Configured reports whether the gateway may be called.
func (g *Gateway) Configured() bool {
	return g != nil && g.enabled && g.apiKey != ""
}

// GatewayRequest is one completion call.
type GatewayRequest struct {
	System  string
	History []Turn
	Message string
}

// Complete sends the conversation and returns the raw, unsanitized content
// of the first choice.
func (g *Gateway) Complete(ctx context.Context, req GatewayRequest) (RawReply, error) {
	if !g.Configured() {
		return nil, ErrGatewayDisabled
	}
	ctx, span := gatewayTracer.Start(ctx, "chat.gateway.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("lakeside.gateway.model", g.model),
		attribute.Int("lakeside.gateway.history", len(req.History)),
	)

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	for _, turn := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Message})

	body, err := json.Marshal(openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: gatewayTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, g.fail(span, fmt.Errorf("chat: encode gateway request: %w", err))
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, g.fail(span, fmt.Errorf("chat: build gateway request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return nil, g.fail(span, fmt.Errorf("chat: gateway request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayBody))
	if err != nil {
		return nil, g.fail(span, fmt.Errorf("chat: read gateway response: %w", err))
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, g.fail(span, fmt.Errorf("%w: %s", ErrGatewayStatus, resp.Status))
	}

	var completion openai.ChatCompletionResponse
	if err := json.Unmarshal(data, &completion); err != nil {
		return nil, g.fail(span, fmt.Errorf("%w: %v", ErrGatewayUnusable, err))
	}
	if len(completion.Choices) == 0 {
		return nil, g.fail(span, fmt.Errorf("%w: no choices", ErrGatewayUnusable))
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return nil, g.fail(span, fmt.Errorf("%w: empty content", ErrGatewayUnusable))
	}
	return RawReply(content), nil
}

func (g *Gateway) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
