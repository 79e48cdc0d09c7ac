package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pawnshop-service/internal/provider"
	"pawnshop-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	providerName = "anthropic"

	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens = 1024
	apiVersion       = "2023-06-01"

	maxErrorBody = 4 << 10
	maxLineSize  = 1 << 20
)

// Config holds the client settings
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// Client streams text analyses from the Messages API
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a new analysis client
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: util.GetLogger(),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream"`
	Messages  []message `json:"messages"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze sends the prompt and accumulates the streamed reply. onPartial,
// when set, receives the full text received so far after every delta.
func (c *Client) Analyze(ctx context.Context, prompt string, onPartial func(string)) (string, error) {
	ctx, span := util.StartSpan(ctx, "AnthropicClient.Analyze")
	defer span.End()

	if c.cfg.APIKey == "" {
		return "", provider.NewError(providerName, provider.ErrAuth, errors.New("api key not configured"))
	}

	start := time.Now()
	defer func() {
		util.ProviderCallLatency.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
	}()

	text, err := c.stream(ctx, prompt, onPartial)
	if err != nil {
		util.ProviderErrorsTotal.WithLabelValues(providerName, provider.KindLabel(err)).Inc()
		util.RecordError(span, err)
		return "", err
	}
	return text, nil
}

func (c *Client) stream(ctx context.Context, prompt string, onPartial func(string)) (string, error) {
	reqID := uuid.NewString()

	body, err := json.Marshal(messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Stream:    true,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	c.logger.Debug("Sending analysis request",
		zap.String("req_id", reqID),
		zap.String("model", c.cfg.Model),
		zap.Int("prompt_bytes", len(prompt)))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", provider.NewError(providerName, provider.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("Analysis request rejected",
			zap.String("req_id", reqID),
			zap.Int("status", resp.StatusCode))
		return "", provider.FromStatus(providerName, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	text, err := readStream(resp.Body, onPartial)
	if err != nil {
		return "", err
	}

	c.logger.Debug("Analysis received",
		zap.String("req_id", reqID),
		zap.Int("chars", len(text)))
	return text, nil
}

// readStream consumes server-sent events, keeping only text deltas
func readStream(r io.Reader, onPartial func(string)) (string, error) {
	var full strings.Builder

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)

scan:
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break scan
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Text == "" {
				continue
			}
			full.WriteString(ev.Delta.Text)
			if onPartial != nil {
				onPartial(full.String())
			}
		case "error":
			return "", provider.NewError(providerName, provider.ErrTransport,
				fmt.Errorf("%s: %s", ev.Error.Type, ev.Error.Message))
		case "message_stop":
			break scan
		}
	}

	if err := scanner.Err(); err != nil {
		return "", provider.NewError(providerName, provider.ErrTransport, err)
	}
	// an empty analysis is not a failure; the item still gets priced
	return full.String(), nil
}
