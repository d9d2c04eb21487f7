// Package anthropic wraps the Anthropic SDK behind llm.ChatProvider, grounded
// on intelligencedev-manifold's internal/llm/anthropic/client.go. It also
// supports routing through AWS Bedrock (cagent's pattern) as an alternate
// transport for deployments that front Claude through Bedrock instead of
// the direct Anthropic API.
package anthropic

import (
	"context"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ragforge/ragforge/internal/llm"
	"github.com/ragforge/ragforge/internal/rferrors"
	"github.com/ragforge/ragforge/internal/rflog"
)

const defaultMaxTokens = 1024

// Config carries the connection options for a Client. Exactly one
// transport is active: if UseBedrock is set, APIKey/BaseURL are ignored and
// the SDK authenticates through the ambient AWS credential chain instead.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	UseBedrock bool
}

type Client struct {
	sdk   anthropicsdk.Client
	model string
	log   rflog.Logger
}

func New(cfg Config) *Client {
	var opts []option.RequestOption
	if cfg.UseBedrock {
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background()))
	} else {
		opts = append(opts, option.WithAPIKey(strings.TrimSpace(cfg.APIKey)))
		if base := strings.TrimSpace(cfg.BaseURL); base != "" {
			opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
		}
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(anthropicsdk.ModelClaude3_7SonnetLatest)
	}
	return &Client{sdk: anthropicsdk.NewClient(opts...), model: model, log: rflog.Default.With("provider", "anthropic")}
}

func (c *Client) Name() string { return "anthropic" }

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, params llm.ChatParams) (string, error) {
	model := c.model
	if params.Model != "" {
		model = params.Model
	}
	maxTokens := int64(params.MaxTokens)
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	var system string
	converted := make([]anthropicsdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = m.Content
		case "assistant":
			converted = append(converted, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(m.Content)))
		default:
			converted = append(converted, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(m.Content)))
		}
	}

	req := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		Messages:  converted,
		MaxTokens: maxTokens,
	}
	if system != "" {
		req.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}

	c.log.Debug("chat request", "model", model, "messages", len(converted))
	resp, err := c.sdk.Messages.New(ctx, req)
	if err != nil {
		return "", rferrors.LLMProvider("anthropic", model, err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return out.String(), nil
}
