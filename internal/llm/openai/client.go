// Package openai wraps the openai-go SDK for both chat completion and
// embedding generation, grounded on the teacher's rag/providers/openai.go
// (config shape, model defaults) but using the official SDK instead of a
// hand-rolled net/http client.
package openai

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/ragforge/ragforge/internal/llm"
	"github.com/ragforge/ragforge/internal/rferrors"
	"github.com/ragforge/ragforge/internal/rflog"
)

const (
	defaultChatModel  = "gpt-4o-mini"
	defaultEmbedModel = "text-embedding-3-small"
	defaultDimensions = 1536
)

type Config struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
}

type Client struct {
	sdk        openai.Client
	chatModel  string
	embedModel string
	dimensions int
	log        rflog.Logger
}

func New(cfg Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(cfg.APIKey))}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = defaultChatModel
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	return &Client{
		sdk:        openai.NewClient(opts...),
		chatModel:  chatModel,
		embedModel: embedModel,
		dimensions: defaultDimensions,
		log:        rflog.Default.With("provider", "openai"),
	}
}

func (c *Client) Name() string       { return "openai" }
func (c *Client) EmbedModel() string { return c.embedModel }
func (c *Client) Dimensions() int    { return c.dimensions }

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, params llm.ChatParams) (string, error) {
	model := c.chatModel
	if params.Model != "" {
		model = params.Model
	}

	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			converted = append(converted, openai.SystemMessage(m.Content))
		case "assistant":
			converted = append(converted, openai.AssistantMessage(m.Content))
		default:
			converted = append(converted, openai.UserMessage(m.Content))
		}
	}

	c.log.Debug("chat request", "model", model, "messages", len(converted))
	resp, err := c.sdk.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    model,
		Messages: converted,
	})
	if err != nil {
		return "", rferrors.LLMProvider("openai", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", rferrors.LLMProvider("openai", model, errNoChoices)
	}
	return resp.Choices[0].Message.Content, nil
}

var errNoChoices = rferrors.New(rferrors.KindLLMProvider, "completion returned no choices", nil)

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := c.sdk.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: c.embedModel,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, rferrors.LLMProvider("openai", c.embedModel, err)
	}
	out := make([][]float64, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}
