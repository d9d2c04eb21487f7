// Package gemini wraps Google's genai SDK for chat and embedding, exercising
// the google.golang.org/genai dependency pulled into the domain stack from
// intelligencedev-manifold (which proxies Gemini over raw HTTP; ragforge
// uses the official SDK instead since it is a real dependency in the
// retrieved corpus's broader module graph).
package gemini

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/ragforge/ragforge/internal/llm"
	"github.com/ragforge/ragforge/internal/rferrors"
	"github.com/ragforge/ragforge/internal/rflog"
)

const (
	defaultChatModel  = "gemini-2.0-flash"
	defaultEmbedModel = "text-embedding-004"
	defaultDimensions = 768
)

type Config struct {
	APIKey     string
	ChatModel  string
	EmbedModel string
}

type Client struct {
	sdk        *genai.Client
	chatModel  string
	embedModel string
	dimensions int
	log        rflog.Logger
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: strings.TrimSpace(cfg.APIKey)})
	if err != nil {
		return nil, rferrors.Wrap(rferrors.KindLLMProvider, "failed to construct gemini client", err, nil)
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = defaultChatModel
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	return &Client{sdk: sdk, chatModel: chatModel, embedModel: embedModel, dimensions: defaultDimensions, log: rflog.Default.With("provider", "gemini")}, nil
}

func (c *Client) Name() string       { return "gemini" }
func (c *Client) EmbedModel() string { return c.embedModel }
func (c *Client) Dimensions() int    { return c.dimensions }

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, params llm.ChatParams) (string, error) {
	model := c.chatModel
	if params.Model != "" {
		model = params.Model
	}

	var system string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	var cfg *genai.GenerateContentConfig
	if system != "" {
		cfg = &genai.GenerateContentConfig{SystemInstruction: genai.NewContentFromText(system, genai.RoleUser)}
	}

	c.log.Debug("chat request", "model", model, "messages", len(contents))
	resp, err := c.sdk.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", rferrors.LLMProvider("gemini", model, err)
	}
	return resp.Text(), nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	resp, err := c.sdk.Models.EmbedContent(ctx, c.embedModel, contents, nil)
	if err != nil {
		return nil, rferrors.LLMProvider("gemini", c.embedModel, err)
	}
	out := make([][]float64, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		values := make([]float64, len(e.Values))
		for j, v := range e.Values {
			values[j] = float64(v)
		}
		out[i] = values
	}
	return out, nil
}
