// Package llm defines the provider-agnostic surface every LLM back-end
// (Anthropic, OpenAI, Gemini, WatsonX) implements. The interface shape is
// grounded on manifold's internal/llm.Provider, generalized to also cover
// embeddings since ragforge's embedding client (C1) needs the same
// retry/concurrency treatment as chat completions.
package llm

import "context"

// Message is a single turn in a chat completion request.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatParams configures a single completion call.
type ChatParams struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// ChatProvider generates text completions. Every provider wrapper in
// internal/llm/* implements this for use by internal/search and internal/cot.
type ChatProvider interface {
	Name() string
	Chat(ctx context.Context, msgs []Message, params ChatParams) (string, error)
}

// EmbedProvider produces vector embeddings for a batch of texts in one
// round trip. Implementations must return len(out) == len(texts) or an
// error; internal/embed relies on index-aligned results.
type EmbedProvider interface {
	Name() string
	EmbedModel() string
	Dimensions() int
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Registry resolves a provider name ("anthropic", "openai", "gemini",
// "watsonx") to its configured client, mirroring the teacher's
// providers.GetEmbedderFactory lookup but for already-constructed clients
// rather than factories: clients are registered once and reused per call.
type Registry struct {
	chat  map[string]ChatProvider
	embed map[string]EmbedProvider
}

func NewRegistry() *Registry {
	return &Registry{chat: make(map[string]ChatProvider), embed: make(map[string]EmbedProvider)}
}

func (r *Registry) RegisterChat(p ChatProvider) { r.chat[p.Name()] = p }

func (r *Registry) RegisterEmbed(p EmbedProvider) { r.embed[p.Name()] = p }

func (r *Registry) Chat(name string) (ChatProvider, bool) {
	p, ok := r.chat[name]
	return p, ok
}

func (r *Registry) Embed(name string) (EmbedProvider, bool) {
	p, ok := r.embed[name]
	return p, ok
}
