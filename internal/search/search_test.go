package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ragforge/ragforge/internal/config"
	"github.com/ragforge/ragforge/internal/convo"
	"github.com/ragforge/ragforge/internal/embed"
	"github.com/ragforge/ragforge/internal/llm"
	"github.com/ragforge/ragforge/internal/prompt"
	"github.com/ragforge/ragforge/internal/vectorstore"
)

type fakeEmbedProvider struct{}

func (fakeEmbedProvider) Name() string       { return "fake" }
func (fakeEmbedProvider) EmbedModel() string { return "fake-embed" }
func (fakeEmbedProvider) Dimensions() int    { return 3 }
func (fakeEmbedProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.1, 0.2, 0.3}
	}
	return out, nil
}

type fakeStore struct {
	results []vectorstore.ScoredChunk
}

func (f *fakeStore) CreateCollection(ctx context.Context, name string, dimension int, metric vectorstore.Metric, extraMetadata map[string]string) error {
	return nil
}
func (f *fakeStore) DeleteCollection(ctx context.Context, name string) error { return nil }
func (f *fakeStore) AddChunks(ctx context.Context, name string, chunks []vectorstore.Chunk, batchSize int) ([]string, error) {
	return nil, nil
}
func (f *fakeStore) Query(ctx context.Context, name string, queryVector []float64, k int, filters []vectorstore.Filter) ([]vectorstore.ScoredChunk, error) {
	return f.results, nil
}
func (f *fakeStore) Retrieve(ctx context.Context, embedder vectorstore.Embedder, name, textQuery string, k int, filters []vectorstore.Filter) ([]vectorstore.ScoredChunk, error) {
	return f.results, nil
}
func (f *fakeStore) DeleteChunks(ctx context.Context, name string, chunkIDs []string) (int, error) {
	return 0, nil
}
func (f *fakeStore) Close() error { return nil }

type fakeChat struct {
	answer   string
	lastMsgs []llm.Message
}

func (f *fakeChat) Name() string { return "fake" }
func (f *fakeChat) Chat(ctx context.Context, msgs []llm.Message, params llm.ChatParams) (string, error) {
	f.lastMsgs = msgs
	return f.answer, nil
}

type fakeTemplates struct {
	tpl *prompt.Template
}

func (f *fakeTemplates) DefaultTemplate(ctx context.Context, userID string, templateType prompt.TemplateType) (*prompt.Template, error) {
	return f.tpl, nil
}

type emptyConfigStore struct{}

func (emptyConfigStore) EntriesByScope(ctx context.Context, scope config.Scope, category config.Category, userID, collectionID string) ([]config.Entry, error) {
	return nil, nil
}

type fakeConvoStore struct {
	messages []convo.Message
}

func (f *fakeConvoStore) CreateSession(ctx context.Context, s convo.Session) error { return nil }
func (f *fakeConvoStore) AppendMessage(ctx context.Context, m convo.Message) error {
	f.messages = append(f.messages, m)
	return nil
}
func (f *fakeConvoStore) MessagesBySession(ctx context.Context, sessionID string) ([]convo.Message, error) {
	return f.messages, nil
}
func (f *fakeConvoStore) DeleteSession(ctx context.Context, sessionID string) error { return nil }

func newTestEngine(t *testing.T, results []vectorstore.ScoredChunk, answer string) *Engine {
	t.Helper()
	resolver := config.NewResolver(emptyConfigStore{}, config.DeploymentConfig{})
	tpl := &prompt.Template{
		Type:      prompt.TypeRAGQuery,
		Format:    "Question: {question}\nContext:\n{context}",
		InputVars: map[string]string{"question": "str", "context": "str"},
		Context:   &prompt.ContextStrategy{},
	}
	return &Engine{
		Resolver:  resolver,
		Embedder:  embed.New(fakeEmbedProvider{}, embed.DefaultSettings()),
		Store:     &fakeStore{results: results},
		Chat:      &fakeChat{answer: answer},
		Templates: &fakeTemplates{tpl: tpl},
	}
}

func TestSearchShortCircuitsOnZeroChunks(t *testing.T) {
	engine := newTestEngine(t, nil, "should not be used")
	result, err := engine.Search(context.Background(), Request{CollectionID: "col-1", UserID: "user-1", Question: "what is RAG"}, "col-1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.QueryResults) != 0 {
		t.Fatalf("expected no query results, got %+v", result.QueryResults)
	}
	if result.Answer == "should not be used" {
		t.Fatal("expected zero-chunk short-circuit to skip the LLM call")
	}
}

func TestSearchAssemblesResultFromRetrievedChunks(t *testing.T) {
	page := 0
	results := []vectorstore.ScoredChunk{
		{ChunkID: "c1", Score: 0.9, Chunk: vectorstore.Chunk{ChunkID: "c1", DocumentID: "doc-1", Text: "chunk text", Source: "doc-1.pdf", PageNumber: &page}},
	}
	engine := newTestEngine(t, results, "final answer")
	result, err := engine.Search(context.Background(), Request{CollectionID: "col-1", UserID: "user-1", Question: "what is RAG"}, "col-1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Answer != "final answer" {
		t.Fatalf("expected generated answer, got %q", result.Answer)
	}
	if len(result.QueryResults) != 1 || result.QueryResults[0].ChunkID != "c1" {
		t.Fatalf("unexpected query results: %+v", result.QueryResults)
	}
	if len(result.Documents) != 1 || result.Documents[0].DocumentName != "doc-1.pdf" {
		t.Fatalf("unexpected document rollup: %+v", result.Documents)
	}
}

func TestSearchPropagatesEmbeddingFailure(t *testing.T) {
	engine := newTestEngine(t, nil, "unused")
	engine.Embedder = embed.New(failingEmbedProvider{}, embed.Settings{BatchSize: 1, Concurrency: 1, MaxRetries: 1, InitialBackoff: time.Millisecond})
	_, err := engine.Search(context.Background(), Request{CollectionID: "col-1", UserID: "user-1", Question: "what is RAG"}, "col-1")
	if err == nil {
		t.Fatal("expected embedding failure to propagate")
	}
}

func TestSearchInjectsHistoryWhenTemplateDeclaresIt(t *testing.T) {
	page := 0
	results := []vectorstore.ScoredChunk{
		{ChunkID: "c1", Score: 0.9, Chunk: vectorstore.Chunk{ChunkID: "c1", DocumentID: "doc-1", Text: "chunk text", Source: "doc-1.pdf", PageNumber: &page}},
	}
	engine := newTestEngine(t, results, "final answer")
	engine.Templates = &fakeTemplates{tpl: &prompt.Template{
		Type:      prompt.TypeRAGQuery,
		Format:    "Question: {question}\nHistory:\n{history}\nContext:\n{context}",
		InputVars: map[string]string{"question": "str", "history": "str", "context": "str"},
		Context:   &prompt.ContextStrategy{},
	}}
	store := &fakeConvoStore{messages: []convo.Message{
		{SessionID: "sess-1", Role: convo.RoleUser, Content: "earlier question", CreatedAt: time.Now().Add(-time.Minute)},
		{SessionID: "sess-1", Role: convo.RoleAssistant, Content: "earlier answer", CreatedAt: time.Now()},
	}}
	engine.Convo = convo.New(store, nil)
	chat := engine.Chat.(*fakeChat)

	_, err := engine.Search(context.Background(), Request{CollectionID: "col-1", UserID: "user-1", Question: "what is RAG", SessionID: "sess-1"}, "col-1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(chat.lastMsgs) != 1 {
		t.Fatalf("expected a single rendered chat message, got %d", len(chat.lastMsgs))
	}
	content := chat.lastMsgs[0].Content
	if !strings.Contains(content, "earlier question") || !strings.Contains(content, "earlier answer") {
		t.Fatalf("expected rendered prompt to include conversation history, got %q", content)
	}
}

func TestSearchSkipsHistoryWhenTemplateDoesNotDeclareIt(t *testing.T) {
	results := []vectorstore.ScoredChunk{
		{ChunkID: "c1", Score: 0.9, Chunk: vectorstore.Chunk{ChunkID: "c1", DocumentID: "doc-1", Text: "chunk text", Source: "doc-1.pdf"}},
	}
	engine := newTestEngine(t, results, "final answer")
	store := &fakeConvoStore{messages: []convo.Message{
		{SessionID: "sess-1", Role: convo.RoleUser, Content: "earlier question", CreatedAt: time.Now()},
	}}
	engine.Convo = convo.New(store, nil)

	_, err := engine.Search(context.Background(), Request{CollectionID: "col-1", UserID: "user-1", Question: "what is RAG", SessionID: "sess-1"}, "col-1")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
}

type failingEmbedProvider struct{}

func (failingEmbedProvider) Name() string       { return "failing" }
func (failingEmbedProvider) EmbedModel() string { return "failing-embed" }
func (failingEmbedProvider) Dimensions() int    { return 3 }
func (failingEmbedProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	return nil, errors.New("embedding provider unavailable")
}
