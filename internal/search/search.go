// Package search implements C9: rewrite → retrieve → (rerank)? → prompt →
// generate, plus the supplemented SuggestQuestions and GeneratePodcastScript
// operations from original_source/.
package search

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/ragforge/ragforge/internal/config"
	"github.com/ragforge/ragforge/internal/convo"
	"github.com/ragforge/ragforge/internal/embed"
	"github.com/ragforge/ragforge/internal/llm"
	"github.com/ragforge/ragforge/internal/prompt"
	"github.com/ragforge/ragforge/internal/rerank"
	"github.com/ragforge/ragforge/internal/rewrite"
	"github.com/ragforge/ragforge/internal/rflog"
	"github.com/ragforge/ragforge/internal/vectorstore"
)

var tracer = otel.Tracer("github.com/ragforge/ragforge/internal/search")

// Stage names the state-machine transitions of a search request, per §4.9.
type Stage string

const (
	StageReceived        Stage = "RECEIVED"
	StageResolvingConfig Stage = "RESOLVING_CONFIG"
	StageRewriting       Stage = "REWRITING"
	StageEmbedding       Stage = "EMBEDDING"
	StageRetrieving      Stage = "RETRIEVING"
	StageReranking       Stage = "RERANKING"
	StagePrompting       Stage = "PROMPTING"
	StageGenerating      Stage = "GENERATING"
	StageAssembling      Stage = "ASSEMBLING"
	StageDone            Stage = "DONE"
)

// ChunkResult is the ordered, scored, chunk-level provenance entry in a
// SearchResult, carrying enough metadata to cite page/source.
type ChunkResult struct {
	ChunkID    string
	Text       string
	DocumentID string
	PageNumber *int
	ChunkNumber *int
	Source     string
	Score      float64
}

// DocumentSummary rolls a SearchResult's chunk provenance up to one entry
// per source document.
type DocumentSummary struct {
	DocumentName string
	TotalPages   int
	TotalChunks  int
}

// Result is the wire shape described in §6's "SearchResult wire shape".
type Result struct {
	Answer        string
	QueryResults  []ChunkResult
	Documents     []DocumentSummary
	ExecutionTime float64
}

// Engine wires C1/C5/C6/C7/C8 together into the C9 pipeline.
type Engine struct {
	Resolver  *config.Resolver
	Embedder  *embed.Client
	Store     vectorstore.VectorStore
	Chat      llm.ChatProvider
	Templates TemplateLookup
	Reranker  *rerank.RRFReranker
	Convo     *convo.Log
	Rewriter  *rewrite.Chain
}

// TemplateLookup resolves the user's default template for a given type,
// satisfied by internal/store's prompt-template repository.
type TemplateLookup interface {
	DefaultTemplate(ctx context.Context, userID string, templateType prompt.TemplateType) (*prompt.Template, error)
}

// Request is C9's input: `search(collection_id, user_id, question,
// session_id?, config_metadata?)`.
type Request struct {
	CollectionID   string
	UserID         string
	Question       string
	SessionID      string
	ConfigMetadata map[string]any
}

// Search runs the full C9 state machine. collectionName is the vector-store
// collection key (distinct from CollectionID, which addresses relational
// ownership).
func (e *Engine) Search(ctx context.Context, req Request, collectionName string) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "search.received")
	span.End()

	// RESOLVING_CONFIG
	ctx, span = tracer.Start(ctx, "search.resolving_config")
	retrievalCfg, err := e.Resolver.Effective(ctx, config.CategoryRetrieval, req.UserID, req.CollectionID)
	span.End()
	if err != nil {
		return nil, err
	}
	rerankCfg, err := e.Resolver.Effective(ctx, config.CategoryReranking, req.UserID, req.CollectionID)
	if err != nil {
		return nil, err
	}
	var convoCfg map[string]config.Resolved
	if req.SessionID != "" && e.Convo != nil {
		convoCfg, err = e.Resolver.Effective(ctx, config.CategoryConversation, req.UserID, req.CollectionID)
		if err != nil {
			return nil, err
		}
	}
	topK := intOrDefault(retrievalCfg, "top_k", 5)
	var filters []vectorstore.Filter
	if f, ok := req.ConfigMetadata["filter"].([]vectorstore.Filter); ok {
		filters = f
	}

	// REWRITING
	ctx, span = tracer.Start(ctx, "search.rewriting")
	question := req.Question
	if e.Rewriter != nil {
		rewritten, rerr := e.Rewriter.Run(ctx, question)
		if rerr == nil {
			question = rewritten
		}
	}
	span.End()

	// EMBEDDING
	ctx, span = tracer.Start(ctx, "search.embedding")
	vectors, err := e.Embedder.Embed(ctx, []string{question})
	span.End()
	if err != nil {
		return nil, err
	}

	// RETRIEVING
	ctx, span = tracer.Start(ctx, "search.retrieving")
	scored, err := e.Store.Query(ctx, collectionName, vectors[0], topK, filters)
	span.End()
	if err != nil {
		rflog.WithTrace(ctx, rflog.Default).Error("retrieval failed", "collection", collectionName, "error", err)
		return nil, err
	}

	if len(scored) == 0 {
		return &Result{
			Answer:        "I don't have enough context in this collection to answer that question.",
			QueryResults:  nil,
			Documents:     nil,
			ExecutionTime: time.Since(start).Seconds(),
		}, nil
	}

	// RERANKING
	if boolOrDefault(rerankCfg, "rerank_enabled", false) && e.Reranker != nil {
		_, span = tracer.Start(ctx, "search.reranking")
		rerankTopK := intOrDefault(rerankCfg, "rerank_top_k", topK)
		scored = e.Reranker.Rerank(scored, rerankTopK)
		span.End()
	}

	// PROMPTING
	_, span = tracer.Start(ctx, "search.prompting")
	tpl, err := e.Templates.DefaultTemplate(ctx, req.UserID, prompt.TypeRAGQuery)
	span.End()
	if err != nil {
		return nil, err
	}
	chunkTexts := make([]string, len(scored))
	for i, s := range scored {
		chunkTexts[i] = s.Chunk.Text
	}
	renderVars := map[string]string{"question": question}
	if _, declaresHistory := tpl.InputVars["history"]; declaresHistory && req.SessionID != "" && e.Convo != nil {
		maxTurns := intOrDefault(convoCfg, "conversation_context_turns", 5)
		maxTokens := intOrDefault(convoCfg, "conversation_context_tokens", 2000)
		messages, merr := e.Convo.RecentMessages(ctx, req.SessionID, maxTurns*2)
		if merr != nil {
			rflog.WithTrace(ctx, rflog.Default).Error("loading conversation history failed", "session_id", req.SessionID, "error", merr)
			renderVars["history"] = ""
		} else {
			renderVars["history"] = convo.WindowedTranscript(messages, maxTurns, maxTokens)
		}
	}
	rendered, err := tpl.Render(renderVars, chunkTexts)
	if err != nil {
		return nil, err
	}

	// GENERATING
	ctx, span = tracer.Start(ctx, "search.generating")
	answer, err := e.Chat.Chat(ctx, []llm.Message{{Role: "user", Content: rendered}}, llm.ChatParams{})
	span.End()
	if err != nil {
		return nil, err
	}

	// ASSEMBLING
	result := assembleResult(answer, scored, start)
	return result, nil
}

func assembleResult(answer string, scored []vectorstore.ScoredChunk, start time.Time) *Result {
	results := make([]ChunkResult, len(scored))
	docTotals := map[string]*DocumentSummary{}
	for i, s := range scored {
		results[i] = ChunkResult{
			ChunkID:     s.ChunkID,
			Text:        s.Chunk.Text,
			DocumentID:  s.Chunk.DocumentID,
			PageNumber:  s.Chunk.PageNumber,
			ChunkNumber: s.Chunk.ChunkNumber,
			Source:      s.Chunk.Source,
			Score:       s.Score,
		}
		summary, ok := docTotals[s.Chunk.DocumentID]
		if !ok {
			summary = &DocumentSummary{DocumentName: s.Chunk.Source}
			docTotals[s.Chunk.DocumentID] = summary
		}
		summary.TotalChunks++
		if s.Chunk.PageNumber != nil && *s.Chunk.PageNumber+1 > summary.TotalPages {
			summary.TotalPages = *s.Chunk.PageNumber + 1
		}
	}
	docs := make([]DocumentSummary, 0, len(docTotals))
	for _, d := range docTotals {
		docs = append(docs, *d)
	}
	return &Result{
		Answer:        answer,
		QueryResults:  results,
		Documents:     docs,
		ExecutionTime: time.Since(start).Seconds(),
	}
}

func intOrDefault(m map[string]config.Resolved, key string, def int) int {
	if v, ok := m[key]; ok {
		if i, ok := v.Value.(int); ok {
			return i
		}
	}
	return def
}

func boolOrDefault(m map[string]config.Resolved, key string, def bool) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.Value.(bool); ok {
			return b
		}
	}
	return def
}
