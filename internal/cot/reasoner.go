package cot

import (
	"context"
	"strings"
	"time"

	"github.com/ragforge/ragforge/internal/config"
	"github.com/ragforge/ragforge/internal/llm"
	"github.com/ragforge/ragforge/internal/prompt"
	"github.com/ragforge/ragforge/internal/rflog"
	"github.com/ragforge/ragforge/internal/search"
)

// ReasoningStep is one decomposed sub-question's execution record.
type ReasoningStep struct {
	SubQuestion        string
	IntermediateAnswer string
	ContextUsed        []string
	ExecutionTime      float64
	TokenUsage         int
}

// Output is C10's result: the final answer plus the full reasoning trace.
type Output struct {
	Answer                string
	ReasoningSteps        []ReasoningStep
	TokenUsage            int
	TotalExecutionTime    float64
}

// Persister stores a CoTOutput keyed by (user_id, collection_id, timestamp)
// for later UI inspection, when persist_reasoning is enabled.
type Persister interface {
	PersistReasoning(ctx context.Context, userID, collectionID string, timestamp time.Time, output Output) error
}

// Reasoner implements C10, wrapping a search.Engine for both the
// per-sub-question C9 calls and the simple-question short-circuit.
type Reasoner struct {
	Search    *search.Engine
	Chat      llm.ChatProvider
	Templates search.TemplateLookup
	Resolver  *config.Resolver
	Persist   Persister
	log       rflog.Logger
}

func New(searchEngine *search.Engine, chat llm.ChatProvider, templates search.TemplateLookup, resolver *config.Resolver, persist Persister) *Reasoner {
	return &Reasoner{Search: searchEngine, Chat: chat, Templates: templates, Resolver: resolver, Persist: persist, log: rflog.Default.With("component", "cot")}
}

// Reason implements `reason(question, collection_id, user_id, config) ->
// CoTOutput`. On any failure it falls back to C9's direct answer for the
// original question, per spec.
func (r *Reasoner) Reason(ctx context.Context, req search.Request, collectionName string) (*Output, error) {
	start := time.Now()

	cotCfg, err := r.Resolver.Effective(ctx, config.CategoryCoT, req.UserID, req.CollectionID)
	if err != nil {
		return r.fallback(ctx, req, collectionName, start)
	}
	if !boolOf(cotCfg, "cot_enabled", false) {
		return r.fallback(ctx, req, collectionName, start)
	}

	category := Classify(req.Question)
	if category == CategorySimple {
		return r.fallback(ctx, req, collectionName, start)
	}

	maxDepth := intOf(cotCfg, "max_reasoning_depth", 3)
	baseBudget := intOf(cotCfg, "base_budget", 2000)
	multiplier := floatOf(cotCfg, "token_budget_multiplier", 2.0)
	budget := int(float64(baseBudget) * multiplier)

	subQuestions, err := r.decompose(ctx, req.UserID, req.Question, maxDepth)
	if err != nil || len(subQuestions) == 0 {
		return r.fallback(ctx, req, collectionName, start)
	}

	var steps []ReasoningStep
	var additionalContext []string
	tokensUsed := 0

	for _, sub := range subQuestions {
		if tokensUsed >= budget {
			r.log.Warn("cot token budget exceeded, truncating remaining sub-questions", "used", tokensUsed, "budget", budget)
			break
		}
		stepStart := time.Now()
		subReq := search.Request{
			CollectionID:   req.CollectionID,
			UserID:         req.UserID,
			Question:       augmentWithContext(sub, additionalContext),
			SessionID:      req.SessionID,
			ConfigMetadata: req.ConfigMetadata,
		}
		result, serr := r.Search.Search(ctx, subReq, collectionName)
		if serr != nil {
			r.log.Warn("cot sub-question failed", "sub_question", sub, "error", serr)
			return r.fallback(ctx, req, collectionName, start)
		}
		stepTokens := estimateTokens(result.Answer)
		tokensUsed += stepTokens
		contextUsed := make([]string, len(result.QueryResults))
		for i, qr := range result.QueryResults {
			contextUsed[i] = qr.Text
		}
		steps = append(steps, ReasoningStep{
			SubQuestion:         sub,
			IntermediateAnswer:  result.Answer,
			ContextUsed:         contextUsed,
			ExecutionTime:       time.Since(stepStart).Seconds(),
			TokenUsage:          stepTokens,
		})
		additionalContext = append(additionalContext, result.Answer)
	}

	if len(steps) == 0 {
		return r.fallback(ctx, req, collectionName, start)
	}

	final, err := r.aggregate(ctx, req.UserID, req.Question, steps)
	if err != nil {
		return r.fallback(ctx, req, collectionName, start)
	}

	output := &Output{
		Answer:             final,
		ReasoningSteps:     steps,
		TokenUsage:         tokensUsed,
		TotalExecutionTime: time.Since(start).Seconds(),
	}

	if boolOf(cotCfg, "persist_reasoning", false) && r.Persist != nil {
		if perr := r.Persist.PersistReasoning(ctx, req.UserID, req.CollectionID, time.Now(), *output); perr != nil {
			r.log.Warn("failed to persist reasoning trace", "error", perr)
		}
	}

	return output, nil
}

func (r *Reasoner) fallback(ctx context.Context, req search.Request, collectionName string, start time.Time) (*Output, error) {
	result, err := r.Search.Search(ctx, req, collectionName)
	if err != nil {
		return nil, err
	}
	return &Output{
		Answer:             result.Answer,
		TotalExecutionTime: time.Since(start).Seconds(),
	}, nil
}

func (r *Reasoner) decompose(ctx context.Context, userID, question string, maxDepth int) ([]string, error) {
	tpl, err := r.Templates.DefaultTemplate(ctx, userID, prompt.TypeCoTReasoning)
	if err != nil {
		return nil, err
	}
	rendered, err := tpl.Render(map[string]string{"question": question}, nil)
	if err != nil {
		return nil, err
	}
	raw, err := r.Chat.Chat(ctx, []llm.Message{{Role: "user", Content: rendered}}, llm.ChatParams{})
	if err != nil {
		return nil, err
	}
	subs := splitLines(raw)
	if len(subs) > maxDepth {
		subs = subs[:maxDepth]
	}
	return subs, nil
}

func (r *Reasoner) aggregate(ctx context.Context, userID, question string, steps []ReasoningStep) (string, error) {
	tpl, err := r.Templates.DefaultTemplate(ctx, userID, prompt.TypeCoTReasoning)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Original question: " + question + "\n")
	for _, s := range steps {
		b.WriteString("Sub-question: " + s.SubQuestion + "\nAnswer: " + s.IntermediateAnswer + "\n")
	}
	rendered, err := tpl.Render(map[string]string{"question": b.String()}, nil)
	if err != nil {
		return "", err
	}
	return r.Chat.Chat(ctx, []llm.Message{{Role: "user", Content: rendered}}, llm.ChatParams{})
}

func augmentWithContext(question string, context []string) string {
	if len(context) == 0 {
		return question
	}
	return strings.Join(context, "\n") + "\n" + question
}

func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.-) ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func estimateTokens(s string) int { return len(strings.Fields(s)) }

func boolOf(m map[string]config.Resolved, key string, def bool) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.Value.(bool); ok {
			return b
		}
	}
	return def
}

func intOf(m map[string]config.Resolved, key string, def int) int {
	if v, ok := m[key]; ok {
		if i, ok := v.Value.(int); ok {
			return i
		}
	}
	return def
}

func floatOf(m map[string]config.Resolved, key string, def float64) float64 {
	if v, ok := m[key]; ok {
		if f, ok := v.Value.(float64); ok {
			return f
		}
	}
	return def
}
