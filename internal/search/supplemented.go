package search

import (
	"context"
	"strconv"
	"strings"

	"github.com/ragforge/ragforge/internal/llm"
	"github.com/ragforge/ragforge/internal/prompt"
)

// SuggestQuestions generates candidate questions from a collection's
// ingested content once ingestion completes, grounded on original_source/'s
// question-suggestion feature (§ SUPPLEMENTED FEATURES item 1). It samples
// a handful of chunks via an empty-filter top-k query and asks the LLM to
// propose n questions a user might ask of this content.
func (e *Engine) SuggestQuestions(ctx context.Context, userID, collectionName string, n int) ([]string, error) {
	vectors, err := e.Embedder.Embed(ctx, []string{"overview of this collection's content"})
	if err != nil {
		return nil, err
	}
	sample, err := e.Store.Query(ctx, collectionName, vectors[0], 10, nil)
	if err != nil {
		return nil, err
	}
	var sampleTexts []string
	for _, s := range sample {
		sampleTexts = append(sampleTexts, s.Chunk.Text)
	}

	tpl, err := e.Templates.DefaultTemplate(ctx, userID, prompt.TypeQuestionGeneration)
	if err != nil {
		return nil, err
	}
	count := n
	if count <= 0 {
		count = 5
	}
	rendered, err := tpl.Render(map[string]string{"count": strconv.Itoa(count)}, sampleTexts)
	if err != nil {
		return nil, err
	}

	raw, err := e.Chat.Chat(ctx, []llm.Message{{Role: "user", Content: rendered}}, llm.ChatParams{})
	if err != nil {
		return nil, err
	}
	return splitQuestions(raw, n), nil
}

// GeneratePodcastScript renders a two-voice podcast-style script from a
// collection, exercising the PODCAST_GENERATION template type that §3
// declares but §4 otherwise leaves unused (§ SUPPLEMENTED FEATURES item 2).
func (e *Engine) GeneratePodcastScript(ctx context.Context, userID, collectionName, topic string) (string, error) {
	vectors, err := e.Embedder.Embed(ctx, []string{topic})
	if err != nil {
		return "", err
	}
	scored, err := e.Store.Query(ctx, collectionName, vectors[0], 15, nil)
	if err != nil {
		return "", err
	}
	var chunkTexts []string
	for _, s := range scored {
		chunkTexts = append(chunkTexts, s.Chunk.Text)
	}

	tpl, err := e.Templates.DefaultTemplate(ctx, userID, prompt.TypePodcastGeneration)
	if err != nil {
		return "", err
	}
	rendered, err := tpl.Render(map[string]string{"topic": topic}, chunkTexts)
	if err != nil {
		return "", err
	}
	return e.Chat.Chat(ctx, []llm.Message{{Role: "user", Content: rendered}}, llm.ChatParams{})
}

func splitQuestions(raw string, n int) []string {
	lines := strings.Split(raw, "\n")
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.-) ")
		if line == "" {
			continue
		}
		out = append(out, line)
		if n > 0 && len(out) >= n {
			break
		}
	}
	return out
}
