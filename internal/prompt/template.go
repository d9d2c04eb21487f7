// Package prompt implements C7: named templates with {var} placeholder
// substitution and length-bounded context-chunk packing.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ragforge/ragforge/internal/rferrors"
)

// TemplateType enumerates the kinds of prompt a Template can serve.
type TemplateType string

const (
	TypeRAGQuery           TemplateType = "RAG_QUERY"
	TypeQuestionGeneration TemplateType = "QUESTION_GENERATION"
	TypeResponseEvaluation TemplateType = "RESPONSE_EVALUATION"
	TypeCoTReasoning       TemplateType = "COT_REASONING"
	TypeCustom             TemplateType = "CUSTOM"
	TypePodcastGeneration  TemplateType = "PODCAST_GENERATION"
)

// TruncationMode governs how a packed context string that exceeds
// MaxContextLength is cut down to size.
type TruncationMode string

const (
	TruncateEnd    TruncationMode = "end"
	TruncateStart  TruncationMode = "start"
	TruncateMiddle TruncationMode = "middle"
)

// ContextStrategy controls how candidate context chunks are packed into the
// well-known "context" variable before substitution.
type ContextStrategy struct {
	MaxChunks        int
	ChunkSeparator   string
	MaxContextLength int
	Truncation       TruncationMode
}

// Template is C7's named template: a format string with {name} placeholders,
// declared input variables, and an optional context-packing strategy.
type Template struct {
	ID            string
	OwnerID       string
	Type          TemplateType
	SystemPrompt  string
	Format        string
	InputVars     map[string]string
	Context       *ContextStrategy
	MaxContextLen int
	StopSequences []string
	IsDefault     bool
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Placeholders returns the set of {name} placeholders that appear in the
// template's format string.
func (t *Template) Placeholders() []string {
	matches := placeholderRe.FindAllStringSubmatch(t.Format, -1)
	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Validate enforces the invariant that every placeholder in Format is
// declared in InputVars.
func (t *Template) Validate() error {
	for _, name := range t.Placeholders() {
		if _, ok := t.InputVars[name]; !ok {
			return rferrors.Validation(fmt.Sprintf("placeholder %q is not declared in input variables", name), map[string]any{"template_id": t.ID, "placeholder": name})
		}
	}
	return nil
}

// Render substitutes variables into the template, packing contextChunks
// under the "context" key first when the template declares a ContextStrategy.
func (t *Template) Render(variables map[string]string, contextChunks []string) (string, error) {
	vars := variables
	if t.Context != nil {
		packed := PackContext(contextChunks, *t.Context)
		vars = cloneVars(variables)
		vars["context"] = packed
	}

	for _, name := range t.Placeholders() {
		if _, ok := vars[name]; !ok {
			return "", rferrors.MissingPromptVariable(name)
		}
	}

	body := placeholderRe.ReplaceAllStringFunc(t.Format, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		return vars[name]
	})

	if t.SystemPrompt != "" {
		return t.SystemPrompt + "\n\n" + body, nil
	}
	return body, nil
}

func cloneVars(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// PackContext truncates to MaxChunks, joins with ChunkSeparator (default
// "\n\n"), then truncates the joined string to MaxContextLength per the
// declared Truncation mode.
func PackContext(chunks []string, strategy ContextStrategy) string {
	if strategy.MaxChunks > 0 && len(chunks) > strategy.MaxChunks {
		chunks = chunks[:strategy.MaxChunks]
	}
	sep := strategy.ChunkSeparator
	if sep == "" {
		sep = "\n\n"
	}
	joined := strings.Join(chunks, sep)

	if strategy.MaxContextLength <= 0 || len(joined) <= strategy.MaxContextLength {
		return joined
	}
	return truncate(joined, strategy.MaxContextLength, strategy.Truncation)
}

func truncate(s string, maxLen int, mode TruncationMode) string {
	switch mode {
	case TruncateStart:
		return s[len(s)-maxLen:]
	case TruncateMiddle:
		if maxLen <= 3 {
			return s[:maxLen]
		}
		half := (maxLen - 3) / 2
		return s[:half] + "..." + s[len(s)-(maxLen-3-half):]
	default: // end
		return s[:maxLen]
	}
}
