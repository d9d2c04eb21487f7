package prompt

import "testing"

func TestRenderSubstitutesVariables(t *testing.T) {
	tpl := &Template{
		Format:    "Answer {question} using {context}",
		InputVars: map[string]string{"question": "the user question", "context": "packed chunks"},
		Context:   &ContextStrategy{MaxChunks: 2, ChunkSeparator: "\n"},
	}
	out, err := tpl.Render(map[string]string{"question": "what is raggo?"}, []string{"chunk a", "chunk b", "chunk c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Answer what is raggo? using chunk a\nchunk b"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestRenderFailsOnMissingVariable(t *testing.T) {
	tpl := &Template{Format: "Answer {question}", InputVars: map[string]string{"question": "q"}}
	if _, err := tpl.Render(map[string]string{}, nil); err == nil {
		t.Fatal("expected MissingPromptVariable error")
	}
}

func TestRenderPrependsSystemPrompt(t *testing.T) {
	tpl := &Template{SystemPrompt: "You are helpful.", Format: "{question}", InputVars: map[string]string{"question": "q"}}
	out, err := tpl.Render(map[string]string{"question": "hi"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "You are helpful.\n\nhi" {
		t.Fatalf("got %q", out)
	}
}

func TestPackContextTruncatesMiddle(t *testing.T) {
	chunks := []string{"0123456789", "abcdefghij"}
	out := PackContext(chunks, ContextStrategy{MaxChunks: 2, ChunkSeparator: "|", MaxContextLength: 10, Truncation: TruncateMiddle})
	if len(out) != 10 {
		t.Fatalf("expected length 10, got %d (%q)", len(out), out)
	}
}

func TestValidateRejectsUndeclaredPlaceholder(t *testing.T) {
	tpl := &Template{Format: "{question} {oops}", InputVars: map[string]string{"question": "q"}}
	if err := tpl.Validate(); err == nil {
		t.Fatal("expected validation error for undeclared placeholder")
	}
}
