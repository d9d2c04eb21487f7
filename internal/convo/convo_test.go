package convo

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	sessions map[string]Session
	messages map[string][]Message
	deleted  map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]Session{}, messages: map[string][]Message{}, deleted: map[string]bool{}}
}

func (f *fakeStore) CreateSession(ctx context.Context, s Session) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeStore) AppendMessage(ctx context.Context, m Message) error {
	f.messages[m.SessionID] = append(f.messages[m.SessionID], m)
	return nil
}

func (f *fakeStore) MessagesBySession(ctx context.Context, sessionID string) ([]Message, error) {
	if f.deleted[sessionID] {
		return nil, errors.New("session deleted")
	}
	return f.messages[sessionID], nil
}

func (f *fakeStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, ok := f.sessions[sessionID]; !ok {
		return errors.New("not found")
	}
	f.deleted[sessionID] = true
	delete(f.sessions, sessionID)
	delete(f.messages, sessionID)
	return nil
}

func TestAppendAndRecentMessagesOrdering(t *testing.T) {
	store := newFakeStore()
	log := New(store, nil)

	sessionID, err := log.CreateSession(context.Background(), "user-1", "col-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	base := time.Now()
	for i, content := range []string{"first", "second", "third"} {
		msg := Message{ID: content, SessionID: sessionID, Role: RoleUser, Content: content, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		store.messages[sessionID] = append(store.messages[sessionID], msg)
	}

	recent, err := log.RecentMessages(context.Background(), sessionID, 2)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "second" || recent[1].Content != "third" {
		t.Fatalf("expected [second, third] in chronological order, got %+v", recent)
	}
}

func TestTokenUsageSumsAllMessages(t *testing.T) {
	store := newFakeStore()
	log := New(store, nil)
	sessionID, _ := log.CreateSession(context.Background(), "user-1", "col-1")
	if _, err := log.AppendMessage(context.Background(), sessionID, RoleUser, "query", "hi", 10, 0, nil); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if _, err := log.AppendMessage(context.Background(), sessionID, RoleAssistant, "answer", "hello", 20, 0.5, nil); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	total, err := log.TokenUsage(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("TokenUsage: %v", err)
	}
	if total != 30 {
		t.Fatalf("expected token total 30, got %d", total)
	}
}

func TestDeleteSessionRemovesMessages(t *testing.T) {
	store := newFakeStore()
	log := New(store, nil)
	sessionID, _ := log.CreateSession(context.Background(), "user-1", "col-1")
	_, _ = log.AppendMessage(context.Background(), sessionID, RoleUser, "query", "hi", 1, 0, nil)

	if err := log.DeleteSession(context.Background(), sessionID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := log.TokenUsage(context.Background(), sessionID); err == nil {
		t.Fatal("expected error reading messages from deleted session")
	}
}

func TestWindowedTranscriptRespectsTokenBudget(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "a", TokenCount: 5},
		{Role: RoleAssistant, Content: "b", TokenCount: 5},
		{Role: RoleUser, Content: "c", TokenCount: 5},
	}
	out := WindowedTranscript(messages, 0, 10)
	if out != "assistant: b\nuser: c\n" {
		t.Fatalf("unexpected windowed transcript: %q", out)
	}
}

func TestWindowedTranscriptRespectsTurnLimit(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "q1", TokenCount: 1},
		{Role: RoleAssistant, Content: "a1", TokenCount: 1},
		{Role: RoleUser, Content: "q2", TokenCount: 1},
		{Role: RoleAssistant, Content: "a2", TokenCount: 1},
	}
	out := WindowedTranscript(messages, 1, 0)
	if out != "user: q2\nassistant: a2\n" {
		t.Fatalf("expected only the last turn, got %q", out)
	}
}
