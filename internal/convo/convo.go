// Package convo implements C11: an append-only per-session conversation log
// with token accounting and windowed transcript retrieval.
package convo

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ragforge/ragforge/internal/rferrors"
)

// Role is the speaker of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Session is a conversation thread scoped to one user and collection.
type Session struct {
	ID           string
	UserID       string
	CollectionID string
	CreatedAt    time.Time
	Status       string
}

// Message is one append-only entry in a Session's transcript.
type Message struct {
	ID            string
	SessionID     string
	Role          Role
	Type          string
	Content       string
	CreatedAt     time.Time
	Metadata      map[string]any
	TokenCount    int
	ExecutionTime float64
}

// Store is the persistence boundary satisfied by internal/store's
// conversation repositories.
type Store interface {
	CreateSession(ctx context.Context, s Session) error
	AppendMessage(ctx context.Context, m Message) error
	MessagesBySession(ctx context.Context, sessionID string) ([]Message, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Cache optionally speeds up recent-turn retrieval, per §5's "process-wide
// read-mostly caches" — a nil Cache is a valid no-op.
type Cache interface {
	RecentMessages(ctx context.Context, sessionID string, count int) ([]Message, bool)
	SetRecentMessages(ctx context.Context, sessionID string, messages []Message)
	Invalidate(ctx context.Context, sessionID string)
}

// Log implements the C11 operations over a Store, optionally fronted by a Cache.
type Log struct {
	store Store
	cache Cache
}

func New(store Store, cache Cache) *Log {
	return &Log{store: store, cache: cache}
}

func (l *Log) CreateSession(ctx context.Context, userID, collectionID string) (string, error) {
	id := uuid.NewString()
	err := l.store.CreateSession(ctx, Session{
		ID: id, UserID: userID, CollectionID: collectionID, CreatedAt: time.Now(), Status: "active",
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (l *Log) AppendMessage(ctx context.Context, sessionID string, role Role, msgType, content string, tokenCount int, executionTime float64, metadata map[string]any) (string, error) {
	id := uuid.NewString()
	msg := Message{
		ID: id, SessionID: sessionID, Role: role, Type: msgType, Content: content,
		CreatedAt: time.Now(), Metadata: metadata, TokenCount: tokenCount, ExecutionTime: executionTime,
	}
	if err := l.store.AppendMessage(ctx, msg); err != nil {
		return "", err
	}
	if l.cache != nil {
		l.cache.Invalidate(ctx, sessionID)
	}
	return id, nil
}

// RecentMessages returns the last `count` messages ordered by created-at
// descending, then reversed to chronological order, per spec.
func (l *Log) RecentMessages(ctx context.Context, sessionID string, count int) ([]Message, error) {
	if l.cache != nil {
		if cached, ok := l.cache.RecentMessages(ctx, sessionID, count); ok {
			return cached, nil
		}
	}
	all, err := l.store.MessagesBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if count > 0 && len(all) > count {
		all = all[:count]
	}
	// reverse back to chronological order
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if l.cache != nil {
		l.cache.SetRecentMessages(ctx, sessionID, all)
	}
	return all, nil
}

func (l *Log) TokenUsage(ctx context.Context, sessionID string) (int, error) {
	all, err := l.store.MessagesBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, m := range all {
		total += m.TokenCount
	}
	return total, nil
}

func (l *Log) DeleteSession(ctx context.Context, sessionID string) error {
	if err := l.store.DeleteSession(ctx, sessionID); err != nil {
		return rferrors.Wrap(rferrors.KindNotFound, "delete session failed", err, map[string]any{"session_id": sessionID})
	}
	if l.cache != nil {
		l.cache.Invalidate(ctx, sessionID)
	}
	return nil
}

// WindowedTranscript builds the {history} placeholder content for C9: at
// most maxTurns turns, at most maxTokens tokens, most recent turns kept.
func WindowedTranscript(messages []Message, maxTurns, maxTokens int) string {
	if maxTurns > 0 && len(messages) > maxTurns*2 {
		messages = messages[len(messages)-maxTurns*2:]
	}
	var out string
	tokens := 0
	var kept []Message
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if maxTokens > 0 && tokens+m.TokenCount > maxTokens {
			break
		}
		tokens += m.TokenCount
		kept = append([]Message{m}, kept...)
	}
	for _, m := range kept {
		out += string(m.Role) + ": " + m.Content + "\n"
	}
	return out
}
