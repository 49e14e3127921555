package memory

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/steveharianto/Flightly/internal/models"
)

func TestRecordExtraction(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(time.Minute), nil)

	req := models.NewTravelRequest()
	req.To = "Paris"
	if err := m.RecordExtraction(ctx, "s1", "fly me to paris please", req, "fallback"); err != nil {
		t.Fatalf("RecordExtraction: %v", err)
	}

	msgs, err := m.GetMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "fly me to paris please" {
		t.Errorf("first message = %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" || !strings.Contains(msgs[1].Content, `"to":"Paris"`) {
		t.Errorf("second message = %+v", msgs[1])
	}

	history, err := m.GetFormattedHistory(ctx, "s1")
	if err != nil {
		t.Fatalf("GetFormattedHistory: %v", err)
	}
	if !strings.HasPrefix(history, "User: fly me to paris please\nAssistant: ") {
		t.Errorf("history = %q", history)
	}
}

func TestManagerReloadsFromStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(time.Minute)

	first := NewManager(store, nil)
	if err := first.RecordExtraction(ctx, "s1", "two people to rome", models.NewTravelRequest(), "remote"); err != nil {
		t.Fatal(err)
	}

	second := NewManager(store, nil)
	mem, err := second.GetOrCreateSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	msgs, err := mem.ChatHistory.Messages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Errorf("reloaded %d messages, want 2", len(msgs))
	}
}

func TestClearSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(time.Minute), nil)
	_ = m.RecordExtraction(ctx, "s1", "two people to rome", models.NewTravelRequest(), "remote")

	if err := m.ClearSession(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	exists, _ := m.SessionExists(ctx, "s1")
	if exists || m.GetActiveSessionCount() != 0 {
		t.Errorf("session should be gone: exists=%v cached=%d", exists, m.GetActiveSessionCount())
	}
}

func TestInMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(20 * time.Millisecond)
	_ = s.SaveMessages(ctx, "s1", Message{Role: "user", Content: "hi", Timestamp: time.Now()})

	time.Sleep(50 * time.Millisecond)
	if exists, _ := s.SessionExists(ctx, "s1"); exists {
		t.Error("journal should expire after its TTL")
	}
}

type downStore struct{ *InMemoryStore }

func (downStore) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestManagerPing(t *testing.T) {
	ctx := context.Background()
	if err := NewManager(NewInMemoryStore(time.Minute), nil).Ping(ctx); err != nil {
		t.Errorf("in-memory Ping = %v, want nil", err)
	}
	if err := NewManager(downStore{NewInMemoryStore(time.Minute)}, nil).Ping(ctx); err == nil {
		t.Error("Ping should report the store error")
	}
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(url, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer s.Close()

	if err := NewManager(s, nil).Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	id := "test-" + time.Now().Format("150405.000000")
	defer s.ClearSession(ctx, id)

	if err := s.SaveMessages(ctx, id, Message{Role: "user", Content: "hello", Timestamp: time.Now()}); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}
	msgs, err := s.GetMessages(ctx, id)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("GetMessages = %v, %v", msgs, err)
	}
}
