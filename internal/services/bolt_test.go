package services_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/floatchat/floatchat/internal/models"
	"github.com/floatchat/floatchat/internal/services"
)

func newTestBolt(t *testing.T) services.BoltDB {
	t.Helper()

	store, err := services.NewBoltDB(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("NewBoltDB() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func TestBoltAddAndList(t *testing.T) {
	store := newTestBolt(t)
	ctx := context.Background()

	msg := models.Message{
		ID:        "orig",
		Role:      models.RoleUser,
		Content:   "hello",
		Timestamp: time.Now(),
	}
	id, err := store.AddMessage(ctx, "alice", msg)
	if err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}
	if !strings.HasSuffix(id, "-orig") {
		t.Errorf("AddMessage() id = %q, want sequence prefix on original ID", id)
	}

	msgs, err := store.Messages(ctx, "alice")
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Messages() len = %d, want 1", len(msgs))
	}
	if msgs[0].ID != id {
		t.Errorf("stored ID = %q, want %q", msgs[0].ID, id)
	}
	if msgs[0].Content != "hello" {
		t.Errorf("stored content = %q, want hello", msgs[0].Content)
	}
}

func TestBoltMessagesUnknownUser(t *testing.T) {
	store := newTestBolt(t)

	msgs, err := store.Messages(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("unknown user history len = %d, want 0", len(msgs))
	}
}

func TestBoltOrdering(t *testing.T) {
	store := newTestBolt(t)
	ctx := context.Background()

	// Enough messages to push the sequence into two digits, where
	// lexicographic key iteration would put 10 right after 1.
	const count = 12
	for i := 1; i <= count; i++ {
		msg := models.Message{ID: "m", Content: fmt.Sprintf("msg-%d", i)}
		if _, err := store.AddMessage(ctx, "alice", msg); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	msgs, err := store.Messages(ctx, "alice")
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(msgs) != count {
		t.Fatalf("Messages() len = %d, want %d", len(msgs), count)
	}
	for i, msg := range msgs {
		if want := fmt.Sprintf("msg-%d", i+1); msg.Content != want {
			t.Errorf("msgs[%d].Content = %q, want %q", i, msg.Content, want)
		}
	}
}

func TestBoltReset(t *testing.T) {
	store := newTestBolt(t)
	ctx := context.Background()

	for _, user := range []string{"alice", "bob"} {
		if _, err := store.AddMessage(ctx, user, models.Message{ID: "m", Content: "hi"}); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	for _, user := range []string{"alice", "bob"} {
		msgs, err := store.Messages(ctx, user)
		if err != nil {
			t.Fatalf("Messages() error = %v", err)
		}
		if len(msgs) != 0 {
			t.Errorf("%s history len after reset = %d, want 0", user, len(msgs))
		}
	}

	// The store stays usable after a reset.
	if _, err := store.AddMessage(ctx, "alice", models.Message{ID: "m", Content: "again"}); err != nil {
		t.Fatalf("AddMessage() after reset error = %v", err)
	}
}
