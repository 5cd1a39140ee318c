package inmemory

import (
	"context"
	"sync"
	"testing"

	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/memory"
)

func TestArrayMemory_AppendAndAllMessages(t *testing.T) {
	ctx := context.Background()
	m := New()

	if n, _ := m.Count(ctx); n != 0 {
		t.Fatalf("expected empty memory, got %d", n)
	}

	if err := memory.AppendTurn(ctx, m, "hi", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.AppendMessage(ctx, nil); err != nil {
		t.Fatalf("nil message should be ignored, got %v", err)
	}

	if n, _ := m.Count(ctx); n != 2 {
		t.Fatalf("expected 2 messages, got %d", n)
	}

	all, err := m.AllMessages(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if all[0].Role != ai.RoleUser || all[1].Role != ai.RoleAssistant {
		t.Fatalf("unexpected roles: %+v", all)
	}

	all[0].Content = "changed"
	again, _ := m.AllMessages(ctx)
	if again[0].Content == "changed" {
		t.Fatal("expected AllMessages to return a copy")
	}
}

func TestArrayMemory_LastMessages(t *testing.T) {
	ctx := context.Background()
	m := New()
	for i := 0; i < 5; i++ {
		m.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: string(rune('a' + i))})
	}

	last, _ := m.LastMessages(ctx, 2)
	if len(last) != 2 || last[0].Content != "d" || last[1].Content != "e" {
		t.Fatalf("unexpected last messages: %v", last)
	}

	none, _ := m.LastMessages(ctx, 0)
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", none)
	}

	all, _ := m.LastMessages(ctx, 10)
	if len(all) != 5 {
		t.Fatalf("expected all 5 messages, got %d", len(all))
	}
}

func TestArrayMemory_PopLastAndClear(t *testing.T) {
	ctx := context.Background()
	m := New()

	if got, _ := m.PopLastMessage(ctx); got != nil {
		t.Fatalf("expected nil from empty memory, got %+v", got)
	}

	memory.AppendTurn(ctx, m, "q", "a")

	got, _ := m.PopLastMessage(ctx)
	if got == nil || got.Content != "a" {
		t.Fatalf("expected to pop 'a', got %+v", got)
	}

	m.ClearMessages(ctx)
	if n, _ := m.Count(ctx); n != 0 {
		t.Fatalf("expected empty after clear, got %d", n)
	}
}

func TestArrayMemory_FilterByRole(t *testing.T) {
	ctx := context.Background()
	m := New()
	memory.AppendTurn(ctx, m, "q1", "a1")
	memory.AppendTurn(ctx, m, "q2", "a2")

	users, _ := m.FilterByRole(ctx, ai.RoleUser)
	if len(users) != 2 || users[1].Content != "q2" {
		t.Fatalf("unexpected user messages: %+v", users)
	}

	system, _ := m.FilterByRole(ctx, ai.RoleSystem)
	if system == nil || len(system) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", system)
	}
}

func TestArrayMemory_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AppendMessage(ctx, &ai.Message{Role: ai.RoleUser, Content: "x"})
		}()
	}
	wg.Wait()

	if n, _ := m.Count(ctx); n != 50 {
		t.Fatalf("expected 50 messages, got %d", n)
	}
}

func TestSessions_SameIDSharesHistory(t *testing.T) {
	ctx := context.Background()
	s := NewSessions()

	memory.AppendTurn(ctx, s.Session("a"), "q", "r")

	if n, _ := s.Session("a").Count(ctx); n != 2 {
		t.Fatalf("expected session a to hold 2 messages, got %d", n)
	}
	if n, _ := s.Session("b").Count(ctx); n != 0 {
		t.Fatalf("expected session b to be empty, got %d", n)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", s.Len())
	}
}
