package app

import (
	"errors"
	"strings"
	"testing"
)

func TestSessionStore_StartsWithDefaultSession(t *testing.T) {
	s := NewSessionStore()
	if s.Len() != 1 {
		t.Fatalf("expected one session, got %d", s.Len())
	}
	active := s.Active()
	if active.Title != "New Chat" {
		t.Fatalf("unexpected default title: %q", active.Title)
	}
	if len(active.Messages) != 0 {
		t.Fatalf("expected empty message list")
	}
}

func TestSessionStore_CreateInsertsAtFrontAndActivates(t *testing.T) {
	s := NewSessionStore()
	s.AppendExchange("first question", "first answer", "srv-1")

	created := s.Create()
	if s.ActiveIndex() != 0 {
		t.Fatalf("expected new session active at index 0, got %d", s.ActiveIndex())
	}
	if created.ID == "" || created.ID == "default" {
		t.Fatalf("expected fresh local id, got %q", created.ID)
	}
	sessions := s.Sessions()
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if len(sessions[0].Messages) != 0 {
		t.Fatalf("new session should be empty")
	}
	if len(sessions[1].Messages) != 2 {
		t.Fatalf("old session should keep its messages")
	}
}

func TestSessionStore_SwitchActiveOutOfRange(t *testing.T) {
	s := NewSessionStore()
	if _, err := s.SwitchActive(1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := s.SwitchActive(-1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestSessionStore_DeleteLastSessionFails(t *testing.T) {
	s := NewSessionStore()
	if err := s.Delete(0); !errors.Is(err, ErrLastSession) {
		t.Fatalf("expected ErrLastSession, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("session list must never be empty")
	}
}

func TestSessionStore_DeleteActivePromotesFirst(t *testing.T) {
	s := NewSessionStore()
	s.Create()
	s.Create()
	if _, err := s.SwitchActive(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(1); err != nil {
		t.Fatal(err)
	}
	if s.ActiveIndex() != 0 {
		t.Fatalf("expected active index 0, got %d", s.ActiveIndex())
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", s.Len())
	}
}

func TestSessionStore_DeleteBeforeActiveShiftsIndex(t *testing.T) {
	s := NewSessionStore()
	s.Create()
	s.Create() // list: [new2, new1, default]
	if _, err := s.SwitchActive(2); err != nil {
		t.Fatal(err)
	}
	target := s.Active().ID

	if err := s.Delete(0); err != nil {
		t.Fatal(err)
	}
	if s.ActiveIndex() != 1 {
		t.Fatalf("expected active index shifted to 1, got %d", s.ActiveIndex())
	}
	if s.Active().ID != target {
		t.Fatalf("active pointer moved to a different logical session")
	}
}

func TestSessionStore_DeleteAfterActiveKeepsIndex(t *testing.T) {
	s := NewSessionStore()
	s.Create()
	s.Create()
	target := s.Active().ID

	if err := s.Delete(2); err != nil {
		t.Fatal(err)
	}
	if s.ActiveIndex() != 0 {
		t.Fatalf("expected active index unchanged, got %d", s.ActiveIndex())
	}
	if s.Active().ID != target {
		t.Fatalf("active pointer moved to a different logical session")
	}
}

func TestSessionStore_NeverEmptyUnderChurn(t *testing.T) {
	s := NewSessionStore()
	for i := 0; i < 20; i++ {
		s.Create()
		if err := s.Delete(s.Len() - 1); err != nil {
			t.Fatal(err)
		}
		if s.Len() == 0 {
			t.Fatalf("session list became empty")
		}
		if idx := s.ActiveIndex(); idx < 0 || idx >= s.Len() {
			t.Fatalf("active index %d invalid for %d sessions", idx, s.Len())
		}
	}
}

func TestSessionStore_TitleDerivedOnSecondMessageOnly(t *testing.T) {
	s := NewSessionStore()
	question := "What does the employment code say about notice periods exactly?"
	s.AppendUser(question)
	if got := s.Active().Title; got != "New Chat" {
		t.Fatalf("title changed before exchange completed: %q", got)
	}

	s.CompleteExchange("It says a lot.", "srv-1")
	want := string([]rune(question)[:30]) + "..."
	if got := s.Active().Title; got != want {
		t.Fatalf("expected title %q, got %q", want, got)
	}

	s.AppendExchange("And severance pay?", "Also covered.", "srv-1")
	if got := s.Active().Title; got != want {
		t.Fatalf("title must never change after first derivation, got %q", got)
	}
}

func TestSessionStore_TitleKeepsShortMessagesWhole(t *testing.T) {
	s := NewSessionStore()
	s.AppendExchange("hello", "hi", "")
	if got := s.Active().Title; got != "hello..." {
		t.Fatalf("expected %q, got %q", "hello...", got)
	}
}

func TestSessionStore_NoticeDoesNotTouchTitleOrActivity(t *testing.T) {
	s := NewSessionStore()
	before := s.Active()

	s.AppendUser("does this fail?")
	s.AppendNotice("Sorry, I encountered an error: request timed out after 30s.")

	after := s.Active()
	if len(after.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(after.Messages))
	}
	if after.Messages[1].Role != RoleAssistant {
		t.Fatalf("notice must be assistant-role, got %q", after.Messages[1].Role)
	}
	if after.Title != before.Title {
		t.Fatalf("notice changed title to %q", after.Title)
	}
	if !after.LastActivity.Equal(before.LastActivity) {
		t.Fatalf("notice changed lastActivity")
	}
}

func TestSessionStore_ServerIDAdoptedOnce(t *testing.T) {
	s := NewSessionStore()
	s.AppendExchange("q1", "a1", "srv-9")
	active := s.Active()
	if active.ID != "srv-9" || !active.ServerAssigned {
		t.Fatalf("server id not adopted: %+v", active)
	}

	s.AppendExchange("q2", "a2", "")
	if got := s.Active().ID; got != "srv-9" {
		t.Fatalf("empty server id must not clear the session id, got %q", got)
	}
}

func TestSessionStore_LastActivityNonDecreasing(t *testing.T) {
	s := NewSessionStore()
	prev := s.Active().LastActivity
	for i := 0; i < 5; i++ {
		s.AppendExchange("question", "answer", "")
		now := s.Active().LastActivity
		if now.Before(prev) {
			t.Fatalf("lastActivity decreased: %v -> %v", prev, now)
		}
		prev = now
	}
}

func TestSessionStore_AccessorsReturnCopies(t *testing.T) {
	s := NewSessionStore()
	s.AppendExchange("original", "reply", "")

	active := s.Active()
	active.Messages[0].Content = "mutated"
	active.Title = "mutated"

	fresh := s.Active()
	if fresh.Messages[0].Content != "original" {
		t.Fatalf("caller mutated store-owned message")
	}
	if strings.Contains(fresh.Title, "mutated") {
		t.Fatalf("caller mutated store-owned title")
	}

	msgs, err := s.SwitchActive(0)
	if err != nil {
		t.Fatal(err)
	}
	msgs[0].Content = "mutated again"
	if s.Active().Messages[0].Content != "original" {
		t.Fatalf("SwitchActive leaked a mutable reference")
	}
}
