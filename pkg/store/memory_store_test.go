package store

import (
	"strconv"
	"testing"

	"helixrecruit/pkg/domain"
)

func TestMemoryStoreUsers(t *testing.T) {
	s := NewMemoryStore()
	user := domain.User{ID: "u1", Email: "a@example.com", FirstName: "Ada"}
	if err := s.SaveUser(user); err != nil {
		t.Fatalf("save user: %v", err)
	}

	exists, err := s.HasUserEmail("a@example.com")
	if err != nil || !exists {
		t.Fatalf("expected email to exist, got %v %v", exists, err)
	}
	exists, err = s.HasUserEmail("b@example.com")
	if err != nil || exists {
		t.Fatalf("expected email to be absent, got %v %v", exists, err)
	}

	got, ok, err := s.GetUserByEmail("a@example.com")
	if err != nil || !ok || got.ID != "u1" {
		t.Fatalf("get by email: %+v %v %v", got, ok, err)
	}
	got, ok, err = s.GetUserByID("u1")
	if err != nil || !ok || got.Email != "a@example.com" {
		t.Fatalf("get by id: %+v %v %v", got, ok, err)
	}

	// Save is an upsert on id.
	user.FirstName = "Grace"
	if err := s.SaveUser(user); err != nil {
		t.Fatalf("update user: %v", err)
	}
	got, _, _ = s.GetUserByID("u1")
	if got.FirstName != "Grace" {
		t.Fatalf("expected updated name, got %q", got.FirstName)
	}
}

func TestMemoryStoreMessages(t *testing.T) {
	s := NewMemoryStore()
	for i := 0; i < 5; i++ {
		if err := s.AppendMessage(domain.ChatMessage{
			ID:      strconv.Itoa(i),
			UserID:  "u1",
			Role:    "user",
			Content: "msg " + strconv.Itoa(i),
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.AppendMessage(domain.ChatMessage{ID: "other", UserID: "u2", Role: "user"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	msgs, err := s.ListMessagesByUser("u1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}

	// The limit keeps the most recent messages, still in order.
	msgs, err = s.ListMessagesByUser("u1", 3)
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(msgs) != 3 || msgs[0].ID != "2" || msgs[2].ID != "4" {
		t.Fatalf("unexpected window %+v", msgs)
	}

	msgs, err = s.ListMessagesByUser("missing", 10)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("expected empty history, got %+v %v", msgs, err)
	}
}
