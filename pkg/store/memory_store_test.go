package store

import (
	"errors"
	"testing"
	"time"

	"quickgen/pkg/domain"
)

func TestRecordCreationAssignsDefaults(t *testing.T) {
	m := NewMemoryStore()
	c, err := m.RecordCreation(domain.Creation{UserID: "u1", Prompt: "p", Content: "c", Type: domain.TypeArticle})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if c.ID == "" {
		t.Fatal("expected assigned ID")
	}
	if c.CreatedAt.IsZero() {
		t.Fatal("expected assigned CreatedAt")
	}
	if c.Likes == nil {
		t.Fatal("likes must be initialized to an empty set")
	}
}

func TestListCreationsByUserNewestFirst(t *testing.T) {
	m := NewMemoryStore()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := m.RecordCreation(domain.Creation{
			UserID:    "u1",
			Prompt:    "p",
			Type:      domain.TypeArticle,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if _, err := m.RecordCreation(domain.Creation{UserID: "u2", Prompt: "other", Type: domain.TypeArticle}); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := m.ListCreationsByUser("u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 creations, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Fatalf("not newest-first at index %d", i)
		}
	}
}

func TestListPublishedCreationsFiltersUnpublished(t *testing.T) {
	m := NewMemoryStore()
	pub, _ := m.RecordCreation(domain.Creation{UserID: "u1", Type: domain.TypeImage, Publish: true})
	if _, err := m.RecordCreation(domain.Creation{UserID: "u1", Type: domain.TypeImage}); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := m.ListPublishedCreations()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != pub.ID {
		t.Fatalf("expected only the published creation, got %+v", got)
	}
}

func TestToggleLikeFlipsMembership(t *testing.T) {
	m := NewMemoryStore()
	c, _ := m.RecordCreation(domain.Creation{UserID: "u1", Type: domain.TypeImage, Publish: true})

	transition, err := m.ToggleLike(c.ID, "u2")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if transition != domain.TransitionLiked {
		t.Fatalf("first toggle: got %q want liked", transition)
	}
	stored, _ := m.Get(c.ID)
	if !stored.Liked("u2") {
		t.Fatal("u2 should be in likes after first toggle")
	}

	transition, err = m.ToggleLike(c.ID, "u2")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if transition != domain.TransitionUnliked {
		t.Fatalf("second toggle: got %q want unliked", transition)
	}
	stored, _ = m.Get(c.ID)
	if stored.Liked("u2") {
		t.Fatal("u2 should be removed after second toggle")
	}
}

func TestToggleLikeKeepsOtherMembers(t *testing.T) {
	m := NewMemoryStore()
	c, _ := m.RecordCreation(domain.Creation{UserID: "u1", Type: domain.TypeImage, Likes: []string{"u2", "u3"}})

	if _, err := m.ToggleLike(c.ID, "u2"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	stored, _ := m.Get(c.ID)
	if stored.Liked("u2") {
		t.Fatal("u2 should be removed")
	}
	if !stored.Liked("u3") {
		t.Fatal("u3 must be untouched")
	}
}

func TestToggleLikeUnknownCreation(t *testing.T) {
	m := NewMemoryStore()
	_, err := m.ToggleLike("missing", "u1")
	if !errors.Is(err, ErrCreationNotFound) {
		t.Fatalf("expected ErrCreationNotFound, got %v", err)
	}
}

func TestListReturnsCopies(t *testing.T) {
	m := NewMemoryStore()
	c, _ := m.RecordCreation(domain.Creation{UserID: "u1", Type: domain.TypeImage, Likes: []string{"u2"}})

	got, _ := m.ListCreationsByUser("u1")
	got[0].Likes[0] = "mutated"

	stored, _ := m.Get(c.ID)
	if stored.Likes[0] != "u2" {
		t.Fatal("mutating a listed creation must not affect the stored row")
	}
}
