package store

import (
	"sort"
	"sync"
	"time"

	"quickgen/internal/util"
	"quickgen/pkg/domain"
)

// MemoryStore keeps creations in-process. Used by tests and local runs
// without Postgres.
type MemoryStore struct {
	mu        sync.Mutex
	creations map[string]domain.Creation
}

// NewMemoryStore initializes an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creations: make(map[string]domain.Creation)}
}

// RecordCreation stores a new creation row.
func (m *MemoryStore) RecordCreation(c domain.Creation) (domain.Creation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = util.NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Likes == nil {
		c.Likes = []string{}
	}
	m.creations[c.ID] = c
	return c, nil
}

// ListCreationsByUser returns a user's creations, newest first.
func (m *MemoryStore) ListCreationsByUser(userID string) ([]domain.Creation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.Creation, 0)
	for _, c := range m.creations {
		if c.UserID == userID {
			res = append(res, cloneCreation(c))
		}
	}
	sortNewestFirst(res)
	return res, nil
}

// ListPublishedCreations returns published creations, newest first.
func (m *MemoryStore) ListPublishedCreations() ([]domain.Creation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.Creation, 0)
	for _, c := range m.creations {
		if c.Publish {
			res = append(res, cloneCreation(c))
		}
	}
	sortNewestFirst(res)
	return res, nil
}

// ToggleLike flips the caller's membership in a creation's likes set.
// The store mutex makes the read-modify-write atomic.
func (m *MemoryStore) ToggleLike(creationID, userID string) (domain.LikeTransition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creations[creationID]
	if !ok {
		return "", ErrCreationNotFound
	}
	updated := make([]string, 0, len(c.Likes)+1)
	found := false
	for _, id := range c.Likes {
		if id == userID {
			found = true
			continue
		}
		updated = append(updated, id)
	}
	transition := domain.TransitionLiked
	if found {
		transition = domain.TransitionUnliked
	} else {
		updated = append(updated, userID)
	}
	c.Likes = updated
	m.creations[creationID] = c
	return transition, nil
}

// Get returns a creation by ID. Test helper.
func (m *MemoryStore) Get(creationID string) (domain.Creation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creations[creationID]
	if !ok {
		return domain.Creation{}, false
	}
	return cloneCreation(c), true
}

func cloneCreation(c domain.Creation) domain.Creation {
	likes := make([]string, len(c.Likes))
	copy(likes, c.Likes)
	c.Likes = likes
	return c
}

func sortNewestFirst(creations []domain.Creation) {
	sort.SliceStable(creations, func(i, j int) bool {
		return creations[i].CreatedAt.After(creations[j].CreatedAt)
	})
}
