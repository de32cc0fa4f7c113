package store

import (
	"errors"

	"quickgen/pkg/domain"
)

// ErrCreationNotFound is returned when a creation ID matches no row.
var ErrCreationNotFound = errors.New("creation not found")

// Store is the creation ledger. Rows are immutable after insert except for
// the likes set, which is only mutated through ToggleLike.
type Store interface {
	// RecordCreation inserts a new row and returns it with ID and CreatedAt set.
	RecordCreation(c domain.Creation) (domain.Creation, error)
	// ListCreationsByUser returns all rows for a user, newest first.
	ListCreationsByUser(userID string) ([]domain.Creation, error)
	// ListPublishedCreations returns all published rows, newest first.
	ListPublishedCreations() ([]domain.Creation, error)
	// ToggleLike flips membership of userID in the likes set of one creation.
	// The read-modify-write must be atomic with respect to concurrent toggles.
	ToggleLike(creationID, userID string) (domain.LikeTransition, error)
}
