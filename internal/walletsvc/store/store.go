package store

import (
	"context"
	"errors"

	"github.com/avvvet/card-wallet/internal/walletsvc/models"
)

// ErrCardNotFound is returned by updates and deletes that matched no row.
var ErrCardNotFound = errors.New("card not found")

// CardStore is the remote record store a card synchronizer reads from and
// writes to. Every call is scoped by owner.
type CardStore interface {
	// SelectByOwner returns all cards of owner ordered by open_count desc,
	// created_at desc.
	SelectByOwner(ctx context.Context, owner string) ([]models.Card, error)
	// Insert stores card and returns the row with id and created_at assigned.
	Insert(ctx context.Context, card models.Card) (*models.Card, error)
	// UpdateOpenCount sets the open count of a card. Counts never go down: a
	// value below the stored one leaves the row as is.
	UpdateOpenCount(ctx context.Context, owner, id string, openCount int) error
	Delete(ctx context.Context, owner, id string) error
}
