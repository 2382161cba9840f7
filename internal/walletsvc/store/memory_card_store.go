package store

import (
	"context"
	"sync"
	"time"

	"github.com/avvvet/card-wallet/internal/walletsvc/models"
	"github.com/google/uuid"
)

// Op names a MemoryCardStore operation for fault injection.
type Op string

const (
	OpSelect Op = "select"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// MemoryCardStore keeps cards in process memory. It backs local development
// and tests.
type MemoryCardStore struct {
	mu    sync.RWMutex
	cards map[string]models.Card
	fail  map[Op]error
	hooks map[Op]func()

	// Now assigns created_at on insert.
	Now func() time.Time
}

func NewMemoryCardStore() *MemoryCardStore {
	return &MemoryCardStore{
		cards: make(map[string]models.Card),
		fail:  make(map[Op]error),
		hooks: make(map[Op]func()),
		Now:   time.Now,
	}
}

// FailWith makes every following call of op return err. A nil err clears it.
func (s *MemoryCardStore) FailWith(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// OnCall registers fn to run at the start of every call of op, before any
// lock is taken. Tests use it to hold a call in flight.
func (s *MemoryCardStore) OnCall(op Op, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		delete(s.hooks, op)
		return
	}
	s.hooks[op] = fn
}

// Put stores card as is, bypassing id and timestamp assignment.
func (s *MemoryCardStore) Put(card models.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[card.ID] = card
}

// Get returns the stored card with the given id.
func (s *MemoryCardStore) Get(id string) (models.Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	return c, ok
}

func (s *MemoryCardStore) enter(op Op) error {
	s.mu.RLock()
	hook := s.hooks[op]
	s.mu.RUnlock()
	if hook != nil {
		hook()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fail[op]
}

func (s *MemoryCardStore) SelectByOwner(ctx context.Context, owner string) ([]models.Card, error) {
	if err := s.enter(OpSelect); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cards := []models.Card{}
	for _, c := range s.cards {
		if c.UserID == owner {
			cards = append(cards, c)
		}
	}
	models.SortCards(cards)
	return cards, nil
}

func (s *MemoryCardStore) Insert(ctx context.Context, card models.Card) (*models.Card, error) {
	if err := s.enter(OpInsert); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	card.ID = uuid.NewString()
	card.OpenCount = 0
	card.CreatedAt = s.Now()
	s.cards[card.ID] = card
	return &card, nil
}

func (s *MemoryCardStore) UpdateOpenCount(ctx context.Context, owner, id string, openCount int) error {
	if err := s.enter(OpUpdate); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok || c.UserID != owner {
		return ErrCardNotFound
	}
	if openCount > c.OpenCount {
		c.OpenCount = openCount
		s.cards[id] = c
	}
	return nil
}

func (s *MemoryCardStore) Delete(ctx context.Context, owner, id string) error {
	if err := s.enter(OpDelete); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok || c.UserID != owner {
		return ErrCardNotFound
	}
	delete(s.cards, id)
	return nil
}

var _ CardStore = (*MemoryCardStore)(nil)
