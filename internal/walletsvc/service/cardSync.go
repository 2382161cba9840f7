package service

import (
	"context"
	"sync"
	"time"

	"github.com/avvvet/card-wallet/internal/walletsvc/models"
	"github.com/avvvet/card-wallet/internal/walletsvc/store"
	log "github.com/sirupsen/logrus"
)

const defaultRemoteTimeout = 30 * time.Second

// SyncHooks are optional callbacks fired by a CardSync.
type SyncHooks struct {
	// OnChange receives every list the synchronizer exposes, in order.
	OnChange func(user string, cards []models.Card)
	// OnWrite runs after a remote insert, update or delete succeeded.
	OnWrite func(user string)
}

// CardSync keeps a sorted, locally cached list of one user's cards in step
// with a remote CardStore.
//
// Loads are numbered; a Load result is applied only when no newer Load or
// SetUser started while it was in flight. Local deletes and count bumps made
// during a Load, and increments whose remote write has not finished yet, are
// replayed on top of the fetched rows. Remote failures are logged and never
// returned; callers only observe the list.
type CardSync struct {
	store   store.CardStore // nil when no store is configured
	hooks   SyncHooks
	timeout time.Duration

	mu       sync.Mutex
	user     string
	cards    []models.Card
	loading  bool
	inflight int
	loadSeq  uint64
	editSeq  uint64
	edits    []localEdit
	version  uint64

	notifyMu sync.Mutex
	notified uint64
}

// localEdit is a mutation of the local list a fetched list may not reflect.
type localEdit struct {
	seq     uint64
	id      string
	deleted bool
	count   int  // open count after an increment
	pending bool // increment whose remote write is still running
}

func NewCardSync(st store.CardStore, hooks SyncHooks) *CardSync {
	return &CardSync{
		store:   st,
		hooks:   hooks,
		timeout: defaultRemoteTimeout,
		cards:   []models.Card{},
	}
}

// SetUser binds the synchronizer to user ("" for nobody), discards the
// current list and reloads. Setting the bound user again is a no-op.
func (s *CardSync) SetUser(ctx context.Context, user string) {
	s.mu.Lock()
	if s.loadSeq != 0 && s.user == user {
		s.mu.Unlock()
		return
	}
	s.bindLocked(user)
	s.mu.Unlock()

	s.Load(ctx)
}

func (s *CardSync) bind(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindLocked(user)
}

func (s *CardSync) bindLocked(user string) {
	s.user = user
	s.cards = []models.Card{}
	s.loading = true
	s.edits = nil
	s.loadSeq++
}

// bumpLocked numbers a list about to be published.
func (s *CardSync) bumpLocked() uint64 {
	s.version++
	return s.version
}

// recordLocked numbers a local edit and keeps it while a Load is in flight
// or while its remote write is pending.
func (s *CardSync) recordLocked(e localEdit) uint64 {
	s.editSeq++
	e.seq = s.editSeq
	if s.inflight > 0 || e.pending {
		s.edits = append(s.edits, e)
	}
	return e.seq
}

// settleLocked marks the increment seq as written, or forgets it when the
// write failed.
func (s *CardSync) settleLocked(seq uint64, ok bool) {
	for i := range s.edits {
		if s.edits[i].seq != seq {
			continue
		}
		if ok && s.inflight > 0 {
			s.edits[i].pending = false
		} else {
			s.edits = append(s.edits[:i], s.edits[i+1:]...)
		}
		return
	}
}

// pruneLocked drops settled edits once no Load is left to replay them on.
func (s *CardSync) pruneLocked() {
	if s.inflight > 0 {
		return
	}
	kept := s.edits[:0]
	for _, e := range s.edits {
		if e.pending {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	s.edits = kept
}

// replay applies the edits a Load started after since could not see, plus
// every pending increment, to the fetched list it owns.
func replay(cards []models.Card, edits []localEdit, since uint64) []models.Card {
	changed := false
	for _, e := range edits {
		if e.seq <= since && !e.pending {
			continue
		}
		i := models.IndexOf(cards, e.id)
		if i < 0 {
			continue
		}
		if e.deleted {
			cards = append(cards[:i], cards[i+1:]...)
			changed = true
		} else if e.count > cards[i].OpenCount {
			cards[i].OpenCount = e.count
			changed = true
		}
	}
	if changed {
		models.SortCards(cards)
	}
	return cards
}

// Load replaces the list with the bound user's cards from the store. With no
// user, no store, or a failing store the list becomes empty.
func (s *CardSync) Load(ctx context.Context) {
	s.mu.Lock()
	user := s.user
	s.loadSeq++
	gen := s.loadSeq
	since := s.editSeq
	s.inflight++
	s.loading = true
	s.mu.Unlock()

	cards := []models.Card{}
	if user != "" && s.store != nil {
		rctx, cancel := s.remoteContext(ctx)
		rows, err := s.store.SelectByOwner(rctx, user)
		cancel()
		if err != nil {
			log.WithFields(log.Fields{"user_id": user}).Errorf("Error fetching cards: %s", err)
		} else {
			cards = models.CloneCards(rows)
			models.SortCards(cards)
		}
	}

	s.mu.Lock()
	s.inflight--
	s.loading = s.inflight > 0
	applied := gen == s.loadSeq
	var version uint64
	if applied {
		cards = replay(cards, s.edits, since)
		s.cards = cards
		version = s.bumpLocked()
	} else {
		log.WithFields(log.Fields{"user_id": user}).Debugf("discarding stale card list %d, latest is %d", gen, s.loadSeq)
	}
	s.pruneLocked()
	s.mu.Unlock()

	if applied {
		s.publish(user, version, models.CloneCards(cards))
	}
}

// AddCard inserts a card owned by the bound user and reloads the list so the
// new card lands where the sort order puts it. Input is not validated here.
// On failure the list is left unchanged.
func (s *CardSync) AddCard(ctx context.Context, in models.NewCard) {
	user := s.User()
	if user == "" || s.store == nil {
		return
	}

	card := models.Card{
		UserID:    user,
		Name:      in.Name,
		Number:    in.Number,
		IsQRCode:  in.IsQRCode,
		Color:     in.Color,
		ImageURL:  in.ImageURL,
		OpenCount: 0,
	}

	rctx, cancel := s.remoteContext(ctx)
	created, err := s.store.Insert(rctx, card)
	cancel()
	if err != nil {
		log.WithFields(log.Fields{"user_id": user}).Errorf("Error adding card: %s", err)
		return
	}
	log.WithFields(log.Fields{"user_id": user, "card_id": created.ID}).Info("card added")

	s.written(user)
	s.Load(ctx)
}

// DeleteCard removes the card remotely and then from the local list. The
// local removal happens even when the remote delete fails. Unknown ids leave
// the list unchanged.
func (s *CardSync) DeleteCard(ctx context.Context, id string) {
	user := s.User()
	if user == "" || s.store == nil {
		return
	}

	rctx, cancel := s.remoteContext(ctx)
	err := s.store.Delete(rctx, user, id)
	cancel()
	if err != nil {
		log.WithFields(log.Fields{"user_id": user, "card_id": id}).Errorf("Error deleting card: %s", err)
	} else {
		s.written(user)
	}

	s.mu.Lock()
	if s.user != user {
		s.mu.Unlock()
		return
	}
	s.recordLocked(localEdit{id: id, deleted: true})
	i := models.IndexOf(s.cards, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	next := make([]models.Card, 0, len(s.cards)-1)
	next = append(next, s.cards[:i]...)
	next = append(next, s.cards[i+1:]...)
	s.cards = next
	version := s.bumpLocked()
	s.mu.Unlock()

	s.publish(user, version, models.CloneCards(next))
}

// IncrementOpenCount bumps the card's open count locally, re-sorts and
// exposes the new list before writing the count to the store. If the write
// fails the list is reloaded from the store. Unknown ids are ignored.
func (s *CardSync) IncrementOpenCount(ctx context.Context, id string) {
	if s.store == nil {
		return
	}

	s.mu.Lock()
	i := models.IndexOf(s.cards, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	user := s.user
	newCount := s.cards[i].OpenCount + 1
	next := models.CloneCards(s.cards)
	next[i].OpenCount = newCount
	models.SortCards(next)
	s.cards = next
	edit := s.recordLocked(localEdit{id: id, count: newCount, pending: true})
	version := s.bumpLocked()
	s.mu.Unlock()

	s.publish(user, version, models.CloneCards(next))

	rctx, cancel := s.remoteContext(ctx)
	err := s.store.UpdateOpenCount(rctx, user, id, newCount)
	cancel()

	s.mu.Lock()
	s.settleLocked(edit, err == nil)
	s.mu.Unlock()

	if err != nil {
		log.WithFields(log.Fields{"user_id": user, "card_id": id}).Errorf("Error incrementing open count: %s", err)
		s.Load(ctx)
		return
	}

	s.written(user)
}

// Cards returns a copy of the current list.
func (s *CardSync) Cards() []models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneCards(s.cards)
}

// Card returns the card with the given id from the current list.
func (s *CardSync) Card(id string) (models.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := models.IndexOf(s.cards, id)
	if i < 0 {
		return models.Card{}, false
	}
	return s.cards[i], true
}

func (s *CardSync) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *CardSync) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// remoteContext detaches store calls from the caller's cancellation; a call
// that was started always runs to completion or to the sync timeout.
func (s *CardSync) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}

// publish hands a list to OnChange unless a newer one already went out.
// OnChange runs under notifyMu and must not block.
func (s *CardSync) publish(user string, version uint64, cards []models.Card) {
	if s.hooks.OnChange == nil {
		return
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if version < s.notified {
		return
	}
	s.notified = version
	s.hooks.OnChange(user, cards)
}

func (s *CardSync) written(user string) {
	if s.hooks.OnWrite != nil {
		s.hooks.OnWrite(user)
	}
}
