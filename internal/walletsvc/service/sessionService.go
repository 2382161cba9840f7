package service

import (
	"context"
	"sync"
	"time"

	"github.com/avvvet/card-wallet/internal/walletsvc/store"
	log "github.com/sirupsen/logrus"
)

type session struct {
	cs       *CardSync
	lastSeen time.Time
}

// Sessions hosts one CardSync per signed-in user.
type Sessions struct {
	store store.CardStore
	hooks SyncHooks
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessions creates the registry. st may be nil, in which case every
// synchronizer degrades to an empty list.
func NewSessions(st store.CardStore, hooks SyncHooks) *Sessions {
	return &Sessions{
		store:    st,
		hooks:    hooks,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Get returns the synchronizer of user, creating and loading it on first use.
func (s *Sessions) Get(ctx context.Context, user string) *CardSync {
	s.mu.Lock()
	if sess, ok := s.sessions[user]; ok {
		sess.lastSeen = s.now()
		s.mu.Unlock()
		return sess.cs
	}

	cs := NewCardSync(s.store, s.hooks)
	cs.bind(user)
	s.sessions[user] = &session{cs: cs, lastSeen: s.now()}
	s.mu.Unlock()

	log.WithFields(log.Fields{"user_id": user}).Info("card session started")
	cs.Load(ctx)
	return cs
}

// Lookup returns the synchronizer of user without creating one.
func (s *Sessions) Lookup(user string) (*CardSync, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[user]
	if !ok {
		return nil, false
	}
	return sess.cs, true
}

// Reload re-reads the cards of user if the user has a session here.
func (s *Sessions) Reload(ctx context.Context, user string) bool {
	cs, ok := s.Lookup(user)
	if !ok {
		return false
	}
	cs.Load(ctx)
	return true
}

// SignOut unbinds the user's synchronizer, which empties its list, and drops
// the session.
func (s *Sessions) SignOut(ctx context.Context, user string) {
	s.mu.Lock()
	sess, ok := s.sessions[user]
	delete(s.sessions, user)
	s.mu.Unlock()

	if !ok {
		return
	}
	sess.cs.SetUser(ctx, "")
	log.WithFields(log.Fields{"user_id": user}).Info("card session ended")
}

// Sweep drops sessions not used for longer than maxIdle and returns how many
// were dropped.
func (s *Sessions) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for user, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, user)
			n++
		}
	}
	return n
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
