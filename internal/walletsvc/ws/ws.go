package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/avvvet/card-wallet/internal/comm"
	"github.com/avvvet/card-wallet/internal/walletsvc/models"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// client owns one socket. Writes happen on its own goroutine; a list queued
// while a write is running replaces any list still waiting, so a slow socket
// only ever receives the latest one.
type client struct {
	conn Conn

	mu      sync.Mutex
	pending []byte
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newClient(conn Conn) *client {
	return &client{
		conn: conn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Ws keeps the open sockets of every user and pushes card lists to them.
type Ws struct {
	mu    sync.RWMutex
	users map[string]map[string]*client // userId -> socketId -> client
}

func NewWs() *Ws {
	return &Ws{users: make(map[string]map[string]*client)}
}

func (s *Ws) StoreConnection(userId, socketId string, conn Conn) {
	c := newClient(conn)

	s.mu.Lock()
	conns, ok := s.users[userId]
	if !ok {
		conns = make(map[string]*client)
		s.users[userId] = conns
	}
	if old, ok := conns[socketId]; ok {
		old.stop()
	}
	conns[socketId] = c
	s.mu.Unlock()

	go s.writePump(userId, socketId, c)
}

func (s *Ws) HandleDisconnect(userId, socketId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conns, ok := s.users[userId]
	if !ok {
		return
	}
	if c, ok := conns[socketId]; ok {
		c.stop()
		delete(conns, socketId)
	}
	if len(conns) == 0 {
		delete(s.users, userId)
	}
}

// drop forgets c unless the socket id was reused by a newer client.
func (s *Ws) drop(userId, socketId string, c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conns := s.users[userId]
	if conns[socketId] != c {
		return
	}
	delete(conns, socketId)
	if len(conns) == 0 {
		delete(s.users, userId)
	}
}

func (s *Ws) Count(userId string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userId])
}

// Broadcast queues the card list for every socket of userId and returns
// without waiting for the writes. Sockets that fail to write are closed and
// forgotten.
func (s *Ws) Broadcast(userId string, cards []models.Card) {
	if userId == "" {
		return
	}

	s.mu.RLock()
	targets := make([]string, 0, len(s.users[userId]))
	for id := range s.users[userId] {
		targets = append(targets, id)
	}
	s.mu.RUnlock()

	for _, socketId := range targets {
		s.Send(userId, socketId, cards)
	}
}

// Send queues the card list for one socket of userId.
func (s *Ws) Send(userId, socketId string, cards []models.Card) {
	s.mu.RLock()
	c, ok := s.users[userId][socketId]
	s.mu.RUnlock()
	if !ok {
		return
	}

	if cards == nil {
		cards = []models.Card{}
	}
	data, err := json.Marshal(comm.CardList{Cards: cards})
	if err != nil {
		log.Errorf("[Send] unable to marshal cards for user %s: %s", userId, err)
		return
	}
	payload, err := json.Marshal(&comm.WSMessage{Type: "cards", Data: data, SocketId: socketId})
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	c.queue(payload)
}

func (s *Ws) writePump(userId, socketId string, c *client) {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		c.mu.Lock()
		payload := c.pending
		c.pending = nil
		c.mu.Unlock()
		if payload == nil {
			continue
		}

		if err := c.write(payload); err != nil {
			log.Warnf("dropping socket %s of user %s: %v", socketId, userId, err)
			c.conn.Close()
			c.stop()
			s.drop(userId, socketId, c)
			return
		}
	}
}

func (c *client) queue(payload []byte) {
	c.mu.Lock()
	c.pending = payload
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) write(payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}
