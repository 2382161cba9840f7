package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// HandleWebSocket upgrades the request and pushes the caller's card list on
// every change until the client goes away.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.wallet(w, r)
	if !ok {
		return
	}
	user := cs.User()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	h.ws.StoreConnection(user, socketId, conn)
	log.Infof("New WebSocket connection established: %s for user %s", socketId, user)

	h.ws.Send(user, socketId, cs.Cards())

	go h.handleConnection(conn, user, socketId)
}

func (h *Handler) handleConnection(conn *websocket.Conn, user, socketId string) {
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		conn.Close()
		h.ws.HandleDisconnect(user, socketId)
	}()

	// clients do not send anything; reading drives ping/pong and close frames
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			}
			return
		}
	}
}
