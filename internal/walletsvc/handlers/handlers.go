package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/avvvet/card-wallet/internal/walletsvc/service"
	"github.com/avvvet/card-wallet/internal/walletsvc/ws"
	"github.com/go-chi/jwtauth"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const maxCardBody = 4 << 20 // logos arrive inline as data URLs

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	sessions  *service.Sessions
	ws        *ws.Ws
	upgrader  websocket.Upgrader
}

func NewHandler(sessions *service.Sessions, hub *ws.Ws) *Handler {
	return &Handler{
		sessions: sessions,
		ws:       hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) errorResponse(w http.ResponseWriter, code int, msg string) {
	h.CreateResponse(w, Response{
		Message: http.StatusText(code),
		Code:    code,
		Error:   msg,
	})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "wallet service is running at port " + os.Getenv("WALLET_SERVICE_PORT"),
		Code:    http.StatusOK,
		Data:    map[string]int{"sessions": h.sessions.Len()},
	})
}
