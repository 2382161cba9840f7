package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avvvet/card-wallet/internal/comm"
	"github.com/avvvet/card-wallet/internal/walletsvc/models"
	"github.com/avvvet/card-wallet/internal/walletsvc/render"
	"github.com/avvvet/card-wallet/internal/walletsvc/service"
	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
)

// wallet resolves the caller's synchronizer, answering 401 when the token
// carries no user.
func (h *Handler) wallet(w http.ResponseWriter, r *http.Request) (*service.CardSync, bool) {
	user := userID(r)
	if user == "" {
		h.errorResponse(w, http.StatusUnauthorized, "token has no subject")
		return nil, false
	}
	return h.sessions.Get(r.Context(), user), true
}

func (h *Handler) list(w http.ResponseWriter, code int, cs *service.CardSync) {
	h.CreateResponse(w, Response{
		Message: "ok",
		Code:    code,
		Data:    comm.CardList{Cards: cs.Cards(), Loading: cs.Loading()},
	})
}

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.wallet(w, r)
	if !ok {
		return
	}
	h.list(w, http.StatusOK, cs)
}

func (h *Handler) AddCard(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.wallet(w, r)
	if !ok {
		return
	}

	var in models.NewCard
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCardBody)).Decode(&in); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "invalid card payload")
		return
	}
	if err := in.Normalize(); err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	cs.AddCard(r.Context(), in)
	h.list(w, http.StatusCreated, cs)
}

func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.wallet(w, r)
	if !ok {
		return
	}

	cs.DeleteCard(r.Context(), chi.URLParam(r, "id"))
	h.list(w, http.StatusOK, cs)
}

// OpenCard is called when the detail view of a card is shown.
func (h *Handler) OpenCard(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.wallet(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	card, found := cs.Card(id)
	if !found {
		h.errorResponse(w, http.StatusNotFound, "card not found")
		return
	}

	cs.IncrementOpenCount(r.Context(), id)
	if updated, ok := cs.Card(id); ok {
		card = updated
	}

	h.CreateResponse(w, Response{
		Message: "ok",
		Code:    http.StatusOK,
		Data:    comm.CardDetail{Card: card, Cards: cs.Cards()},
	})
}

func (h *Handler) CardCode(w http.ResponseWriter, r *http.Request) {
	cs, ok := h.wallet(w, r)
	if !ok {
		return
	}

	card, found := cs.Card(chi.URLParam(r, "id"))
	if !found {
		h.errorResponse(w, http.StatusNotFound, "card not found")
		return
	}

	var buf bytes.Buffer
	if err := render.PNG(&buf, card.Number, card.IsQRCode); err != nil {
		log.WithFields(log.Fields{"card_id": card.ID}).Warnf("unable to render code: %v", err)
		msg := "this value cannot be encoded as a barcode"
		if card.IsQRCode {
			msg = "could not generate QR code"
		}
		if errors.Is(err, render.ErrEmptyPayload) {
			msg = err.Error()
		}
		h.errorResponse(w, http.StatusUnprocessableEntity, msg)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Errorf("Failed to write code image: %v", err)
	}
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		h.errorResponse(w, http.StatusUnauthorized, "token has no subject")
		return
	}

	h.sessions.SignOut(r.Context(), user)
	h.CreateResponse(w, Response{
		Message: "signed out",
		Code:    http.StatusOK,
		Data:    comm.CardList{Cards: []models.Card{}},
	})
}
