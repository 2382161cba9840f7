package models

import (
	"sort"
	"time"
)

// Card represents a row of the cards table.
type Card struct {
	ID        string    `json:"id" bson:"_id"`           // Server assigned, immutable
	UserID    string    `json:"user_id" bson:"user_id"`  // Owner, immutable
	Name      string    `json:"name" bson:"name"`        // Display label
	Number    string    `json:"number" bson:"number"`    // Data encoded into the barcode or QR symbol
	IsQRCode  bool      `json:"is_qr_code" bson:"is_qr_code"`
	Color     string    `json:"color" bson:"color"`
	ImageURL  *string   `json:"image_url,omitempty" bson:"image_url,omitempty"` // Optional logo (data URL)
	OpenCount int       `json:"open_count" bson:"open_count"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// NewCard carries the user supplied fields of a card. Everything else is
// assigned by the synchronizer or the store.
type NewCard struct {
	Name     string  `json:"name"`
	Number   string  `json:"number"`
	IsQRCode bool    `json:"is_qr_code"`
	Color    string  `json:"color"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Less reports whether a is listed before b: most opened first, then most
// recently created first.
func Less(a, b Card) bool {
	if a.OpenCount != b.OpenCount {
		return a.OpenCount > b.OpenCount
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// SortCards orders cards in place using Less. The sort is stable.
func SortCards(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return Less(cards[i], cards[j])
	})
}

// CloneCards returns a copy of cards that never aliases the input. A nil or
// empty input yields an empty, non-nil slice.
func CloneCards(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}

// IndexOf returns the position of the card with the given id or -1.
func IndexOf(cards []Card, id string) int {
	for i := range cards {
		if cards[i].ID == id {
			return i
		}
	}
	return -1
}
