package comm

import (
	"encoding/json"
	"time"

	"github.com/avvvet/card-wallet/internal/walletsvc/models"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "cards", "error"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

// CardList is what clients see of a wallet.
type CardList struct {
	Cards   []models.Card `json:"cards"`
	Loading bool          `json:"loading"`
}

// CardDetail is returned when a card is opened.
type CardDetail struct {
	Card  models.Card   `json:"card"`
	Cards []models.Card `json:"cards"`
}

// CardsChanged tells other service instances that a user's cards were
// written and cached lists must be reloaded.
type CardsChanged struct {
	UserID     string    `json:"user_id"`
	InstanceID string    `json:"instance_id"` // publisher
	Timestamp  time.Time `json:"timestamp"`
}
