package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avvvet/card-wallet/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const CardsChangedTopic = "wallet.cards.changed"

// Reloader re-reads a user's cards if this instance hosts the user.
type Reloader interface {
	Reload(ctx context.Context, user string) bool
}

type Broker struct {
	Conn       *nats.Conn
	InstanceId string
	Sessions   Reloader
}

func NewBroker(nc *nats.Conn, instanceId string, sessions Reloader) *Broker {
	return &Broker{
		Conn:       nc,
		InstanceId: instanceId,
		Sessions:   sessions,
	}
}

// PublishCardsChanged announces a remote write for user. It is safe to call
// on a nil Broker.
func (b *Broker) PublishCardsChanged(user string) {
	if b == nil || b.Conn == nil {
		return
	}

	payload, err := json.Marshal(comm.CardsChanged{
		UserID:     user,
		InstanceID: b.InstanceId,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		log.Errorf("[PublishCardsChanged] unable to marshal message for user %s: %s", user, err)
		return
	}

	b.Publish(CardsChangedTopic, payload)
}

// SubscribeCardsChanged reloads hosted sessions when another instance wrote
// to their cards.
func (b *Broker) SubscribeCardsChanged() (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(CardsChangedTopic, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) handleMessage(msgNat *nats.Msg) {
	b.handleCardsChanged(msgNat.Data)
}

func (b *Broker) handleCardsChanged(data []byte) {
	msg := comm.CardsChanged{}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	if msg.InstanceID == b.InstanceId || msg.UserID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if b.Sessions.Reload(ctx, msg.UserID) {
		log.Infof("reloaded cards of user %s after write on instance %s", msg.UserID, msg.InstanceID)
	}
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
