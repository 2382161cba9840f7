package broker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/avvvet/card-wallet/internal/comm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReloader struct {
	users []string
}

func (f *fakeReloader) Reload(ctx context.Context, user string) bool {
	f.users = append(f.users, user)
	return true
}

func changed(t *testing.T, user, instance string) []byte {
	t.Helper()
	data, err := json.Marshal(comm.CardsChanged{UserID: user, InstanceID: instance})
	require.NoError(t, err)
	return data
}

func TestHandleCardsChangedReloadsForeignWrites(t *testing.T) {
	r := &fakeReloader{}
	b := NewBroker(nil, "instance-a", r)

	b.handleCardsChanged(changed(t, "u1", "instance-b"))

	assert.Equal(t, []string{"u1"}, r.users)
}

func TestHandleCardsChangedIgnoresOwnAndInvalid(t *testing.T) {
	r := &fakeReloader{}
	b := NewBroker(nil, "instance-a", r)

	b.handleCardsChanged(changed(t, "u1", "instance-a"))
	b.handleCardsChanged(changed(t, "", "instance-b"))
	b.handleCardsChanged([]byte("{not json"))

	assert.Empty(t, r.users)
}

func TestPublishCardsChangedWithoutConnection(t *testing.T) {
	var nilBroker *Broker
	nilBroker.PublishCardsChanged("u1")

	b := NewBroker(nil, "instance-a", &fakeReloader{})
	b.PublishCardsChanged("u1")
}
