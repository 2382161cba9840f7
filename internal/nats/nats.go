package nats

import (
	"errors"
	"time"

	"github.com/nats-io/nats.go"
)

var ErrNoURL = errors.New("nats url not configured")

type Nats struct {
	Url   string
	Token string
	Conn  *nats.Conn
}

// Connect dials url. An empty url returns ErrNoURL so callers can run
// without messaging.
func Connect(url, token, name string) (*Nats, error) {
	if url == "" {
		return nil, ErrNoURL
	}

	n := &Nats{
		Url:   url,
		Token: token,
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}

	// if token provided
	if n.Token != "" {
		opts = append(opts, nats.Token(n.Token))
	}

	conn, err := nats.Connect(n.Url, opts...)
	if err != nil {
		return nil, err
	}

	n.Conn = conn

	return n, nil
}
