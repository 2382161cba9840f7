package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRequiresDSN(t *testing.T) {
	pool, err := Connect(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoDSN)
	assert.Nil(t, pool)
}

func TestConnectRejectsMalformedDSN(t *testing.T) {
	pool, err := Connect(context.Background(), "postgres://%zz")
	require.Error(t, err)
	assert.Nil(t, pool)
}
