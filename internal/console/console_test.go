package console

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendWritesByte(t *testing.T) {
	p := NewFakePort()
	require.NoError(t, Send(context.Background(), p, 'x', 10*time.Millisecond))
	assert.Equal(t, "x", p.Output())
}

func TestSendStalledTransmitterTimesOut(t *testing.T) {
	p := NewFakePort()
	p.StallSend = true

	err := Send(context.Background(), p, 'x', 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Empty(t, p.Output())
}

func TestSendParentCancelIsNotTimeout(t *testing.T) {
	p := NewFakePort()
	p.StallSend = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Send(ctx, p, 'x', time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestSendPortError(t *testing.T) {
	p := NewFakePort()
	p.SendError = errors.New("simulated error")

	err := Send(context.Background(), p, 'x', time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulated error")
}

func TestFakePortPendingOrder(t *testing.T) {
	p := NewFakePort('1', '\n')
	p.Feed('s')

	var got []byte
	for {
		b, ok, err := p.Pending()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, b)
	}
	assert.Equal(t, []byte{'1', '\n', 's'}, got)
	assert.Equal(t, 4, p.PendingCalls)
}

func TestFakePortLines(t *testing.T) {
	p := NewFakePort()
	for _, b := range []byte("a\nb\n") {
		require.NoError(t, p.SendByte(context.Background(), b))
	}
	assert.Equal(t, []string{"a", "b"}, p.Lines())

	p.ResetOutput()
	assert.Empty(t, p.Output())

	require.NoError(t, p.Close())
	assert.True(t, p.Closed)
}
