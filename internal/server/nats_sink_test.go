package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/thraizz/wildwood-server-go/internal/game"
)

func TestNATSSinkPublishesPerSession(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ns, err := StartEmbeddedNATS("127.0.0.1", -1, logger)
	require.NoError(t, err)
	t.Cleanup(ns.Shutdown)

	sink, err := NewNATSSink(ns.ClientURL(), "wildwood.effects", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	sub, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(sub.Close)

	msgs, err := sub.SubscribeSync("wildwood.effects.>")
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	effects := []game.SideEffect{
		{Kind: game.EffectBanner, Text: "Day 2", Priority: game.PriorityHigh},
		{Kind: game.EffectSound, Sound: "wolf_howl"},
	}
	require.NoError(t, sink.Publish(context.Background(), "abc", effects))

	msg, err := msgs.NextMsg(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "wildwood.effects.abc", msg.Subject)

	var env EffectEnvelope
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, "abc", env.SessionID)
	assert.Equal(t, effects, env.Effects)
}

func TestNATSSinkHonoursCancelledContext(t *testing.T) {
	ns, err := StartEmbeddedNATS("127.0.0.1", -1, nil)
	require.NoError(t, err)
	t.Cleanup(ns.Shutdown)

	sink, err := NewNATSSink(ns.ClientURL(), "wildwood.effects", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Publish(ctx, "abc", nil), context.Canceled)
}
