package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/domain"
)

func TestActivityService_RecordAndRecent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := sampleEntry()
	second := sampleEntry()
	require.NoError(t, env.activity.Record(ctx, first))
	require.NoError(t, env.activity.Record(ctx, second))

	recent, err := env.activity.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, second.ID, recent[0].ID)
	assert.Equal(t, first.ID, recent[1].ID)
}

func TestActivityService_Stats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.createEvent(t, "Summer Fest")
	other := env.createEvent(t, "Winter Fest")

	a := env.createTicket(t, event.ID, "A", "One")
	env.createTicket(t, event.ID, "B", "Two")
	env.createTicket(t, event.ID, "C", "Three")
	env.createTicket(t, event.ID, "D", "Four")
	env.createTicket(t, other.ID, "E", "Five")
	_, err := env.redemption.MarkUsed(ctx, a.ID)
	require.NoError(t, err)

	stats, err := env.activity.Stats(ctx, &event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.Used)
	assert.Equal(t, int64(3), stats.Unused)
	assert.InDelta(t, 25.0, stats.UsageRate, 0.001)

	all, err := env.activity.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), all.Total)

	missing := "00000000-0000-0000-0000-000000000000"
	_, err = env.activity.Stats(ctx, &missing)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}
