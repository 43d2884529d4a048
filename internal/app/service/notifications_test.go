package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/guild-warden/internal/domain"
	"github.com/jose-valero/guild-warden/internal/testutil"
)

const newsID = "200000000000000003"

func newRules(h *harness) *NotificationRules {
	h.platform.AddChannel(guildID, newsID)
	return NewNotificationRules(h.store, h.platform, testutil.NopLogger())
}

func TestNotificationRules_SetAndMentions(t *testing.T) {
	h := newHarness(t)
	rules := newRules(h)
	ctx := t.Context()

	nr, err := rules.SetRule(ctx, guildID, newsID, []string{"r1", "r2", "r1", " "})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, nr.RoleIDs)

	line, ok := rules.Mentions(newsID)
	require.True(t, ok)
	assert.Equal(t, "<@&r1> <@&r2>", line)

	_, ok = rules.Mentions(logID)
	assert.False(t, ok)

	// otra instancia levanta lo persistido
	reloaded := NewNotificationRules(h.store, h.platform, testutil.NopLogger())
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, rules.Snapshot(), reloaded.Snapshot())
}

func TestNotificationRules_Validation(t *testing.T) {
	h := newHarness(t)
	rules := newRules(h)
	ctx := t.Context()
	h.platform.AddChannel(otherGuild, "300000000000000009")

	_, err := rules.SetRule(ctx, guildID, newsID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = rules.SetRule(ctx, guildID, "300000000000000009", []string{"r1"})
	assert.ErrorIs(t, err, domain.ErrGuildMismatch)

	_, err = rules.SetRule(ctx, guildID, "399999999999999999", []string{"r1"})
	assert.ErrorIs(t, err, domain.ErrChannelDeleted)

	assert.ErrorIs(t, rules.RemoveRule(ctx, newsID), domain.ErrNotFound)
}

func TestNotificationRules_PruneOnlyDeletedChannels(t *testing.T) {
	h := newHarness(t)
	rules := newRules(h)
	ctx := t.Context()

	_, err := rules.SetRule(ctx, guildID, newsID, []string{"r1"})
	require.NoError(t, err)
	_, err = rules.SetRule(ctx, guildID, logID, []string{"r2"})
	require.NoError(t, err)

	h.platform.SetTransient(logID, true)
	h.platform.DeleteChannel(newsID)
	require.NoError(t, rules.Prune(ctx))

	snap := rules.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, logID, snap[0].ChannelID)

	stored, err := h.store.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
