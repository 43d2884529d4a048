package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/guild-warden/internal/domain"
	"github.com/jose-valero/guild-warden/internal/testutil"
)

type forgetRecorder struct{ keys []domain.MemberKey }

func (f *forgetRecorder) Forget(guildID, memberID string) {
	f.keys = append(f.keys, domain.MemberKey{GuildID: guildID, MemberID: memberID})
}

func newModeration(h *harness, voice voiceForgetter) *Moderation {
	return NewModeration(h.registry(), voice, h.dispatch, h.clock,
		MuteDefaults{RestrictionRoleID: "role-default", LogChannelID: logID}, testutil.NopLogger())
}

func TestModeration_MuteAppliesRoleWithDefaults(t *testing.T) {
	h := newHarness(t)
	voice := &forgetRecorder{}
	mod := newModeration(h, voice)

	rec, err := mod.Mute(t.Context(), MuteRequest{GuildID: guildID, MemberID: member1, Duration: "10m", Reason: "flood"})
	require.NoError(t, err)
	assert.Equal(t, "role-default", rec.RestrictionRoleID)
	assert.Equal(t, logID, rec.LogChannelID)

	adds := h.platform.Calls("add_role")
	require.Len(t, adds, 1)
	assert.Equal(t, "role-default", adds[0].RoleID)
	assert.Equal(t, "flood", adds[0].Text)
	assert.Equal(t, []domain.MemberKey{{GuildID: guildID, MemberID: member1}}, voice.keys)
}

func TestModeration_MuteRollsBackWhenRoleFails(t *testing.T) {
	h := newHarness(t)
	mod := newModeration(h, nil)
	ctx := t.Context()

	h.platform.Fail("add_role", errors.New("missing permissions"))
	_, err := mod.Mute(ctx, MuteRequest{GuildID: guildID, MemberID: member1, Duration: "10m"})
	var aerr *domain.ActuationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, domain.ActionApplyRestrictionRole, aerr.Kind)
	assert.Empty(t, mod.reg.Snapshot())
}

func TestModeration_FailedRemuteKeepsPreviousMute(t *testing.T) {
	h := newHarness(t)
	mod := newModeration(h, nil)
	ctx := t.Context()

	first, err := mod.Mute(ctx, MuteRequest{GuildID: guildID, MemberID: member1, Duration: "1h"})
	require.NoError(t, err)

	h.platform.Fail("add_role", errors.New("missing permissions"))
	_, err = mod.Mute(ctx, MuteRequest{GuildID: guildID, MemberID: member1, Duration: "5m"})
	require.Error(t, err)

	got, ok := mod.reg.Get(guildID, member1)
	require.True(t, ok)
	assert.Equal(t, first.ExpiresAt, got.ExpiresAt)
}

func TestModeration_FailedMuteDoesNotUndoConcurrentMute(t *testing.T) {
	h := newHarness(t)
	mod := newModeration(h, nil)
	ctx := t.Context()

	var (
		adds   int
		second domain.MuteRecord
	)
	h.platform.Intercept("add_role", func(testutil.Call) error {
		adds++
		if adds > 1 {
			return nil
		}
		// mientras el primer /mute espera el rol entra otro para el mismo miembro
		var err error
		second, err = mod.Mute(ctx, MuteRequest{GuildID: guildID, MemberID: member1, Duration: "2h"})
		assert.NoError(t, err)
		return errors.New("missing permissions")
	})

	_, err := mod.Mute(ctx, MuteRequest{GuildID: guildID, MemberID: member1, Duration: "10m"})
	require.Error(t, err)

	got, ok := mod.reg.Get(guildID, member1)
	require.True(t, ok)
	assert.Equal(t, second.ExpiresAt, got.ExpiresAt)
	assert.Equal(t, h.clock.Now().Add(2*time.Hour), got.ExpiresAt)
}

func TestModeration_UnmuteAndTick(t *testing.T) {
	h := newHarness(t)
	mod := newModeration(h, nil)
	ctx := t.Context()

	_, err := mod.Mute(ctx, MuteRequest{GuildID: guildID, MemberID: member1, Duration: "10m"})
	require.NoError(t, err)
	_, err = mod.Mute(ctx, MuteRequest{GuildID: guildID, MemberID: member2, Duration: "1m"})
	require.NoError(t, err)

	require.NoError(t, mod.Unmute(ctx, guildID, member1))
	assert.ErrorIs(t, mod.Unmute(ctx, guildID, member1), domain.ErrNotFound)

	h.clock.Advance(time.Minute)
	require.NoError(t, mod.Tick(ctx))
	require.NoError(t, mod.Tick(ctx))

	removes := h.platform.Calls("remove_role")
	require.Len(t, removes, 2)
	assert.Equal(t, member1, removes[0].MemberID)
	assert.Equal(t, member2, removes[1].MemberID)
	logs := h.platform.Calls("log")
	require.Len(t, logs, 2)
	assert.Equal(t, logID, logs[0].ChannelID)
}
