package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/guild-warden/internal/domain"
	"github.com/jose-valero/guild-warden/internal/testutil"
)

func TestSnapshotService_KeepsLastFive(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	reg := h.registry()
	rules := newRules(h)
	rec := NewInviteReconciler()
	rec.PrimeCache(guildID, []domain.Invite{{Code: "A", Uses: 2}})

	_, err := reg.Register(ctx, muteReq(member1, "1h"))
	require.NoError(t, err)
	require.NoError(t, h.store.UpsertWatch(ctx, domain.VoiceWatch{GuildID: guildID, VoiceChannelID: voiceID, LogChannelID: logID}))

	svc := NewSnapshotService(reg, rules, h.store, h.store, rec, h.store, testutil.NewSeqIDs("snap"), h.clock, testutil.NopLogger())
	for i := 0; i < 7; i++ {
		require.NoError(t, svc.Tick(ctx))
		h.clock.Advance(30 * time.Minute)
	}

	snaps := h.store.Snapshots()
	require.Len(t, snaps, 5)
	assert.Equal(t, "snap-3", snaps[0].ID)
	assert.Equal(t, "snap-7", snaps[4].ID)

	var payload snapshotPayload
	require.NoError(t, json.Unmarshal(snaps[4].Payload, &payload))
	require.Len(t, payload.Mutes, 1)
	assert.Equal(t, member1, payload.Mutes[0].MemberID)
	assert.Len(t, payload.Watches, 1)
	assert.Equal(t, 2, payload.InviteCounts[guildID]["A"])
}
