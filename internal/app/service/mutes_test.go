package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/guild-warden/internal/domain"
	"github.com/jose-valero/guild-warden/internal/infra/storage"
	"github.com/jose-valero/guild-warden/internal/testutil"
)

func TestParseMuteDuration(t *testing.T) {
	ok := map[string]time.Duration{
		"600":  600 * time.Second,
		"90s":  90 * time.Second,
		"10m":  10 * time.Minute,
		"2h":   2 * time.Hour,
		"1d":   24 * time.Hour,
		" 5M ": 5 * time.Minute,
	}
	for raw, want := range ok {
		got, err := ParseMuteDuration(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "0", "-5", "+5", "abc", "10x", "1.5h", "m", "0s", "99999999999999999999d"} {
		_, err := ParseMuteDuration(raw)
		assert.ErrorIs(t, err, domain.ErrInvalidDuration, raw)
	}
}

func muteReq(member, duration string) MuteRequest {
	return MuteRequest{
		GuildID:           guildID,
		MemberID:          member,
		Duration:          duration,
		RestrictionRoleID: "role-muted",
		Reason:            "spam",
		LogChannelID:      logID,
	}
}

func TestMuteRegistry_ExpiresExactlyOnce(t *testing.T) {
	h := newHarness(t)
	reg := h.registry()
	ctx := t.Context()
	t0 := h.clock.Now()

	rec, err := reg.Register(ctx, muteReq(member1, "10m"))
	require.NoError(t, err)
	assert.Equal(t, t0.Add(10*time.Minute), rec.ExpiresAt)

	assert.Empty(t, reg.Evaluate(ctx, t0.Add(9*time.Minute)))

	got := reg.Evaluate(ctx, t0.Add(10*time.Minute))
	require.Equal(t, []domain.ActionKind{domain.ActionRemoveRestrictionRole, domain.ActionNotifyReversal}, kinds(got))
	assert.Equal(t, "role-muted", got[0].RoleID)
	assert.Equal(t, logID, got[1].ChannelID)

	assert.Empty(t, reg.Evaluate(ctx, t0.Add(11*time.Minute)))
	persisted, err := h.store.LoadMutes(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestMuteRegistry_NewestRegistrationWins(t *testing.T) {
	h := newHarness(t)
	reg := h.registry()
	ctx := t.Context()

	_, err := reg.Register(ctx, muteReq(member1, "1h"))
	require.NoError(t, err)
	_, err = reg.Register(ctx, muteReq(member1, "5m"))
	require.NoError(t, err)

	rec, ok := reg.Get(guildID, member1)
	require.True(t, ok)
	assert.Equal(t, h.clock.Now().Add(5*time.Minute), rec.ExpiresAt)
	assert.Len(t, reg.Snapshot(), 1)
}

func TestMuteRegistry_RejectsBadInput(t *testing.T) {
	h := newHarness(t)
	reg := h.registry()

	_, err := reg.Register(t.Context(), muteReq(member1, "soon"))
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	req := muteReq(member1, "10m")
	req.RestrictionRoleID = ""
	_, err = reg.Register(t.Context(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	// IDs que la recarga descartaría no entran
	for _, member := range []string{"m1", "", "<@300000000000000001>"} {
		_, err = reg.Register(t.Context(), muteReq(member, "10m"))
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, member)
	}
	req = muteReq(member1, "10m")
	req.GuildID = "guild"
	_, err = reg.Register(t.Context(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	assert.Empty(t, reg.Snapshot())
	assert.Zero(t, h.store.MuteSaves())
}

func TestMuteRegistry_CancelSuppressesExpiry(t *testing.T) {
	h := newHarness(t)
	reg := h.registry()
	ctx := t.Context()

	_, err := reg.Register(ctx, muteReq(member1, "10m"))
	require.NoError(t, err)

	got, err := reg.Cancel(ctx, guildID, member1)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	assert.Empty(t, reg.Evaluate(ctx, h.clock.Now().Add(time.Hour)))

	_, err = reg.Cancel(ctx, guildID, member1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMuteRegistry_PersistFailureLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)
	reg := h.registry()
	ctx := t.Context()

	h.store.SetSaveErr(errors.New("disk full"))
	_, err := reg.Register(ctx, muteReq(member1, "10m"))
	require.Error(t, err)
	_, ok := reg.Get(guildID, member1)
	assert.False(t, ok)

	h.store.SetSaveErr(nil)
	_, err = reg.Register(ctx, muteReq(member1, "10m"))
	require.NoError(t, err)

	h.store.SetSaveErr(errors.New("disk full"))
	_, err = reg.Cancel(ctx, guildID, member1)
	require.Error(t, err)
	_, ok = reg.Get(guildID, member1)
	assert.True(t, ok)
}

func TestMuteRegistry_ExpiryWriteIsRetried(t *testing.T) {
	h := newHarness(t)
	reg := h.registry()
	ctx := t.Context()

	_, err := reg.Register(ctx, muteReq(member1, "1m"))
	require.NoError(t, err)

	h.store.SetSaveErr(errors.New("disk full"))
	got := reg.Evaluate(ctx, h.clock.Now().Add(time.Minute))
	assert.Len(t, got, 2)
	_, ok := reg.Get(guildID, member1)
	assert.False(t, ok)

	persisted, _ := h.store.LoadMutes(ctx)
	assert.Len(t, persisted, 1)

	h.store.SetSaveErr(nil)
	assert.Empty(t, reg.Evaluate(ctx, h.clock.Now().Add(2*time.Minute)))
	persisted, _ = h.store.LoadMutes(ctx)
	assert.Empty(t, persisted)
}

func TestMuteRegistry_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	clock := testutil.NewManualClock()
	clock.Set(testutil.Epoch.Add(500 * time.Millisecond))
	ctx := t.Context()

	fs, err := storage.NewFileStore(dir, testutil.NopLogger())
	require.NoError(t, err)
	reg := NewMuteRegistry(fs, clock, testutil.NopLogger())
	short, err := reg.Register(ctx, muteReq(member1, "5s"))
	require.NoError(t, err)
	long, err := reg.Register(ctx, muteReq(member2, "1h"))
	require.NoError(t, err)

	// proceso nuevo sobre el mismo directorio
	fs2, err := storage.NewFileStore(dir, testutil.NopLogger())
	require.NoError(t, err)
	reg2 := NewMuteRegistry(fs2, clock, testutil.NopLogger())
	require.NoError(t, reg2.Load(ctx))

	restored := reg2.Snapshot()
	require.Len(t, restored, 2)
	assert.True(t, short.ExpiresAt.Equal(restored[0].ExpiresAt), "%v != %v", short.ExpiresAt, restored[0].ExpiresAt)
	assert.True(t, long.ExpiresAt.Equal(restored[1].ExpiresAt))

	clock.Advance(6 * time.Second)
	got := reg2.Evaluate(ctx, clock.Now())
	require.Len(t, got, 2)
	assert.Equal(t, member1, got[0].MemberID)
	assert.Equal(t, "role-muted", got[0].RoleID)
	_, ok := reg2.Get(guildID, member2)
	assert.True(t, ok)
}

func TestMuteRegistry_RollbackRestoresPrevious(t *testing.T) {
	h := newHarness(t)
	reg := h.registry()
	ctx := t.Context()

	first, prev, err := reg.Replace(ctx, muteReq(member1, "1h"))
	require.NoError(t, err)
	assert.Nil(t, prev)

	second, prev, err := reg.Replace(ctx, muteReq(member1, "5m"))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, first.ExpiresAt, prev.ExpiresAt)

	undone, err := reg.Rollback(ctx, second, prev)
	require.NoError(t, err)
	assert.True(t, undone)
	got, ok := reg.Get(guildID, member1)
	require.True(t, ok)
	assert.Equal(t, first.ExpiresAt, got.ExpiresAt)

	undone, err = reg.Rollback(ctx, first, nil)
	require.NoError(t, err)
	assert.True(t, undone)
	assert.Empty(t, reg.Snapshot())
}

func TestMuteRegistry_RollbackKeepsNewerMute(t *testing.T) {
	h := newHarness(t)
	reg := h.registry()
	ctx := t.Context()

	older, prev, err := reg.Replace(ctx, muteReq(member1, "1h"))
	require.NoError(t, err)

	// otro /mute pisa al primero antes de que éste se deshaga
	h.clock.Advance(time.Second)
	newer, err := reg.Register(ctx, muteReq(member1, "2h"))
	require.NoError(t, err)

	undone, err := reg.Rollback(ctx, older, prev)
	require.NoError(t, err)
	assert.False(t, undone)

	got, ok := reg.Get(guildID, member1)
	require.True(t, ok)
	assert.Equal(t, newer.ExpiresAt, got.ExpiresAt)
	persisted, err := h.store.LoadMutes(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, newer.ExpiresAt, persisted[0].ExpiresAt)
}

func TestMuteRegistry_CancelRacingExpiryRevertsOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		h := newHarness(t)
		reg := h.registry()
		ctx := t.Context()
		_, err := reg.Register(ctx, muteReq(member1, "1s"))
		require.NoError(t, err)
		at := h.clock.Now().Add(time.Second)

		var (
			wg        sync.WaitGroup
			fromTick  []domain.ActionRequest
			fromClear []domain.ActionRequest
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			fromTick = reg.Evaluate(ctx, at)
		}()
		go func() {
			defer wg.Done()
			fromClear, _ = reg.Cancel(ctx, guildID, member1)
		}()
		wg.Wait()

		reversals := 0
		for _, a := range append(fromTick, fromClear...) {
			if a.Kind == domain.ActionRemoveRestrictionRole {
				reversals++
			}
		}
		require.Equal(t, 1, reversals, "iteration %d", i)
	}
}
