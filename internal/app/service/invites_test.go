package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/guild-warden/internal/domain"
	"github.com/jose-valero/guild-warden/internal/testutil"
)

func invites(counts map[string]int) []domain.Invite {
	out := make([]domain.Invite, 0, len(counts))
	for code, uses := range counts {
		out = append(out, domain.Invite{Code: code, Uses: uses})
	}
	return out
}

func TestInviteReconciler_AttributeJoin(t *testing.T) {
	tests := []struct {
		name      string
		refreshed map[string]int
		want      string
	}{
		{"single increment", map[string]int{"A": 6, "B": 3}, "A"},
		{"two increments", map[string]int{"A": 6, "B": 4}, Unknown},
		{"no change", map[string]int{"A": 5, "B": 3}, Unknown},
		{"new code used once", map[string]int{"A": 5, "B": 3, "C": 1}, "C"},
		{"jump of two", map[string]int{"A": 7, "B": 3}, Unknown},
		{"code removed", map[string]int{"B": 4}, "B"},
		{"count went down", map[string]int{"A": 4, "B": 3}, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewInviteReconciler()
			r.PrimeCache(guildID, invites(map[string]int{"A": 5, "B": 3}))

			got, primed := r.AttributeJoin(guildID, invites(tt.refreshed), "m1")
			assert.True(t, primed)
			assert.Equal(t, tt.want, got)
			// la base siempre queda en lo último observado
			assert.Equal(t, tt.refreshed, r.Snapshot()[guildID])
		})
	}
}

func hasBaseline(r *InviteReconciler, guild string) bool {
	_, ok := r.Snapshot()[guild]
	return ok
}

func TestInviteReconciler_UnprimedGuild(t *testing.T) {
	r := NewInviteReconciler()
	code, primed := r.AttributeJoin(guildID, invites(map[string]int{"A": 1}), "m1")
	assert.Equal(t, Unknown, code)
	assert.False(t, primed)
	assert.False(t, hasBaseline(r, guildID))

	// tras olvidar el guild vuelve a contar como sin base
	r.PrimeCache(guildID, invites(map[string]int{"A": 1}))
	r.Forget(guildID)
	code, primed = r.AttributeJoin(guildID, invites(map[string]int{"A": 2}), "m1")
	assert.Equal(t, Unknown, code)
	assert.False(t, primed)
	assert.False(t, hasBaseline(r, guildID))
}

func TestInviteReconciler_ObserveAndDrop(t *testing.T) {
	r := NewInviteReconciler()
	r.Observe(guildID, "X", 0) // sin base no hace nada
	assert.False(t, hasBaseline(r, guildID))

	r.PrimeCache(guildID, nil)
	r.Observe(guildID, "X", 0)
	r.Observe(guildID, "Y", 2)
	r.Drop(guildID, "Y")
	assert.Equal(t, map[string]int{"X": 0}, r.Snapshot()[guildID])

	r.Forget(guildID)
	assert.False(t, hasBaseline(r, guildID))
}

func newInviteService(h *harness) *InviteService {
	logChannel := func(context.Context, string) string { return logID }
	return NewInviteService(NewInviteReconciler(), h.platform, h.store, h.dispatch, logChannel, testutil.NopLogger())
}

func TestInviteService_HandleJoinGrantsRole(t *testing.T) {
	h := newHarness(t)
	svc := newInviteService(h)
	ctx := t.Context()

	h.platform.SetInvites(guildID, map[string]int{"A": 5, "B": 3})
	require.NoError(t, svc.Prime(ctx, guildID))
	require.NoError(t, svc.SetInviteRole(ctx, domain.InviteRole{GuildID: guildID, Code: "A", RoleID: "role-a"}))

	h.platform.SetInvites(guildID, map[string]int{"A": 6, "B": 3})
	code, err := svc.HandleJoin(ctx, guildID, "m1")
	require.NoError(t, err)
	assert.Equal(t, "A", code)

	adds := h.platform.Calls("add_role")
	require.Len(t, adds, 1)
	assert.Equal(t, "role-a", adds[0].RoleID)
	assert.Equal(t, "m1", adds[0].MemberID)
	logs := h.platform.Calls("log")
	require.Len(t, logs, 1)
	assert.Equal(t, logID, logs[0].ChannelID)
	assert.Contains(t, logs[0].Text, "`A`")

	// B no tiene rol: sólo se loguea
	h.platform.SetInvites(guildID, map[string]int{"A": 6, "B": 4})
	code, err = svc.HandleJoin(ctx, guildID, "m2")
	require.NoError(t, err)
	assert.Equal(t, "B", code)
	assert.Len(t, h.platform.Calls("add_role"), 1)
	assert.Len(t, h.platform.Calls("log"), 2)
}

func TestInviteService_UnprimedJoinPrimesForNextTime(t *testing.T) {
	h := newHarness(t)
	svc := newInviteService(h)
	ctx := t.Context()

	h.platform.SetInvites(guildID, map[string]int{"A": 1})
	code, err := svc.HandleJoin(ctx, guildID, "m1")
	require.NoError(t, err)
	assert.Equal(t, Unknown, code)
	assert.Empty(t, h.platform.Calls())

	h.platform.SetInvites(guildID, map[string]int{"A": 2})
	code, err = svc.HandleJoin(ctx, guildID, "m2")
	require.NoError(t, err)
	assert.Equal(t, "A", code)
}

func TestInviteService_FetchFailure(t *testing.T) {
	h := newHarness(t)
	svc := newInviteService(h)
	h.platform.FailInvites(errors.New("503"))

	code, err := svc.HandleJoin(t.Context(), guildID, "m1")
	assert.Error(t, err)
	assert.Equal(t, Unknown, code)
	assert.Error(t, svc.Prime(t.Context(), guildID))
}

func TestInviteService_InviteRoles(t *testing.T) {
	h := newHarness(t)
	svc := newInviteService(h)
	ctx := t.Context()

	assert.ErrorIs(t, svc.SetInviteRole(ctx, domain.InviteRole{GuildID: guildID, Code: "A"}), domain.ErrInvalidArgument)
	require.NoError(t, svc.SetInviteRole(ctx, domain.InviteRole{GuildID: guildID, Code: "A", RoleID: "r"}))
	require.NoError(t, svc.RemoveInviteRole(ctx, guildID, "A"))
	assert.ErrorIs(t, svc.RemoveInviteRole(ctx, guildID, "A"), domain.ErrNotFound)
}
