package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/guild-warden/internal/domain"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	return fs
}

func TestFileStoreMutes(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	got, err := fs.LoadMutes(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	exp := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	want := []domain.MuteRecord{{GuildID: "1", MemberID: "2", ExpiresAt: exp, RestrictionRoleID: "3"}}
	require.NoError(t, fs.SaveMutes(ctx, want))

	got, err = fs.LoadMutes(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, fs.SaveMutes(ctx, nil))
	got, err = fs.LoadMutes(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStoreRules(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	require.NoError(t, fs.UpsertRule(ctx, domain.NotificationRule{ChannelID: "10", GuildID: "1", RoleIDs: []string{"7", "5"}}))
	require.NoError(t, fs.UpsertRule(ctx, domain.NotificationRule{ChannelID: "11", GuildID: "1", RoleIDs: []string{"5"}}))

	rules, err := fs.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, []string{"7", "5"}, rules[0].RoleIDs)

	ok, err := fs.DeleteRule(ctx, "10")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fs.DeleteRule(ctx, "10")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreWatchesAndInviteRoles(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	w := domain.VoiceWatch{GuildID: "1", VoiceChannelID: "20", LogChannelID: "21", DeleteAfter: 5 * time.Minute}
	require.NoError(t, fs.UpsertWatch(ctx, w))
	watches, err := fs.ListWatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.VoiceWatch{w}, watches)

	require.NoError(t, fs.UpsertInviteRole(ctx, domain.InviteRole{GuildID: "1", Code: "abc", RoleID: "9"}))
	roles, err := fs.ListInviteRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.InviteRole{{GuildID: "1", Code: "abc", RoleID: "9"}}, roles)

	ok, err := fs.DeleteInviteRole(ctx, "1", "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	roles, err = fs.ListInviteRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestFileStorePruneSnapshots(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	base := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		require.NoError(t, fs.SaveSnapshot(ctx, domain.StateSnapshot{
			ID:        "s" + string(rune('a'+i)),
			CreatedAt: base.Add(time.Duration(i) * 30 * time.Minute),
			Payload:   []byte(`{}`),
		}))
	}

	n, err := fs.PruneSnapshots(ctx, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	left, err := filepath.Glob(filepath.Join(fs.dir, snapshotsDir, "backup_*.json"))
	require.NoError(t, err)
	assert.Len(t, left, 5)
	_, err = os.Stat(filepath.Join(fs.dir, snapshotsDir, "backup_20261017_000000_sa.json"))
	assert.True(t, os.IsNotExist(err))
}
