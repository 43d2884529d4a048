package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/guild-warden/internal/domain"
)

func TestEncodeDecodeMutes(t *testing.T) {
	exp := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	in := []domain.MuteRecord{
		{GuildID: "100", MemberID: "200", ExpiresAt: exp, RestrictionRoleID: "300", Reason: "spam", LogChannelID: "400"},
		{GuildID: "100", MemberID: "201", ExpiresAt: exp.Add(time.Hour), RestrictionRoleID: "300"},
	}

	b, err := EncodeMutes(in)
	require.NoError(t, err)

	out, skipped, err := DecodeMutes(b)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, in, out)
}

func TestEncodeMutesKeepsSubSecond(t *testing.T) {
	in := []domain.MuteRecord{
		{GuildID: "100", MemberID: "200", ExpiresAt: time.Date(2026, 10, 17, 10, 0, 0, 500_000_000, time.UTC), RestrictionRoleID: "300"},
		{GuildID: "100", MemberID: "201", ExpiresAt: time.Date(2026, 10, 17, 10, 0, 1, 123_456_789, time.UTC), RestrictionRoleID: "300"},
	}

	b, err := EncodeMutes(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), "2026-10-17T10:00:00.5Z")

	out, _, err := DecodeMutes(b)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.True(t, in[i].ExpiresAt.Equal(out[i].ExpiresAt), "%v != %v", in[i].ExpiresAt, out[i].ExpiresAt)
	}
}

func TestDecodeMutesTolerance(t *testing.T) {
	doc := `{
  "100": {
    "200": {"expires_at": 1792238400, "restriction_role_id": "300"},
    "201": {"expires_at": "2026-10-17T12:00:00", "restriction_role_id": "300", "reason": "flood"},
    "abc": {"expires_at": 1792238400, "restriction_role_id": "300"},
    "202": {"restriction_role_id": "300"},
    "203": {"expires_at": "mañana", "restriction_role_id": "300"},
    "204": {"expires_at": 1792238400}
  },
  "not-a-guild": {
    "200": {"expires_at": 1792238400, "restriction_role_id": "300"}
  },
  "101": "garbage"
}`
	out, skipped, err := DecodeMutes([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 6, skipped)
	require.Len(t, out, 2)

	byMember := map[string]domain.MuteRecord{}
	for _, m := range out {
		byMember[m.MemberID] = m
	}
	assert.Equal(t, time.Unix(1792238400, 0).UTC(), byMember["200"].ExpiresAt)
	assert.Equal(t, time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC), byMember["201"].ExpiresAt)
	assert.Equal(t, "flood", byMember["201"].Reason)
	assert.Empty(t, byMember["201"].LogChannelID)
}

func TestDecodeMutesEmptyAndBroken(t *testing.T) {
	out, skipped, err := DecodeMutes(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, skipped)

	_, _, err = DecodeMutes([]byte("[1,2"))
	assert.Error(t, err)
}
