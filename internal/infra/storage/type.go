package storage

import (
	"time"

	"github.com/jose-valero/guild-warden/internal/domain"
)

// muteRow refleja una fila de temp_mutes (log_channel_id es nullable).
type muteRow struct {
	GuildID           string
	MemberID          string
	ExpiresAt         time.Time
	RestrictionRoleID string
	Reason            string
	LogChannelID      *string
}

func (r muteRow) record() domain.MuteRecord {
	m := domain.MuteRecord{
		GuildID:           r.GuildID,
		MemberID:          r.MemberID,
		ExpiresAt:         r.ExpiresAt.UTC(),
		RestrictionRoleID: r.RestrictionRoleID,
		Reason:            r.Reason,
	}
	if r.LogChannelID != nil {
		m.LogChannelID = *r.LogChannelID
	}
	return m
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// validMute: mismas reglas para ambos backends al recargar.
func validMute(m domain.MuteRecord) bool {
	return domain.IsSnowflake(m.GuildID) &&
		domain.IsSnowflake(m.MemberID) &&
		m.RestrictionRoleID != "" &&
		!m.ExpiresAt.IsZero()
}
