package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jose-valero/guild-warden/internal/domain"
)

type MuteRepo struct{ db *sql.DB }

func NewMuteRepo(db *sql.DB) *MuteRepo { return &MuteRepo{db: db} }

// LoadMutes devuelve los mutes persistidos; filas con IDs raros se saltan.
func (r *MuteRepo) LoadMutes(ctx context.Context) ([]domain.MuteRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT guild_id, member_id, expires_at, restriction_role_id, reason, log_channel_id
  FROM temp_mutes
 ORDER BY expires_at ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MuteRecord
	for rows.Next() {
		var m muteRow
		if err := rows.Scan(&m.GuildID, &m.MemberID, &m.ExpiresAt, &m.RestrictionRoleID, &m.Reason, &m.LogChannelID); err != nil {
			return nil, err
		}
		rec := m.record()
		if !validMute(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveMutes reemplaza el contenido de temp_mutes en una sola transacción.
func (r *MuteRepo) SaveMutes(ctx context.Context, mutes []domain.MuteRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM temp_mutes`); err != nil {
		return fmt.Errorf("clear temp_mutes: %w", err)
	}
	for _, m := range mutes {
		_, err := tx.ExecContext(ctx, `
INSERT INTO temp_mutes (guild_id, member_id, expires_at, restriction_role_id, reason, log_channel_id)
VALUES ($1,$2,$3,$4,$5,$6)
`, m.GuildID, m.MemberID, m.ExpiresAt, m.RestrictionRoleID, m.Reason, nullable(m.LogChannelID))
		if err != nil {
			return fmt.Errorf("insert mute %s: %w", m.Key(), err)
		}
	}
	return tx.Commit()
}
