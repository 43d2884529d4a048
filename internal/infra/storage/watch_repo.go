package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/jose-valero/guild-warden/internal/domain"
)

type WatchRepo struct{ db *sql.DB }

func NewWatchRepo(db *sql.DB) *WatchRepo { return &WatchRepo{db: db} }

func (r *WatchRepo) ListWatches(ctx context.Context) ([]domain.VoiceWatch, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT guild_id, voice_channel_id, log_channel_id, delete_after_minutes
  FROM voice_watches
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.VoiceWatch
	for rows.Next() {
		var w domain.VoiceWatch
		var mins int
		if err := rows.Scan(&w.GuildID, &w.VoiceChannelID, &w.LogChannelID, &mins); err != nil {
			return nil, err
		}
		w.DeleteAfter = time.Duration(mins) * time.Minute
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WatchRepo) UpsertWatch(ctx context.Context, w domain.VoiceWatch) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO voice_watches (guild_id, voice_channel_id, log_channel_id, delete_after_minutes)
VALUES ($1,$2,$3,$4)
ON CONFLICT (guild_id) DO UPDATE SET
  voice_channel_id     = EXCLUDED.voice_channel_id,
  log_channel_id       = EXCLUDED.log_channel_id,
  delete_after_minutes = EXCLUDED.delete_after_minutes,
  updated_at           = NOW()
`, w.GuildID, w.VoiceChannelID, w.LogChannelID, int(w.DeleteAfter/time.Minute))
	return err
}

func (r *WatchRepo) DeleteWatch(ctx context.Context, guildID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM voice_watches WHERE guild_id = $1`, guildID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
