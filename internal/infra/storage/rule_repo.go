package storage

import (
	"context"
	"database/sql"

	pq "github.com/lib/pq"

	"github.com/jose-valero/guild-warden/internal/domain"
)

type RuleRepo struct{ db *sql.DB }

func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

func (r *RuleRepo) ListRules(ctx context.Context) ([]domain.NotificationRule, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT channel_id, guild_id, role_ids
  FROM notification_rules
 ORDER BY created_at ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.NotificationRule
	for rows.Next() {
		var nr domain.NotificationRule
		var roles []string
		if err := rows.Scan(&nr.ChannelID, &nr.GuildID, pq.Array(&roles)); err != nil {
			return nil, err
		}
		nr.RoleIDs = roles
		out = append(out, nr)
	}
	return out, rows.Err()
}

// UpsertRule por channel_id; el orden de role_ids se conserva tal cual.
func (r *RuleRepo) UpsertRule(ctx context.Context, nr domain.NotificationRule) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO notification_rules (channel_id, guild_id, role_ids)
VALUES ($1,$2,$3)
ON CONFLICT (channel_id) DO UPDATE SET
  guild_id   = EXCLUDED.guild_id,
  role_ids   = EXCLUDED.role_ids,
  updated_at = now()
`, nr.ChannelID, nr.GuildID, pq.Array(nr.RoleIDs))
	return err
}

func (r *RuleRepo) DeleteRule(ctx context.Context, channelID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notification_rules WHERE channel_id = $1`, channelID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
