package storage

import (
	"context"
	"database/sql"

	"github.com/jose-valero/guild-warden/internal/domain"
)

type InviteRoleRepo struct{ db *sql.DB }

func NewInviteRoleRepo(db *sql.DB) *InviteRoleRepo { return &InviteRoleRepo{db: db} }

func (r *InviteRoleRepo) ListInviteRoles(ctx context.Context) ([]domain.InviteRole, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT guild_id, code, role_id FROM invite_roles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InviteRole
	for rows.Next() {
		var ir domain.InviteRole
		if err := rows.Scan(&ir.GuildID, &ir.Code, &ir.RoleID); err != nil {
			return nil, err
		}
		out = append(out, ir)
	}
	return out, rows.Err()
}

func (r *InviteRoleRepo) UpsertInviteRole(ctx context.Context, ir domain.InviteRole) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO invite_roles (guild_id, code, role_id)
VALUES ($1,$2,$3)
ON CONFLICT (guild_id, code) DO UPDATE SET role_id = EXCLUDED.role_id
`, ir.GuildID, ir.Code, ir.RoleID)
	return err
}

func (r *InviteRoleRepo) DeleteInviteRole(ctx context.Context, guildID, code string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM invite_roles
 WHERE guild_id = $1 AND code = $2
`, guildID, code)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
