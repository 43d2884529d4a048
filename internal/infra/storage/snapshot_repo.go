package storage

import (
	"context"
	"database/sql"

	"github.com/jose-valero/guild-warden/internal/domain"
)

type SnapshotRepo struct{ db *sql.DB }

func NewSnapshotRepo(db *sql.DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

func (r *SnapshotRepo) SaveSnapshot(ctx context.Context, s domain.StateSnapshot) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO state_snapshots (id, created_at, payload)
VALUES ($1,$2,$3::jsonb)
`, s.ID, s.CreatedAt, string(s.Payload))
	return err
}

// PruneSnapshots deja sólo las `keep` más nuevas.
func (r *SnapshotRepo) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM state_snapshots
 WHERE id NOT IN (
   SELECT id FROM state_snapshots ORDER BY created_at DESC LIMIT $1
 )
`, keep)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
