package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
)

// handler recorta state_snapshots a las últimas SNAPSHOT_KEEP (default 5).
func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}
	keep := 5
	if v, err := strconv.Atoi(os.Getenv("SNAPSHOT_KEEP")); err == nil && v > 0 {
		keep = v
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := pool.Exec(cctx, `
DELETE FROM state_snapshots
WHERE id NOT IN (SELECT id FROM state_snapshots ORDER BY created_at DESC LIMIT $1);`, keep)
	if err != nil {
		return "", fmt.Errorf("prune snapshots: %w", err)
	}
	return fmt.Sprintf("ok, %d snapshots pruned", tag.RowsAffected()), nil
}

func main() { lambda.Start(handler) }
