package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open abre la conexión (pgx stdlib) y verifica health.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// Migrate aplica todas las migraciones embebidas.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

// PGStore agrupa los repos del backend postgres.
type PGStore struct {
	*MuteRepo
	*RuleRepo
	*WatchRepo
	*InviteRoleRepo
	*SnapshotRepo
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{
		MuteRepo:       NewMuteRepo(db),
		RuleRepo:       NewRuleRepo(db),
		WatchRepo:      NewWatchRepo(db),
		InviteRoleRepo: NewInviteRoleRepo(db),
		SnapshotRepo:   NewSnapshotRepo(db),
	}
}
