package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sanosuguru/go-nearby-events/internal/config"
)

// NewConnection はPostgreSQLへの接続を作成し、接続プールを設定する
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	db, err := sqlx.ConnectContext(connectCtx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました（%s:%s/%s）: %w", cfg.Host, cfg.Port, cfg.DBName, err)
	}

	configurePool(db, cfg)
	return db, nil
}

func configurePool(db *sqlx.DB, cfg *config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// Ping はヘルスチェック用に接続を確認する
func Ping(ctx context.Context, db *sqlx.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("データベースに到達できません: %w", err)
	}
	return nil
}
