package postgres

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-nearby-events/internal/domain/transaction"
)

var errForeignTx = errors.New("PostgreSQL以外のトランザクションです")

// TxWrapper は sqlx.Tx を transaction.Tx インターフェースでラップする
type TxWrapper struct {
	*sqlx.Tx
}

// Commit はトランザクションをコミットする
func (t *TxWrapper) Commit() error {
	return t.Tx.Commit()
}

// Rollback はトランザクションをロールバックする
func (t *TxWrapper) Rollback() error {
	return t.Tx.Rollback()
}

// TxManager は sqlx.DB を使用したトランザクションマネージャー
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager は新しい TxManager を作成する
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// Begin は新しいトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &TxWrapper{Tx: tx}, nil
}

// unwrapTx は transaction.Tx から sqlx.Tx を取り出す
func unwrapTx(tx transaction.Tx) (*sqlx.Tx, error) {
	if wrapper, ok := tx.(*TxWrapper); ok {
		return wrapper.Tx, nil
	}
	return nil, errForeignTx
}
