package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kartlab/catalogd/internal/db"
)

// querier is the query surface shared by *pgxpool.Pool and pgx.Tx, so a
// repository can run against the pool or inside a transaction unchanged.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxManager runs a critical section against transaction-scoped proposal
// and catalog repositories. Publishing spans both tables; either all of
// its writes land or none do.
type TxManager interface {
	InTx(ctx context.Context, fn func(proposals ProposalRepository, catalog CatalogRepository) error) error
}

type txManager struct {
	conn *db.Connection
}

// NewTxManager wires a transaction manager over the shared connection.
func NewTxManager(conn *db.Connection) TxManager {
	return &txManager{conn: conn}
}

func (m *txManager) InTx(ctx context.Context, fn func(ProposalRepository, CatalogRepository) error) error {
	return m.conn.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&proposalRepository{db: tx}, &catalogRepository{db: tx})
	})
}
