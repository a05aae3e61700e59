package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"inventory-service/internal/database"
)

// TxRunner ejecuta fn dentro de una transacción; cualquier error hace rollback completo
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type txRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) TxRunner {
	return &txRunner{db: db}
}

func (r *txRunner) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// statements prepara un mapa de consultas con nombre, reescritas para el dialecto
type statements map[string]*sql.Stmt

func prepareStatements(db *sql.DB, dialect database.Dialect, queries map[string]string) (statements, error) {
	stmts := make(statements, len(queries))
	for name, query := range queries {
		stmt, err := db.Prepare(dialect.Rebind(query))
		if err != nil {
			stmts.Close()
			return nil, fmt.Errorf("failed to prepare %s: %w", name, err)
		}
		stmts[name] = stmt
	}
	return stmts, nil
}

// get devuelve la sentencia, ligada a tx si la hay
func (s statements) get(ctx context.Context, tx *sql.Tx, name string) *sql.Stmt {
	stmt := s[name]
	if tx != nil {
		return tx.StmtContext(ctx, stmt)
	}
	return stmt
}

func (s statements) Close() {
	for _, stmt := range s {
		stmt.Close()
	}
}

// querier lo cumplen *sql.DB y *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func pick(db *sql.DB, tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return db
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
