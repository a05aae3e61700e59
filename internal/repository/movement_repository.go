package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"inventory-service/internal/database"
	"inventory-service/internal/models"
)

// MovementRepository registro append-only de movimientos de stock
type MovementRepository interface {
	Create(ctx context.Context, movement *models.Movement) error
	List(ctx context.Context, filter models.MovementFilter) ([]*models.Movement, error)
	SumByItem(ctx context.Context, itemID int64) (int, error)
	Unreconciled(ctx context.Context) ([]models.ReconcileRow, error)

	WithTx(tx *sql.Tx) MovementRepository
}

type movementRepository struct {
	db      *sql.DB
	dialect database.Dialect
	stmts   statements
	tx      *sql.Tx
}

func NewMovementRepository(db *sql.DB, dialect database.Dialect) (MovementRepository, error) {
	stmts, err := prepareStatements(db, dialect, map[string]string{
		"create": `
			INSERT INTO movements (created_at, item_id, part_number, qty_change, reason, sale_id, username, note)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
		"sum_by_item": `
			SELECT COALESCE(SUM(qty_change), 0) FROM movements WHERE item_id = ?`,
		"unreconciled": `
			SELECT i.id, i.part_number, COALESCE(i.stock, 0), COALESCE(SUM(m.qty_change), 0)
			FROM items i
			LEFT JOIN movements m ON m.item_id = i.id
			GROUP BY i.id, i.part_number, i.stock
			HAVING COALESCE(i.stock, 0) <> COALESCE(SUM(m.qty_change), 0)
			ORDER BY i.id`,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return &movementRepository{db: db, dialect: dialect, stmts: stmts}, nil
}

func (r *movementRepository) WithTx(tx *sql.Tx) MovementRepository {
	return &movementRepository{db: r.db, dialect: r.dialect, stmts: r.stmts, tx: tx}
}

// Create agrega un movimiento nuevo
func (r *movementRepository) Create(ctx context.Context, movement *models.Movement) error {
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}

	err := r.stmts.get(ctx, r.tx, "create").QueryRowContext(ctx,
		movement.CreatedAt, nullableInt64(movement.ItemID), movement.PartNumber, movement.Delta,
		string(movement.Reason), nullableInt64(movement.SaleID), movement.Username, nullableString(movement.Note),
	).Scan(&movement.ID)
	if err != nil {
		return fmt.Errorf("failed to create movement: %w", err)
	}
	return nil
}

// List más recientes primero
func (r *movementRepository) List(ctx context.Context, filter models.MovementFilter) ([]*models.Movement, error) {
	query := `SELECT id, created_at, item_id, part_number, qty_change, reason, sale_id, username, note FROM movements`
	var where []string
	var args []any

	if filter.From != nil {
		where = append(where, `created_at >= ?`)
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		where = append(where, `created_at < ?`)
		args = append(args, filter.To.UTC())
	}
	if filter.PartNumber != nil && strings.TrimSpace(*filter.PartNumber) != "" {
		where = append(where, `lower(part_number) = lower(CAST(? AS TEXT))`)
		args = append(args, strings.TrimSpace(*filter.PartNumber))
	}
	if filter.ItemID != nil {
		where = append(where, `item_id = ?`)
		args = append(args, *filter.ItemID)
	}
	if filter.Reason != nil {
		where = append(where, `reason = ?`)
		args = append(args, string(*filter.Reason))
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	query, args = withPaging(query, args, filter.Limit, filter.Offset)

	rows, err := pick(r.db, r.tx).QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	movements := []*models.Movement{}
	for rows.Next() {
		var m models.Movement
		var itemID, saleID sql.NullInt64
		var reason string
		var note sql.NullString
		if err := rows.Scan(&m.ID, &m.CreatedAt, &itemID, &m.PartNumber, &m.Delta, &reason, &saleID, &m.Username, &note); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		m.ItemID = int64Ptr(itemID)
		m.SaleID = int64Ptr(saleID)
		m.Reason = models.MovementReason(reason)
		m.Note = note.String
		movements = append(movements, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate movements: %w", err)
	}
	return movements, nil
}

func (r *movementRepository) SumByItem(ctx context.Context, itemID int64) (int, error) {
	var sum int
	if err := r.stmts.get(ctx, r.tx, "sum_by_item").QueryRowContext(ctx, itemID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum movements: %w", err)
	}
	return sum, nil
}

// Unreconciled items cuyo stock difiere de la suma de sus movimientos
func (r *movementRepository) Unreconciled(ctx context.Context) ([]models.ReconcileRow, error) {
	rows, err := r.stmts.get(ctx, r.tx, "unreconciled").QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile movements: %w", err)
	}
	defer rows.Close()

	result := []models.ReconcileRow{}
	for rows.Next() {
		var row models.ReconcileRow
		if err := rows.Scan(&row.ItemID, &row.PartNumber, &row.Stock, &row.MovementSum); err != nil {
			return nil, fmt.Errorf("failed to scan reconcile row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
