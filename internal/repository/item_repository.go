package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory-service/internal/database"
	"inventory-service/internal/models"
)

// ItemRepository define la interfaz para el catálogo de items y su stock
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id int64) (*models.Item, error)
	GetByPartNumber(ctx context.Context, partNumber string) (*models.Item, error)
	List(ctx context.Context, filter models.ItemFilter) ([]*models.Item, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id int64) error

	// Operaciones de stock
	SetStock(ctx context.Context, id int64, stock int) error
	DecrementIfAvailable(ctx context.Context, id int64, qty int) (bool, error)
	ListLowStock(ctx context.Context, policy models.LowStockPolicy, limit int) ([]*models.Item, error)

	// WithTx devuelve el mismo repositorio operando dentro de tx
	WithTx(tx *sql.Tx) ItemRepository
}

type itemRepository struct {
	db      *sql.DB
	dialect database.Dialect
	stmts   statements
	tx      *sql.Tx
}

const itemColumns = `id, part_number, description, price_cents, image_path,
	COALESCE(stock, 0), COALESCE(min_stock, 0), category, created_at, updated_at`

// NewItemRepository crea una nueva instancia del repository
func NewItemRepository(db *sql.DB, dialect database.Dialect) (ItemRepository, error) {
	stmts, err := prepareStatements(db, dialect, map[string]string{
		"create": `
			INSERT INTO items (part_number, description, price_cents, image_path, stock, min_stock, category, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
		"get_by_id": `
			SELECT ` + itemColumns + `
			FROM items WHERE id = ?`,
		"get_by_part": `
			SELECT ` + itemColumns + `
			FROM items WHERE lower(part_number) = lower(CAST(? AS TEXT))`,
		"update": `
			UPDATE items
			SET part_number = ?, description = ?, price_cents = ?, image_path = ?, min_stock = ?, category = ?, updated_at = ?
			WHERE id = ?`,
		"delete": `DELETE FROM items WHERE id = ?`,
		"set_stock": `
			UPDATE items SET stock = ?, updated_at = ? WHERE id = ?`,
		"decrement": `
			UPDATE items
			SET stock = COALESCE(stock, 0) - ?, updated_at = ?
			WHERE id = ? AND COALESCE(stock, 0) >= ?`,
		"categories": `
			SELECT DISTINCT COALESCE(NULLIF(TRIM(category), ''), '` + models.UncategorizedLabel + `') AS cat
			FROM items ORDER BY cat`,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return &itemRepository{db: db, dialect: dialect, stmts: stmts}, nil
}

func (r *itemRepository) WithTx(tx *sql.Tx) ItemRepository {
	return &itemRepository{db: r.db, dialect: r.dialect, stmts: r.stmts, tx: tx}
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var price sql.NullInt64
	err := row.Scan(
		&item.ID, &item.PartNumber, &item.Description, &price, &item.ImagePath,
		&item.Stock, &item.MinStock, &item.Category, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if price.Valid {
		p := models.Money(price.Int64)
		item.Price = &p
	}
	return &item, nil
}

func priceArg(p *models.Money) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: p.Cents(), Valid: true}
}

// Create inserta el item; un part number repetido (sin distinguir mayúsculas) da ErrDuplicatePartNumber
func (r *itemRepository) Create(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	err := r.stmts.get(ctx, r.tx, "create").QueryRowContext(ctx,
		item.PartNumber, item.Description, priceArg(item.Price), item.ImagePath,
		item.Stock, item.MinStock, item.Category, now, now,
	).Scan(&item.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", models.ErrDuplicatePartNumber, item.PartNumber)
		}
		return fmt.Errorf("failed to create item: %w", err)
	}

	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

// GetByID retorna nil, nil si no existe
func (r *itemRepository) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	item, err := scanItem(r.stmts.get(ctx, r.tx, "get_by_id").QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// GetByPartNumber busca sin distinguir mayúsculas; nil, nil si no existe
func (r *itemRepository) GetByPartNumber(ctx context.Context, partNumber string) (*models.Item, error) {
	item, err := scanItem(r.stmts.get(ctx, r.tx, "get_by_part").QueryRowContext(ctx, partNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item by part number: %w", err)
	}
	return item, nil
}

// List filtra por texto (part number o descripción) y categoría
func (r *itemRepository) List(ctx context.Context, filter models.ItemFilter) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	var where []string
	var args []any

	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		where = append(where, `(lower(part_number) LIKE CAST(? AS TEXT) OR lower(description) LIKE CAST(? AS TEXT))`)
		args = append(args, "%"+q+"%", "%"+q+"%")
	}

	switch cat := strings.TrimSpace(filter.Category); {
	case cat == "" || strings.EqualFold(cat, "all"):
	case strings.EqualFold(cat, models.UncategorizedLabel):
		where = append(where, `TRIM(category) = ''`)
	default:
		where = append(where, `lower(category) = lower(CAST(? AS TEXT))`)
		args = append(args, cat)
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY lower(part_number)"
	query, args = withPaging(query, args, filter.Limit, filter.Offset)

	rows, err := pick(r.db, r.tx).QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

func (r *itemRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.stmts.get(ctx, r.tx, "categories").QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Update reemplaza los metadatos; el stock no se toca aquí
func (r *itemRepository) Update(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	result, err := r.stmts.get(ctx, r.tx, "update").ExecContext(ctx,
		item.PartNumber, item.Description, priceArg(item.Price), item.ImagePath,
		item.MinStock, item.Category, now, item.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", models.ErrDuplicatePartNumber, item.PartNumber)
		}
		return fmt.Errorf("failed to update item: %w", err)
	}

	if err := expectOneRow(result, "item", item.ID); err != nil {
		return err
	}
	item.UpdatedAt = now
	return nil
}

func (r *itemRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.stmts.get(ctx, r.tx, "delete").ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return expectOneRow(result, "item", id)
}

func (r *itemRepository) SetStock(ctx context.Context, id int64, stock int) error {
	result, err := r.stmts.get(ctx, r.tx, "set_stock").ExecContext(ctx, stock, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}
	return expectOneRow(result, "item", id)
}

// DecrementIfAvailable descuenta qty solo si el stock actual alcanza; false si no se aplicó
func (r *itemRepository) DecrementIfAvailable(ctx context.Context, id int64, qty int) (bool, error) {
	result, err := r.stmts.get(ctx, r.tx, "decrement").ExecContext(ctx, qty, time.Now().UTC(), id, qty)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *itemRepository) ListLowStock(ctx context.Context, policy models.LowStockPolicy, limit int) ([]*models.Item, error) {
	var condition string
	switch policy {
	case models.LowStockThresholdOnly:
		condition = `min_stock IS NOT NULL AND min_stock > 0 AND COALESCE(stock, 0) <= min_stock`
	default:
		condition = `(stock IS NOT NULL AND min_stock IS NOT NULL AND stock <= min_stock) OR stock IS NULL OR stock = 0`
	}

	query := `SELECT ` + itemColumns + ` FROM items WHERE ` + condition +
		` ORDER BY COALESCE(stock, 0) ASC, lower(part_number)`
	query, args := withPaging(query, nil, limit, 0)

	rows, err := pick(r.db, r.tx).QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

func collectItems(rows *sql.Rows) ([]*models.Item, error) {
	items := []*models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

func expectOneRow(result sql.Result, resource string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.NotFoundError(resource, id)
	}
	return nil
}

func withPaging(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	}
	return query, args
}
