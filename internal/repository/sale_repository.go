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

// SaleRepository persiste ventas y sus líneas; las filas no se editan después del commit
type SaleRepository interface {
	Create(ctx context.Context, sale *models.Sale) error
	AttachDocument(ctx context.Context, saleID int64, path string) error
	GetByID(ctx context.Context, id int64) (*models.Sale, error)
	List(ctx context.Context, filter models.SaleFilter) ([]*models.Sale, error)
	TopSelling(ctx context.Context, from, to *time.Time, limit int) ([]models.TopSellingRow, error)

	WithTx(tx *sql.Tx) SaleRepository
}

type saleRepository struct {
	db      *sql.DB
	dialect database.Dialect
	stmts   statements
	tx      *sql.Tx
}

const saleColumns = `id, created_at, username, customer_name, customer_phone, customer_notes, total_cents, document_path`

func NewSaleRepository(db *sql.DB, dialect database.Dialect) (SaleRepository, error) {
	stmts, err := prepareStatements(db, dialect, map[string]string{
		"create_sale": `
			INSERT INTO sales (created_at, username, customer_name, customer_phone, customer_notes, total_cents)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`,
		"create_line": `
			INSERT INTO sale_lines (sale_id, part_number, description, qty, price_cents, subtotal_cents)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`,
		"attach_document": `
			UPDATE sales SET document_path = ? WHERE id = ?`,
		"get_sale": `
			SELECT ` + saleColumns + ` FROM sales WHERE id = ?`,
		"get_lines": `
			SELECT id, sale_id, part_number, description, qty, price_cents, subtotal_cents
			FROM sale_lines WHERE sale_id = ? ORDER BY id`,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return &saleRepository{db: db, dialect: dialect, stmts: stmts}, nil
}

func (r *saleRepository) WithTx(tx *sql.Tx) SaleRepository {
	return &saleRepository{db: r.db, dialect: r.dialect, stmts: r.stmts, tx: tx}
}

// Create inserta la venta con todas sus líneas; el total se recalcula desde las líneas
func (r *saleRepository) Create(ctx context.Context, sale *models.Sale) error {
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	total, err := sale.LinesTotal()
	if err != nil {
		return err
	}
	sale.Total = total

	err = r.stmts.get(ctx, r.tx, "create_sale").QueryRowContext(ctx,
		sale.CreatedAt, sale.Username, sale.Customer.Name, sale.Customer.Phone,
		sale.Customer.Notes, sale.Total.Cents(),
	).Scan(&sale.ID)
	if err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}

	lineStmt := r.stmts.get(ctx, r.tx, "create_line")
	for i := range sale.Lines {
		line := &sale.Lines[i]
		line.SaleID = sale.ID
		err := lineStmt.QueryRowContext(ctx,
			line.SaleID, line.PartNumber, line.Description, line.Qty,
			line.UnitPrice.Cents(), line.Subtotal.Cents(),
		).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("failed to create sale line %s: %w", line.PartNumber, err)
		}
	}

	return nil
}

// AttachDocument guarda la ruta del PDF generado
func (r *saleRepository) AttachDocument(ctx context.Context, saleID int64, path string) error {
	result, err := r.stmts.get(ctx, r.tx, "attach_document").ExecContext(ctx, path, saleID)
	if err != nil {
		return fmt.Errorf("failed to attach document: %w", err)
	}
	return expectOneRow(result, "sale", saleID)
}

func scanSale(row rowScanner) (*models.Sale, error) {
	var sale models.Sale
	var total int64
	var document sql.NullString
	err := row.Scan(
		&sale.ID, &sale.CreatedAt, &sale.Username, &sale.Customer.Name, &sale.Customer.Phone,
		&sale.Customer.Notes, &total, &document,
	)
	if err != nil {
		return nil, err
	}
	sale.Total = models.Money(total)
	sale.DocumentPath = document.String
	return &sale, nil
}

// GetByID retorna la venta con sus líneas; nil, nil si no existe
func (r *saleRepository) GetByID(ctx context.Context, id int64) (*models.Sale, error) {
	sale, err := scanSale(r.stmts.get(ctx, r.tx, "get_sale").QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}

	rows, err := r.stmts.get(ctx, r.tx, "get_lines").QueryContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale lines: %w", err)
	}
	defer rows.Close()

	sale.Lines = []models.SaleLine{}
	for rows.Next() {
		var line models.SaleLine
		var price, subtotal int64
		if err := rows.Scan(&line.ID, &line.SaleID, &line.PartNumber, &line.Description, &line.Qty, &price, &subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan sale line: %w", err)
		}
		line.UnitPrice = models.Money(price)
		line.Subtotal = models.Money(subtotal)
		sale.Lines = append(sale.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sale lines: %w", err)
	}

	return sale, nil
}

// List historial más reciente primero, sin líneas
func (r *saleRepository) List(ctx context.Context, filter models.SaleFilter) ([]*models.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales`
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
		where = append(where, `EXISTS (SELECT 1 FROM sale_lines sl WHERE sl.sale_id = sales.id AND lower(sl.part_number) = lower(CAST(? AS TEXT)))`)
		args = append(args, strings.TrimSpace(*filter.PartNumber))
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	query, args = withPaging(query, args, filter.Limit, filter.Offset)

	rows, err := pick(r.db, r.tx).QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := []*models.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sales: %w", err)
	}
	return sales, nil
}

// TopSelling agrupa líneas vendidas por part number; la descripción viene del item vivo si aún existe
func (r *saleRepository) TopSelling(ctx context.Context, from, to *time.Time, limit int) ([]models.TopSellingRow, error) {
	query := `
		SELECT sl.part_number,
		       COALESCE(MAX(i.description), MAX(sl.description)) AS description,
		       COALESCE(SUM(sl.qty), 0) AS qty,
		       COALESCE(SUM(sl.subtotal_cents), 0) AS sales
		FROM sale_lines sl
		JOIN sales s ON s.id = sl.sale_id
		LEFT JOIN items i ON lower(i.part_number) = lower(sl.part_number)`
	var where []string
	var args []any

	if from != nil {
		where = append(where, `s.created_at >= ?`)
		args = append(args, from.UTC())
	}
	if to != nil {
		where = append(where, `s.created_at < ?`)
		args = append(args, to.UTC())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " GROUP BY sl.part_number ORDER BY qty DESC, sales DESC, sl.part_number"
	query, args = withPaging(query, args, limit, 0)

	rows, err := pick(r.db, r.tx).QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get top selling: %w", err)
	}
	defer rows.Close()

	result := []models.TopSellingRow{}
	for rows.Next() {
		var row models.TopSellingRow
		var sales int64
		if err := rows.Scan(&row.PartNumber, &row.Description, &row.Qty, &sales); err != nil {
			return nil, fmt.Errorf("failed to scan top selling row: %w", err)
		}
		row.Sales = models.Money(sales)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top selling: %w", err)
	}
	return result, nil
}
