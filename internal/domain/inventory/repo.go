package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) CreateProduct(ctx context.Context, p NewProduct) (*Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (barcode, name, expiry_date, quantity, added_date, owner_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, barcode, name, expiry_date, quantity, added_date, owner_id
	`, p.Barcode, p.Name, DateOf(p.ExpiryDate), p.Quantity, DateOf(p.AddedDate), p.OwnerID)

	out, err := scanProduct(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateBarcode
		}
		return nil, storeErr("create product", err)
	}
	return out, nil
}

func (r *Repo) FindProductByBarcode(ctx context.Context, barcode string) (*Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, barcode, name, expiry_date, quantity, added_date, owner_id
		FROM products WHERE barcode = $1
	`, barcode)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeErr("find product", err)
	}
	return p, nil
}

// RecordDamage пишет отчёт о порче. Если товар зарегистрирован, строка товара
// блокируется до конца транзакции и его остаток уменьшается (не ниже нуля).
func (r *Repo) RecordDamage(ctx context.Context, d NewDamage) (*DamageReport, error) {
	if err := validateDamage(d); err != nil {
		return nil, err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, storeErr("record damage", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		name  string
		stock int
	)
	registered := true
	err = tx.QueryRow(ctx, `
		SELECT name, quantity FROM products WHERE barcode = $1 FOR UPDATE
	`, d.Barcode).Scan(&name, &stock)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		registered = false
		name = d.Name
	case err != nil:
		return nil, storeErr("record damage", err)
	}

	rep := DamageReport{
		Barcode:    d.Barcode,
		Name:       name,
		Quantity:   d.Quantity,
		Reason:     d.Reason,
		ReportDate: DateOf(d.ReportDate),
		OwnerID:    d.OwnerID,
	}
	if err = tx.QueryRow(ctx, `
		INSERT INTO damage_reports (barcode, name, quantity, reason, report_date, owner_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, rep.Barcode, rep.Name, rep.Quantity, rep.Reason, rep.ReportDate, rep.OwnerID).Scan(&rep.ID); err != nil {
		return nil, storeErr("record damage", err)
	}

	if registered {
		if _, err = tx.Exec(ctx, `
			UPDATE products SET quantity = $2 WHERE barcode = $1
		`, d.Barcode, remaining(stock, d.Quantity)); err != nil {
			return nil, storeErr("record damage", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, storeErr("record damage", err)
	}
	return &rep, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	out, err := listProducts(ctx, r.pool)
	return out, storeErr("list products", err)
}

func (r *Repo) ListDamageReports(ctx context.Context) ([]DamageReport, error) {
	out, err := listDamageReports(ctx, r.pool)
	return out, storeErr("list damage reports", err)
}

// ExportSnapshot читает обе таблицы в одной read-only транзакции,
// чтобы не увидеть отчёт без соответствующего списания.
func (r *Repo) ExportSnapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, storeErr("export snapshot", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var s Snapshot
	if s.Products, err = listProducts(ctx, tx); err != nil {
		return nil, storeErr("export snapshot", err)
	}
	if s.DamageReports, err = listDamageReports(ctx, tx); err != nil {
		return nil, storeErr("export snapshot", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, storeErr("export snapshot", err)
	}
	return &s, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listProducts(ctx context.Context, q querier) ([]Product, error) {
	rows, err := q.Query(ctx, `
		SELECT id, barcode, name, expiry_date, quantity, added_date, owner_id
		FROM products
		ORDER BY expiry_date, barcode
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func listDamageReports(ctx context.Context, q querier) ([]DamageReport, error) {
	rows, err := q.Query(ctx, `
		SELECT id, barcode, name, quantity, reason, report_date, owner_id
		FROM damage_reports
		ORDER BY report_date DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DamageReport
	for rows.Next() {
		var d DamageReport
		if err := rows.Scan(
			&d.ID,
			&d.Barcode,
			&d.Name,
			&d.Quantity,
			&d.Reason,
			&d.ReportDate,
			&d.OwnerID,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(
		&p.ID,
		&p.Barcode,
		&p.Name,
		&p.ExpiryDate,
		&p.Quantity,
		&p.AddedDate,
		&p.OwnerID,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
