// Package export строит Excel-выгрузку склада и читает её обратно.
package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/Spok95/inventory-bot/internal/domain/inventory"
	"github.com/xuri/excelize/v2"
)

const (
	SheetProducts = "Products"
	SheetDamaged  = "DamageReports"
)

var (
	productsHeader = []any{"id", "barcode", "name", "expiry_date", "quantity", "added_date", "owner_id"}
	damagedHeader  = []any{"id", "barcode", "name", "quantity", "reason", "report_date", "owner_id"}
)

// FileName имя файла выгрузки для момента now.
func FileName(now time.Time) string {
	return fmt.Sprintf("inventory_export_%s.xlsx", now.Format("20060102_1504"))
}

// Write формирует книгу с двумя листами: товары и отчёты о порче.
// Даты пишутся текстом YYYY-MM-DD, штрихкоды текстом (ведущие нули сохраняются).
func Write(s *inventory.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetProducts); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetDamaged); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}

	rows := make([][]any, 0, len(s.Products)+1)
	rows = append(rows, productsHeader)
	for _, p := range s.Products {
		rows = append(rows, []any{
			p.ID,
			p.Barcode,
			p.Name,
			p.ExpiryDate.Format(inventory.DateLayout),
			p.Quantity,
			p.AddedDate.Format(inventory.DateLayout),
			p.OwnerID,
		})
	}
	if err := writeRows(f, SheetProducts, rows); err != nil {
		return nil, err
	}

	rows = make([][]any, 0, len(s.DamageReports)+1)
	rows = append(rows, damagedHeader)
	for _, d := range s.DamageReports {
		rows = append(rows, []any{
			d.ID,
			d.Barcode,
			d.Name,
			d.Quantity,
			d.Reason,
			d.ReportDate.Format(inventory.DateLayout),
			d.OwnerID,
		})
	}
	if err := writeRows(f, SheetDamaged, rows); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("%s: cell: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, ref, &row); err != nil {
			return fmt.Errorf("%s: row %s: %w", sheet, ref, err)
		}
	}
	return nil
}

// Read разбирает книгу, созданную Write.
func Read(data []byte) (*inventory.Snapshot, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var s inventory.Snapshot

	rows, err := f.GetRows(SheetProducts, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", SheetProducts, err)
	}
	for i, row := range dataRows(rows) {
		p, err := parseProduct(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetProducts, i+2, err)
		}
		s.Products = append(s.Products, p)
	}

	rows, err = f.GetRows(SheetDamaged, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", SheetDamaged, err)
	}
	for i, row := range dataRows(rows) {
		d, err := parseDamage(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SheetDamaged, i+2, err)
		}
		s.DamageReports = append(s.DamageReports, d)
	}
	return &s, nil
}

func dataRows(rows [][]string) [][]string {
	if len(rows) < 2 {
		return nil
	}
	return rows[1:]
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func parseProduct(row []string) (inventory.Product, error) {
	var (
		p   inventory.Product
		err error
	)
	if p.ID, err = strconv.ParseInt(cell(row, 0), 10, 64); err != nil {
		return p, fmt.Errorf("id: %w", err)
	}
	p.Barcode = cell(row, 1)
	p.Name = cell(row, 2)
	if p.ExpiryDate, err = inventory.ParseDate(cell(row, 3)); err != nil {
		return p, fmt.Errorf("expiry_date: %w", err)
	}
	if p.Quantity, err = strconv.Atoi(cell(row, 4)); err != nil {
		return p, fmt.Errorf("quantity: %w", err)
	}
	if p.AddedDate, err = inventory.ParseDate(cell(row, 5)); err != nil {
		return p, fmt.Errorf("added_date: %w", err)
	}
	if p.OwnerID, err = strconv.ParseInt(cell(row, 6), 10, 64); err != nil {
		return p, fmt.Errorf("owner_id: %w", err)
	}
	return p, nil
}

func parseDamage(row []string) (inventory.DamageReport, error) {
	var (
		d   inventory.DamageReport
		err error
	)
	if d.ID, err = strconv.ParseInt(cell(row, 0), 10, 64); err != nil {
		return d, fmt.Errorf("id: %w", err)
	}
	d.Barcode = cell(row, 1)
	d.Name = cell(row, 2)
	if d.Quantity, err = strconv.Atoi(cell(row, 3)); err != nil {
		return d, fmt.Errorf("quantity: %w", err)
	}
	d.Reason = cell(row, 4)
	if d.ReportDate, err = inventory.ParseDate(cell(row, 5)); err != nil {
		return d, fmt.Errorf("report_date: %w", err)
	}
	if d.OwnerID, err = strconv.ParseInt(cell(row, 6), 10, 64); err != nil {
		return d, fmt.Errorf("owner_id: %w", err)
	}
	return d, nil
}
