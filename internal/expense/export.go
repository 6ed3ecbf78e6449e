package expense

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Expenses"

// ExportXLSX returns an XLSX workbook (as bytes) of expenses in the given
// date window, keyed on each record's receipt date.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all expenses.
func (s *Service) ExportXLSX(from, to *time.Time) ([]byte, error) {
	wallStart := time.Now()

	expenses, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}

	var fromDate, toDate *time.Time
	if from != nil {
		f := dateOnly(*from)
		fromDate = &f
	}
	if to != nil {
		t := dateOnly(*to)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		t := dateOnly(s.timeSource.Now())
		toDate = &t
	}

	rows := make([]*Expense, 0, len(expenses))
	for _, exp := range expenses {
		d, err := time.Parse("2006-01-02", exp.Record.Date)
		if err != nil {
			continue
		}
		if fromDate != nil && d.Before(*fromDate) {
			continue
		}
		if toDate != nil && d.After(*toDate) {
			continue
		}
		rows = append(rows, exp)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Record.Date < rows[j].Record.Date
	})

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	headers := []string{
		"Date",
		"Vendor",
		"Status",
		"Currency",
		"Total",
		"Tax",
		"Items",
		"Receipt File",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	for i, exp := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}

		write(1, exp.Record.Date)
		write(2, exp.Record.Vendor)
		write(3, string(exp.Status))
		write(4, exp.Record.Currency)
		write(5, exp.Record.Total)
		write(6, exp.Record.TaxAmount)
		write(7, itemSummary(exp))
		write(8, exp.Filename)
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 12)
	_ = f.SetColWidth(exportSheet, "B", "B", 24)
	_ = f.SetColWidth(exportSheet, "C", "D", 10)
	_ = f.SetColWidth(exportSheet, "E", "F", 12)
	_ = f.SetColWidth(exportSheet, "G", "G", 48)
	_ = f.SetColWidth(exportSheet, "H", "H", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	slog.Info("Exported expenses",
		"rows", len(rows),
		"elapsed_ms", time.Since(wallStart).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func itemSummary(exp *Expense) string {
	parts := make([]string, 0, len(exp.Record.Items))
	for _, it := range exp.Record.Items {
		parts = append(parts, fmt.Sprintf("%dx %s (%.2f)", it.Quantity, it.Description, it.TotalPrice))
	}
	return strings.Join(parts, "; ")
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
