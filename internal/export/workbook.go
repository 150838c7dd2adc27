// Package export writes invoices to spreadsheet workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/garyjia/invoice-manager/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	InvoicesSheet  = "Invoices"
	LineItemsSheet = "Line Items"
)

// two-decimal built-in number format
const amountFormat = 2

var invoiceHeader = []interface{}{
	"Invoice Number", "Date", "Employee Name", "Employee ID", "Email",
	"Address", "Mobile", "Tax Rate (%)", "Subtotal", "Tax", "Grand Total",
}

var lineItemHeader = []interface{}{
	"Invoice Number", "Line", "Description", "Hours", "Rate", "Amount",
}

type styleRange struct {
	sheet    string
	from, to string
	style    int
}

// Exporter builds invoice workbooks
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates an exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Write streams a workbook with one row per invoice and one row per line item
func (e *Exporter) Write(w io.Writer, invoices []entity.Invoice) error {
	f, err := e.build(invoices)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveAs writes the workbook to path
func (e *Exporter) SaveAs(path string, invoices []entity.Invoice) error {
	f, err := e.build(invoices)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		e.logger.Error("Failed to save workbook", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Workbook saved",
		zap.String("path", path),
		zap.Int("invoices", len(invoices)))
	return nil
}

func (e *Exporter) build(invoices []entity.Invoice) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", InvoicesSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(LineItemsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := e.fill(f, invoices); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (e *Exporter) fill(f *excelize.File, invoices []entity.Invoice) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: amountFormat})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeRow(f, InvoicesSheet, 1, invoiceHeader); err != nil {
		return err
	}
	if err := writeRow(f, LineItemsSheet, 1, lineItemHeader); err != nil {
		return err
	}

	itemRow := 2
	for i, inv := range invoices {
		totals := inv.Totals()
		row := i + 2
		values := []interface{}{
			inv.InvoiceNumber, inv.Date, inv.EmployeeName, inv.EmployeeID, inv.EmployeeEmail,
			inv.EmployeeAddress, inv.EmployeeMobile, inv.TaxRate,
			totals.SubTotal, totals.TaxAmount, totals.GrandTotal,
		}
		if err := writeRow(f, InvoicesSheet, row, values); err != nil {
			return err
		}

		for n, item := range inv.Services {
			values := []interface{}{
				inv.InvoiceNumber, n + 1, item.Description, item.Hours, item.Rate, item.Amount(),
			}
			if err := writeRow(f, LineItemsSheet, itemRow, values); err != nil {
				return err
			}
			itemRow++
		}
	}

	styles := []styleRange{
		{InvoicesSheet, "A1", "K1", bold},
		{LineItemsSheet, "A1", "F1", bold},
	}
	if len(invoices) > 0 {
		styles = append(styles, styleRange{InvoicesSheet, "I2", fmt.Sprintf("K%d", len(invoices)+1), amount})
	}
	if itemRow > 2 {
		styles = append(styles, styleRange{LineItemsSheet, "D2", fmt.Sprintf("F%d", itemRow-1), amount})
	}
	for _, s := range styles {
		if err := f.SetCellStyle(s.sheet, s.from, s.to, s.style); err != nil {
			return fmt.Errorf("failed to style %s: %w", s.sheet, err)
		}
	}

	if err := f.SetColWidth(InvoicesSheet, "A", "G", 20); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetColWidth(LineItemsSheet, "C", "C", 48); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
