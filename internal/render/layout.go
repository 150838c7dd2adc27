package render

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/garyjia/invoice-manager/internal/domain/entity"
)

// Page geometry in millimetres (A4 portrait)
const (
	PageWidth  = 210.0
	PageHeight = 297.0
	Margin     = 14.0

	firstTableY        = 90.0
	continuationTableY = 20.0
	headerRowHeight    = 9.0
	rowHeight          = 8.0
	totalsHeight       = 30.0
	footerHeight       = 12.0

	tableBottom = PageHeight - Margin - footerHeight
)

// Description column geometry in millimetres. Text starts cellPadding inside
// each edge of the cell.
const (
	descriptionColumnWidth = 92.0
	cellPadding            = 1.0

	// DescriptionWidth is the printable width of a description
	DescriptionWidth = descriptionColumnWidth - 2*cellPadding
)

// TextWidth returns the printed width of s in millimetres
type TextWidth func(s string) float64

const ellipsis = "..."

// Columns of the services table
var Columns = []string{"Description", "Hours", "Rate", "Total"}

// Row is one formatted services table row
type Row struct {
	Description string
	Hours       string
	Rate        string
	Amount      string
}

// TotalsBlock is the formatted totals block
type TotalsBlock struct {
	SubTotal   string
	TaxLabel   string
	TaxAmount  string
	GrandTotal string
}

// Page is one page of the document. Every page carries the column header row.
type Page struct {
	Number     int
	TableY     float64
	Rows       []Row
	ShowTotals bool
}

// Document is the laid-out form of an invoice, independent of any drawing backend
type Document struct {
	Title         string
	InvoiceNumber string
	Date          string
	BillTo        []string
	Pages         []Page
	Totals        TotalsBlock
	Footer        string
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Layout builds the paginated document of a finalized invoice. Rows that do
// not fit start a new page; the totals block moves to its own page when the
// last rows leave no room for it. width measures description text as the
// backend prints it.
func Layout(inv entity.Invoice, width TextWidth) (*Document, error) {
	if err := checkFinalized(inv); err != nil {
		return nil, err
	}

	totals := inv.Totals()
	doc := &Document{
		Title:         "INVOICE",
		InvoiceNumber: inv.InvoiceNumber,
		Date:          inv.Date,
		BillTo: []string{
			inv.EmployeeName,
			"Employee ID: " + inv.EmployeeID,
			inv.EmployeeAddress,
			inv.EmployeeEmail,
			inv.EmployeeMobile,
		},
		Totals: TotalsBlock{
			SubTotal:   entity.FormatAmount(totals.SubTotal),
			TaxLabel:   fmt.Sprintf("Tax (%s%%):", entity.FormatRate(inv.TaxRate)),
			TaxAmount:  entity.FormatAmount(totals.TaxAmount),
			GrandTotal: entity.FormatAmount(totals.GrandTotal),
		},
		Footer: "Thank you for your business!",
	}

	rows := make([]Row, len(inv.Services))
	for i, item := range inv.Services {
		rows[i] = Row{
			Description: Truncate(item.Description, DescriptionWidth, width),
			Hours:       entity.FormatAmount(item.Hours),
			Rate:        entity.FormatAmount(item.Rate),
			Amount:      entity.FormatAmount(item.Amount()),
		}
	}

	page := Page{Number: 1, TableY: firstTableY}
	for _, row := range rows {
		if len(page.Rows) == rowCapacity(page.TableY) {
			doc.Pages = append(doc.Pages, page)
			page = Page{Number: page.Number + 1, TableY: continuationTableY}
		}
		page.Rows = append(page.Rows, row)
	}

	if tableEnd(page)+totalsHeight > tableBottom {
		doc.Pages = append(doc.Pages, page)
		page = Page{Number: page.Number + 1, TableY: continuationTableY}
	}
	page.ShowTotals = true
	doc.Pages = append(doc.Pages, page)

	return doc, nil
}

// Truncate shortens s until its printed width fits maxWidth, marking the cut
// with an ellipsis
func Truncate(s string, maxWidth float64, width TextWidth) string {
	s = strings.TrimSpace(s)
	if width(s) <= maxWidth {
		return s
	}

	runes := []rune(s)
	cut := func(n int) string {
		return strings.TrimRight(string(runes[:n]), " ") + ellipsis
	}
	// widths grow with the prefix, so find the first prefix that overflows
	n := sort.Search(len(runes), func(n int) bool {
		return width(cut(n)) > maxWidth
	})
	if n == 0 {
		return ""
	}
	return cut(n - 1)
}

// tableEnd returns the y position below the last row of the page
func tableEnd(p Page) float64 {
	return p.TableY + headerRowHeight + float64(len(p.Rows))*rowHeight
}

func rowCapacity(tableY float64) int {
	return int((tableBottom - tableY - headerRowHeight) / rowHeight)
}

func checkFinalized(inv entity.Invoice) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	for i, item := range inv.Services {
		if !finite(item.Hours) || !finite(item.Rate) {
			return fmt.Errorf("services[%d]: hours and rate must be finite", i)
		}
	}
	if !finite(inv.TaxRate) {
		return errors.New("taxRate must be finite")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
