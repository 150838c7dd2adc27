package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

var columnWidths = []float64{descriptionColumnWidth, 25, 30, 35}

const bodyFontSize = 10.0

var columnAlign = []string{"L", "R", "R", "R"}

// header fill, teal
var headerFill = [3]int{22, 160, 133}

// pdfWriter draws a laid-out Document with gofpdf
type pdfWriter struct {
	stamp    time.Time
	compress bool
}

func (w pdfWriter) write(doc *Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(Margin, Margin, Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(w.compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(w.stamp)
	pdf.SetModificationDate(w.stamp)
	pdf.SetTitle("Invoice "+doc.InvoiceNumber, true)
	pdf.SetCreator("invoice-manager", false)
	pdf.SetCellMargin(cellPadding)

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range doc.Pages {
		pdf.AddPage()
		if page.Number == 1 {
			drawHeading(pdf, tr, doc)
		}
		drawTable(pdf, tr, page)
		if page.ShowTotals {
			drawTotals(pdf, tr, doc.Totals, tableEnd(page))
		}
		drawFooter(pdf, tr, doc.Footer, page.Number, doc.PageCount())
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// bodyTextWidth measures table body text in the font and encoding drawTable prints it with
func bodyTextWidth() TextWidth {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", bodyFontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	return func(s string) float64 {
		return pdf.GetStringWidth(tr(s))
	}
}

func drawHeading(pdf *gofpdf.Fpdf, tr func(string) string, doc *Document) {
	pdf.SetFont("Helvetica", "B", 22)
	pdf.Text(Margin, 22, doc.Title)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(Margin, 32, tr("Invoice #: "+doc.InvoiceNumber))
	pdf.Text(Margin, 38, tr("Date: "+doc.Date))

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(Margin, 50, "Bill To:")

	pdf.SetFont("Helvetica", "", 12)
	y := 58.0
	for _, line := range doc.BillTo {
		pdf.Text(Margin, y, tr(line))
		y += 6
	}
}

func drawTable(pdf *gofpdf.Fpdf, tr func(string) string, page Page) {
	pdf.SetXY(Margin, page.TableY)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
	pdf.SetTextColor(255, 255, 255)
	for i, col := range Columns {
		pdf.CellFormat(columnWidths[i], headerRowHeight, col, "", 0, columnAlign[i], true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", bodyFontSize)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(245, 245, 245)
	for i, row := range page.Rows {
		pdf.SetX(Margin)
		striped := i%2 == 1
		cells := []string{row.Description, row.Hours, row.Rate, row.Amount}
		for c, text := range cells {
			pdf.CellFormat(columnWidths[c], rowHeight, tr(text), "", 0, columnAlign[c], striped, 0, "")
		}
		pdf.Ln(-1)
	}
}

func drawTotals(pdf *gofpdf.Fpdf, tr func(string) string, totals TotalsBlock, y float64) {
	const labelX, labelW, valueW = 110.0, 52.0, 34.0

	line := func(label, value string) {
		y += 7
		pdf.SetXY(labelX, y)
		pdf.CellFormat(labelW, 7, tr(label), "", 0, "R", false, 0, "")
		pdf.CellFormat(valueW, 7, tr(value), "", 0, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 12)
	line("Subtotal:", totals.SubTotal)
	line(totals.TaxLabel, totals.TaxAmount)

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(labelX, y+8, PageWidth-Margin, y+8)

	pdf.SetFont("Helvetica", "B", 13)
	line("Grand Total:", totals.GrandTotal)
}

func drawFooter(pdf *gofpdf.Fpdf, tr func(string) string, text string, number, total int) {
	y := PageHeight - Margin + 4
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.Text(Margin, y, tr(text))

	label := fmt.Sprintf("Page %d of %d", number, total)
	pdf.Text(PageWidth-Margin-pdf.GetStringWidth(label), y, label)
}
