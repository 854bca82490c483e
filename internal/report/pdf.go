// Package report renders expense reports as PDF documents.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/isdelr/expense-tracker-be/internal/models"
)

// ContentType is the MIME type of rendered reports.
const ContentType = "application/pdf"

const (
	rowHeight   = 8.0
	cellPadding = 2.0
)

var (
	columns = []string{"ID", "Amount ($)", "Category", "Description", "Date"}
	widths  = []float64{18, 32, 28, 72, 32}
	aligns  = []string{"L", "R", "L", "L", "C"}

	headerFill = [3]int{0, 121, 107}
	stripeFill = [3]int{236, 245, 244}
)

// Data is everything a report shows.
type Data struct {
	OwnerName   string
	Expenses    []models.Expense
	Summary     models.Summary
	GeneratedAt time.Time
}

// FileName returns a download name that is unique per render time.
func FileName(generatedAt time.Time) string {
	return fmt.Sprintf("expense_report_%d.pdf", generatedAt.UnixMilli())
}

// FormatCurrency formats an amount as dollars with two decimals, e.g. "-$3.07".
func FormatCurrency(c models.Cents) string {
	if c < 0 {
		return "-$" + (-c).String()
	}
	return "$" + c.String()
}

// Render draws a title, one table row per expense and the summary lines.
func Render(data Data) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetTitle("Expense Report", true)
	pdf.SetCreator("expense-tracker", true)
	pdf.SetCreationDate(data.GeneratedAt)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Expense Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	if data.OwnerName != "" {
		pdf.CellFormat(0, 6, tr("User: "+data.OwnerName), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Generated: "+data.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	drawHeader(pdf)
	for i, e := range data.Expenses {
		if needsPageBreak(pdf, rowHeight) {
			pdf.AddPage()
			drawHeader(pdf)
		}
		drawRow(pdf, tr, i, e)
	}

	if needsPageBreak(pdf, 4+3*7) {
		pdf.AddPage()
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 7, "Total Income: "+FormatCurrency(data.Summary.TotalIncome), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Total Expenses: "+FormatCurrency(data.Summary.TotalExpenses), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Net Balance: "+FormatCurrency(data.Summary.NetBalance()), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
	pdf.SetTextColor(255, 255, 255)
	for i, title := range columns {
		pdf.CellFormat(widths[i], rowHeight, title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

func drawRow(pdf *fpdf.Fpdf, tr func(string) string, index int, e models.Expense) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(stripeFill[0], stripeFill[1], stripeFill[2])
	fill := index%2 == 1

	description := e.Description
	if description == "" {
		description = "N/A"
	}
	cells := []string{
		fmt.Sprintf("%d", e.ID),
		FormatCurrency(e.Amount),
		e.Category,
		fitText(pdf, tr, description, widths[3]-2*cellPadding),
		e.CreatedAt.UTC().Format("2006-01-02"),
	}
	for i, text := range cells {
		pdf.CellFormat(widths[i], rowHeight, text, "1", 0, aligns[i], fill, 0, "")
	}
	pdf.Ln(-1)
}

// fitText shortens the UTF-8 string s with an ellipsis until its translated
// form fits in width, and returns the translated result.
func fitText(pdf *fpdf.Fpdf, tr func(string) string, s string, width float64) string {
	if pdf.GetStringWidth(tr(s)) <= width {
		return tr(s)
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(tr(string(runes)+"...")) > width {
		runes = runes[:len(runes)-1]
	}
	return tr(string(runes) + "...")
}

func needsPageBreak(pdf *fpdf.Fpdf, height float64) bool {
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if bottom < 10 {
		bottom = 10
	}
	return pdf.GetY()+height > pageHeight-bottom
}
