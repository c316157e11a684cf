package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFFormatter renders a one-page A4 summary. The core fonts are Latin-1
// only, so text goes through transliterate first.
type PDFFormatter struct{}

func (p PDFFormatter) Name() string { return "pdf" }
func (p PDFFormatter) Ext() string  { return "pdf" }

var (
	pdfAccent = [3]int{23, 82, 140}
	pdfMuted  = [3]int{110, 125, 140}
	pdfText   = [3]int{31, 41, 51}
)

func (p PDFFormatter) Format(report *Report) ([]byte, error) {
	const (
		marginL = 18.0
		marginR = 18.0
		pageW   = 210.0
	)
	contentW := pageW - marginL - marginR
	ev := report.Evaluation

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginL, 18, marginR)
	pdf.SetAutoPageBreak(true, 18)
	pdf.SetTitle(fmt.Sprintf("Forfettario %d", ev.Inputs.Year), false)
	pdf.SetCreationDate(report.GeneratedAt)
	pdf.SetModificationDate(report.GeneratedAt)
	pdf.AddPage()

	lines := summaryLines(ev)

	pdf.SetFillColor(pdfAccent[0], pdfAccent[1], pdfAccent[2])
	pdf.Rect(0, 0, pageW, 4, "F")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(pdfAccent[0], pdfAccent[1], pdfAccent[2])
	pdf.CellFormat(contentW, 10, transliterate(lines[0]), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 8.5)
	pdf.SetTextColor(pdfMuted[0], pdfMuted[1], pdfMuted[2])
	pdf.CellFormat(contentW, 5, "Generated "+report.GeneratedAt.Format("2006-01-02 15:04")+" UTC", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(pdfText[0], pdfText[1], pdfText[2])
	for _, line := range lines[1:] {
		label, value, ok := strings.Cut(line, ": ")
		if !ok || strings.HasSuffix(line, ":") {
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", 11)
			pdf.MultiCell(contentW, 6, transliterate(line), "", "L", false)
			continue
		}
		pdf.SetFont("Helvetica", "", 10.5)
		pdf.CellFormat(contentW*0.65, 7, transliterate(label), "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10.5)
		pdf.CellFormat(contentW*0.35, 7, transliterate(value), "B", 1, "R", false, 0, "")
	}

	if len(ev.Errors) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(180, 40, 40)
		pdf.MultiCell(contentW, 5, transliterate(fmt.Sprintf("%d input errors: figures use the last valid values.", len(ev.Errors))), "", "L", false)
	}

	pdf.SetY(-20)
	pdf.SetFont("Helvetica", "", 7.5)
	pdf.SetTextColor(pdfMuted[0], pdfMuted[1], pdfMuted[2])
	pdf.CellFormat(contentW, 5, "Estimate only. Check the amounts with your accountant.", "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

var pdfReplacer = strings.NewReplacer(
	"à", "a", "è", "e", "é", "e", "ì", "i", "ò", "o", "ù", "u",
	"À", "A", "È", "E", "É", "E", "Ì", "I", "Ò", "O", "Ù", "U",
	" €", " EUR", "€", "EUR", "–", "-", "‘", "'", "’", "'",
	"“", "\"", "”", "\"",
)

func transliterate(s string) string { return pdfReplacer.Replace(s) }
