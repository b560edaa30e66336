package pdf

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/jung-kurt/gofpdf"

	"teamtasks/internal/models"
)

// ReportGenerator renders task lists to PDF in memory.
type ReportGenerator struct {
	FontPath string // optional TTF for non-Latin text; core Helvetica otherwise
	fontName string
	utf8     bool
}

func NewReportGenerator(fontPath string) *ReportGenerator {
	g := &ReportGenerator{FontPath: fontPath, fontName: "Helvetica"}
	if fontPath != "" {
		if _, err := os.Stat(fontPath); err == nil {
			g.fontName = "ReportFont"
			g.utf8 = true
		}
	}
	return g
}

var columns = []struct {
	title string
	width float64
}{
	{"#", 12},
	{"Title", 78},
	{"Assignee", 50},
	{"Status", 30},
	{"Priority", 24},
	{"Due", 30},
	{"Created", 30},
}

func (g *ReportGenerator) TaskReport(tasks []models.Task, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Task report", false)
	pdf.SetAuthor("Team Task Tracker", false)
	pdf.SetMargins(12, 15, 12)
	pdf.SetAutoPageBreak(true, 15)
	if g.utf8 {
		pdf.AddUTF8Font(g.fontName, "", g.FontPath)
		pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
	}
	tr := g.translator(pdf)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont(g.fontName, "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range columns {
			pdf.CellFormat(col.width, 7, col.title, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	})
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(g.fontName, "", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 9, "Task report", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 9)
	pdf.CellFormat(0, 6,
		fmt.Sprintf("Generated %s, %d task(s)", generatedAt.UTC().Format("2006-01-02 15:04 UTC"), len(tasks)),
		"", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont(g.fontName, "", 9)
	for _, t := range tasks {
		assignee := ""
		if t.AssignedTo != nil {
			assignee = t.AssignedTo.Name
		}
		row := []string{
			fmt.Sprintf("%d", t.ID),
			tr(clip(t.Title, 48)),
			tr(clip(assignee, 30)),
			string(t.Status),
			string(t.Priority),
			t.DueDate.Format("2006-01-02"),
			t.CreatedAt.Format("2006-01-02"),
		}
		for i, col := range columns {
			pdf.CellFormat(col.width, 6, row[i], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render task report: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *ReportGenerator) translator(pdf *gofpdf.Fpdf) func(string) string {
	if g.utf8 {
		return func(s string) string { return s }
	}
	return pdf.UnicodeTranslatorFromDescriptor("")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
