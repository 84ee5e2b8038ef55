package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"taskboard/internal/models"
)

// Generator is an interface so handlers can be tested without gofpdf.
type Generator interface {
	ProjectReport(w io.Writer, data ReportData) error
}

type ReportData struct {
	Project     models.ProjectDetails
	GeneratedAt time.Time
}

// ReportGenerator renders project reports. With an empty FontPath the core
// Helvetica font is used and text is translated to cp1252.
type ReportGenerator struct {
	FontPath string
	fontName string
}

func NewReportGenerator(fontPath string) *ReportGenerator {
	name := "Helvetica"
	if fontPath != "" {
		name = "DejaVu"
	}
	return &ReportGenerator{FontPath: fontPath, fontName: name}
}

func (g *ReportGenerator) ProjectReport(w io.Writer, data ReportData) error {
	p := data.Project

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Project report: "+p.Title, true)
	pdf.SetAuthor("taskboard", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	tr := g.addFont(pdf)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, tr(p.Title), "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 7, "Generated "+data.GeneratedAt.Format("02.01.2006 15:04"), "", 1, "C", false, 0, "")
	g.hr(pdf)

	g.sectionTitle(pdf, "Overview")
	g.kvLine(pdf, "Status", string(p.Status))
	g.kvLine(pdf, "Priority", string(p.Priority))
	g.kvLine(pdf, "Progress", fmt.Sprintf("%d%%", p.Progress))
	g.kvLine(pdf, "Lead", tr(p.LeadName))
	g.kvLine(pdf, "Budget", fmt.Sprintf("%.2f", p.Budget))
	deadline := "-"
	if p.Deadline != nil {
		deadline = p.Deadline.Format("02.01.2006")
	}
	g.kvLine(pdf, "Deadline", deadline)
	if p.Description != nil && *p.Description != "" {
		pdf.Ln(1)
		pdf.MultiCell(0, 6, tr(*p.Description), "", "L", false)
	}
	g.progressBar(pdf, p.Progress)
	g.hr(pdf)

	g.sectionTitle(pdf, fmt.Sprintf("Members (%d)", len(p.Members)))
	for _, m := range p.Members {
		name := m.Email
		if m.FullName != nil && *m.FullName != "" {
			name = *m.FullName + " <" + m.Email + ">"
		}
		pdf.CellFormat(0, 6, tr(name), "", 1, "L", false, 0, "")
	}
	g.hr(pdf)

	g.sectionTitle(pdf, fmt.Sprintf("Tasks (%d)", len(p.Tasks)))
	g.taskTable(pdf, p.Tasks, tr)

	return pdf.Output(w)
}

func (g *ReportGenerator) taskTable(pdf *gofpdf.Fpdf, tasks []models.Task, tr func(string) string) {
	widths := []float64{80, 30, 25, 35}
	header := []string{"Task", "Status", "Progress", "Contribution"}
	pdf.SetFont(g.fontName, "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range header {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(g.fontName, "", 10)
	for _, t := range tasks {
		title := t.Title
		if len(title) > 45 {
			title = title[:42] + "..."
		}
		pdf.CellFormat(widths[0], 6, tr(title), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, string(t.Status), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%d%%", t.Progress), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%d%%", t.ProjectContribution), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
}

func (g *ReportGenerator) progressBar(pdf *gofpdf.Fpdf, pct int) {
	x, y := pdf.GetX(), pdf.GetY()+2
	pdf.SetDrawColor(120, 120, 120)
	pdf.Rect(x, y, 170, 5, "D")
	pdf.SetFillColor(70, 130, 180)
	if pct > 0 {
		pdf.Rect(x, y, 170*float64(pct)/100, 5, "F")
	}
	pdf.SetY(y + 7)
}

func (g *ReportGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *ReportGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *ReportGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

// addFont registers the UTF-8 font when configured and returns the text
// translator matching the chosen font.
func (g *ReportGenerator) addFont(pdf *gofpdf.Fpdf) func(string) string {
	if g.FontPath == "" {
		return pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddUTF8Font(g.fontName, "", g.FontPath)
	pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
	return func(s string) string { return s }
}
