package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/azs-pg/ilawa-courses-api/internal/models"
)

// PDFExporter renders registration summaries for students.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RegistrationSummary renders a one-page summary of a registration form for
// the given course.
func (e *PDFExporter) RegistrationSummary(course *models.Course, form *models.RegistrationForm) ([]byte, error) {
	if len(form.Fields) == 0 {
		return nil, fmt.Errorf("registration form has no field sets")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "COURSE REGISTRATION SUMMARY", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, course.Name, "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Duration: %d day(s)  Cost: %s PLN", course.DurationDays, formatAmount(course.Cost)), "", 1, "", false, 0, "")
	pdf.Ln(4)

	for i, fields := range form.Fields {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 8, fmt.Sprintf("Participant %d", i+1), "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		rows := [][2]string{
			{"Name", fields.FirstName + " " + fields.LastName},
			{"PESEL", fields.Pesel},
			{"Phone", fields.PhoneNumber},
			{"Email", fields.Email},
			{"Cost", formatAmount(fields.Cost) + " PLN"},
			{"Date", fields.Date.Format(time.DateOnly)},
		}
		if fields.StudentIDNumber != "" {
			rows = append(rows, [2]string{"Student ID", fields.StudentIDNumber})
		}
		if fields.MembershipCardNumber != "" {
			rows = append(rows, [2]string{"Membership card", fields.MembershipCardNumber})
		}
		for _, row := range rows {
			pdf.CellFormat(50, 7, row[0], "1", 0, "", false, 0, "")
			pdf.CellFormat(140, 7, row[1], "1", 0, "", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(3)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render registration summary: %w", err)
	}
	return buf.Bytes(), nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
