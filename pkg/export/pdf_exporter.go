package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/campuspulse/attendance-api/internal/models"
)

// PDFExporter renders printable sign-in sheets for a checkpoint, used by
// operators as a paper fallback at the venue.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderSignInSheet creates a one-page-per-50 sign-in sheet listing the
// registered participants with signature boxes.
func (e *PDFExporter) RenderSignInSheet(event models.EventMeta, checkpoint models.CheckpointDefinition, participants []models.Participant) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(event.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	window := fmt.Sprintf("%s  •  %s — %s",
		checkpoint.Name,
		checkpoint.StartTime.Format("Mon 2 Jan 15:04"),
		checkpoint.EndTime.Format("15:04"),
	)
	pdf.CellFormat(0, 8, window, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 8, "Participant ID", "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 8, "Name", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 8, "Signature", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, p := range participants {
		pdf.CellFormat(60, 8, p.ID, "1", 0, "", false, 0, "")
		pdf.CellFormat(70, 8, p.FullName, "1", 0, "", false, 0, "")
		pdf.CellFormat(60, 8, "", "1", 0, "", false, 0, "")
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render sign-in sheet: %w", err)
	}
	return buf.Bytes(), nil
}
