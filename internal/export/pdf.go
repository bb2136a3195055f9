package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf/v2"

	"lectern/internal/store"
)

// WriteSessionPDF renders the session transcript and generated notes into a
// printable PDF at outPath.
func WriteSessionPDF(session *store.Session, transcriptText, notesMarkdown, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure pdf directory: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Session %s", session.ID), false)
	pdf.SetAuthor("Lectern", false)
	pdf.AddPage()

	title := strings.TrimSpace(session.Name)
	if title == "" {
		title = "Session"
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 6, fmt.Sprintf("Created: %s", session.CreatedAt.Local().Format("2006-01-02 15:04")))
	pdf.Ln(12)

	writeSection(pdf, "Transcript", transcriptText)
	pdf.Ln(8)
	writeSection(pdf, "Notes", notesMarkdown)

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func writeSection(pdf *gofpdf.Fpdf, title, content string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, title)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		pdf.MultiCell(0, 6, "(empty)", "", "L", false)
		return
	}
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pdf.MultiCell(0, 6, line, "", "L", false)
	}
}
