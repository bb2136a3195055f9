package attachments

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF pulls text per page so each page can be cited individually.
func extractPDF(path string) (string, []Source, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	fileName := filepath.Base(path)
	var textBlocks []string
	var sources []Source
	total := reader.NumPage()
	for pageIndex := 1; pageIndex <= total; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		textBlocks = append(textBlocks, text)
		sources = append(sources, Source{
			SourceID: fmt.Sprintf("att_%s_p%d", fileName, pageIndex),
			Kind:     "attachment",
			FileName: fileName,
			MIME:     "application/pdf",
			Page:     intPtr(pageIndex),
			Text:     text,
		})
	}
	return strings.Join(textBlocks, "\n\n"), sources, nil
}
