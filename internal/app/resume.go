package app

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractResumeText pulls plain text out of the uploaded PDF.
// Pages that fail to render are skipped; a fully empty result is an error.
func extractResumeText(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()
	var sb strings.Builder
	totalPages := reader.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrNoResumeText
	}
	return text, nil
}
