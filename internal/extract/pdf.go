package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// extractPDF validates the PDF with pdfcpu (page count doubles as a
// structural sanity check) and pulls text page by page. Pages that yield no
// text are skipped; image-only PDFs produce an error at the caller via the
// empty-text check.
func extractPDF(content []byte) (string, error) {
	pages, err := pdfapi.PageCount(bytes.NewReader(content), nil)
	if err != nil {
		return "", fmt.Errorf("invalid PDF: %w", err)
	}
	if pages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		if b.Len() > 0 && text != "" {
			b.WriteByte('\n')
		}
		b.WriteString(text)
	}
	return b.String(), nil
}
