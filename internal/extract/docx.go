package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const docxDocumentPath = "word/document.xml"

// wtTag matches <w:t> text nodes with or without attributes. Run and
// paragraph attributes vary wildly between producers, so matching the text
// nodes directly is the robust path.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// wpClose marks paragraph boundaries so extracted text keeps line structure.
var wpClose = regexp.MustCompile(`</w:p>`)

// extractDOCX reads word/document.xml out of the .docx zip container and
// collects all <w:t> text nodes, inserting newlines at paragraph boundaries.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("invalid docx: not a zip archive: %w", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docxDocumentPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", f.Name, err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", f.Name, err)
		}
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("invalid docx: %s not found", docxDocumentPath)
	}

	// Normalize paragraph closes to newlines, then collect text nodes
	// per line so paragraphs survive as line breaks.
	var b strings.Builder
	for _, para := range wpClose.Split(string(docXML), -1) {
		matches := wtTag.FindAllStringSubmatch(para, -1)
		if len(matches) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		for _, m := range matches {
			b.WriteString(m[1])
		}
	}
	// Text nodes carry XML-escaped entities (&amp;, &lt;, numeric refs).
	return html.UnescapeString(b.String()), nil
}
