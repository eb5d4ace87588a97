// Package extract turns uploaded document files into plain text for the
// conversion pipeline.
package extract

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxUploadBytes caps accepted upload size.
const MaxUploadBytes = 32 << 20

// supported maps accepted extensions to their extraction function.
var supported = map[string]func([]byte) (string, error){
	".txt":  extractPlain,
	".md":   extractPlain,
	".pdf":  extractPDF,
	".docx": extractDOCX,
}

// SupportedExtensions lists accepted file extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supported))
	for ext := range supported {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supported reports whether filename's extension is accepted.
func Supported(filename string) bool {
	_, ok := supported[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Text extracts plain text from content based on filename's extension.
func Text(content []byte, filename string) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty file")
	}
	if len(content) > MaxUploadBytes {
		return "", fmt.Errorf("file exceeds %d byte limit", MaxUploadBytes)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	fn, ok := supported[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file type %q (accepted: %s)",
			ext, strings.Join(SupportedExtensions(), ", "))
	}

	text, err := fn(content)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no extractable text in %s", filename)
	}
	return text, nil
}

// extractPlain validates UTF-8, replacing invalid sequences with the
// replacement character rather than rejecting the file.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}
