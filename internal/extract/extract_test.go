package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

// TestText_PlainPassthrough tests .txt and .md passthrough.
func TestText_PlainPassthrough(t *testing.T) {
	content := []byte("# Heading\n\nBody text.")

	for _, name := range []string{"doc.txt", "doc.md", "DOC.MD"} {
		got, err := Text(content, name)
		if err != nil {
			t.Fatalf("Text(%s) error = %v", name, err)
		}
		if got != string(content) {
			t.Errorf("Text(%s) = %q, want passthrough", name, got)
		}
	}
}

// TestText_InvalidUTF8Replaced tests that broken encodings degrade to the
// replacement character instead of failing.
func TestText_InvalidUTF8Replaced(t *testing.T) {
	content := []byte{'o', 'k', 0xff, 0xfe, '!'}

	got, err := Text(content, "doc.txt")
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if !strings.Contains(got, "ok") || !strings.Contains(got, "�") {
		t.Errorf("Text() = %q, want invalid bytes replaced", got)
	}
}

// TestText_Rejections tests the input guards.
func TestText_Rejections(t *testing.T) {
	if _, err := Text(nil, "doc.txt"); err == nil {
		t.Error("Text(empty) error = nil")
	}
	if _, err := Text([]byte("x"), "doc.exe"); err == nil {
		t.Error("Text(unsupported) error = nil")
	}
	if _, err := Text([]byte("   \n\t "), "doc.txt"); err == nil {
		t.Error("Text(whitespace only) error = nil, want no-extractable-text error")
	}
	if _, err := Text(make([]byte, MaxUploadBytes+1), "doc.txt"); err == nil {
		t.Error("Text(oversized) error = nil")
	}
}

// TestSupported tests extension checks.
func TestSupported(t *testing.T) {
	for _, name := range []string{"a.txt", "a.md", "a.pdf", "a.docx", "A.PDF"} {
		if !Supported(name) {
			t.Errorf("Supported(%s) = false", name)
		}
	}
	for _, name := range []string{"a.exe", "a.doc", "a", "a.txt.gz"} {
		if Supported(name) {
			t.Errorf("Supported(%s) = true", name)
		}
	}
}

// TestSupportedExtensions tests the sorted extension list.
func TestSupportedExtensions(t *testing.T) {
	got := SupportedExtensions()
	want := []string{".docx", ".md", ".pdf", ".txt"}
	if len(got) != len(want) {
		t.Fatalf("SupportedExtensions() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SupportedExtensions()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// makeDocx builds a minimal .docx container around the given document XML.
func makeDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// TestText_Docx tests text-node extraction with paragraph line breaks.
func TestText_Docx(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document><w:body>
  <w:p><w:r><w:t>First </w:t></w:r><w:r><w:t xml:space="preserve">paragraph.</w:t></w:r></w:p>
  <w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
  <w:p></w:p>
</w:body></w:document>`

	got, err := Text(makeDocx(t, doc), "report.docx")
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	want := "First paragraph.\nSecond paragraph."
	if got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

// TestText_DocxEntitiesUnescaped tests that XML entities in text nodes come
// out as their characters.
func TestText_DocxEntitiesUnescaped(t *testing.T) {
	doc := `<w:document><w:body>
  <w:p><w:r><w:t>Fish &amp; chips &lt;fresh&gt; &#8220;daily&#8221;</w:t></w:r></w:p>
</w:body></w:document>`

	got, err := Text(makeDocx(t, doc), "menu.docx")
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	want := "Fish & chips <fresh> “daily”"
	if got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

// TestText_DocxInvalid tests container error cases.
func TestText_DocxInvalid(t *testing.T) {
	if _, err := Text([]byte("not a zip archive"), "a.docx"); err == nil {
		t.Error("Text(non-zip docx) error = nil")
	}

	// Valid zip, wrong member.
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("other.xml")
	w.Write([]byte("<x/>"))
	zw.Close()

	if _, err := Text(buf.Bytes(), "a.docx"); err == nil {
		t.Error("Text(docx without document.xml) error = nil")
	}
}
