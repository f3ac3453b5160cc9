package ingest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	var body strings.Builder
	body.WriteString(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)
	if _, err := w.Write([]byte(body.String())); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestFromFile_Text(t *testing.T) {
	path := writeFile(t, "harvest-notes.txt", []byte("  The harvest   began early.\n\n\nRain followed.  \n"))

	doc, err := FromFile(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	want := &Document{Title: "harvest-notes", Source: path, Text: "The harvest began early.\nRain followed."}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestFromFile_Markdown(t *testing.T) {
	path := writeFile(t, "README.md", []byte("# Title\n\nSome *text* here."))

	doc, err := FromFile(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.Text != "# Title\nSome *text* here." {
		t.Errorf("Unexpected text: %q", doc.Text)
	}
}

func TestFromFile_DOCX(t *testing.T) {
	path := writeFile(t, "memo.docx", buildDOCX(t, "First paragraph.", "Second paragraph."))

	doc, err := FromFile(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.Text != "First paragraph.\nSecond paragraph." {
		t.Errorf("Unexpected text: %q", doc.Text)
	}
	if doc.Title != "memo" {
		t.Errorf("Expected title memo, got %q", doc.Title)
	}
}

func TestFromFile_DOCXMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, _ = zw.Create("word/styles.xml")
	_ = zw.Close()
	path := writeFile(t, "broken.docx", buf.Bytes())

	if _, err := FromFile(path); err == nil {
		t.Error("Expected error for docx without document.xml")
	}
}

func TestFromFile_Unsupported(t *testing.T) {
	path := writeFile(t, "image.png", []byte{0x89, 'P', 'N', 'G'})
	_, err := FromFile(path)
	if err == nil || !strings.Contains(err.Error(), "unsupported file type") {
		t.Errorf("Expected unsupported file type error, got %v", err)
	}
}

func TestFromFile_Missing(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestIsSupported(t *testing.T) {
	for _, p := range []string{"a.txt", "b.MD", "c.pdf", "d.docx"} {
		if !IsSupported(p) {
			t.Errorf("Expected %s to be supported", p)
		}
	}
	for _, p := range []string{"a.png", "b", "c.doc"} {
		if IsSupported(p) {
			t.Errorf("Expected %s to be unsupported", p)
		}
	}
}

func TestVisibleText(t *testing.T) {
	title, text, err := VisibleText(`<html><head><title> Report </title><style>p{}</style></head>
<body><header>Site</header><h1>Findings</h1><p>Costs rose.</p><ul><li>One</li><li>Two</li></ul><footer>(c)</footer></body></html>`)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if title != "Report" {
		t.Errorf("Expected title Report, got %q", title)
	}
	want := "Findings\nCosts rose.\nOne\nTwo"
	if text != want {
		t.Errorf("Expected %q, got %q", want, text)
	}
}

func TestLoad_DispatchesOnSource(t *testing.T) {
	path := writeFile(t, "local.txt", []byte("Local text."))
	doc, err := Load(t.Context(), nil, path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.Text != "Local text." {
		t.Errorf("Unexpected text: %q", doc.Text)
	}

	if _, err := Load(t.Context(), nil, "https://example.com/page"); err == nil {
		t.Error("Expected error for URL without fetcher")
	}
}
