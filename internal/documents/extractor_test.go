package documents

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExtract_PlainText(t *testing.T) {
	path := writeFile(t, "notes.txt", "short note")

	text, diag, err := NewExtractor().Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "short note", text)
	assert.Equal(t, "direct_read", diag.Method)
	assert.Equal(t, int64(10), diag.FileSize)
	// Direct reads count as successful regardless of length.
	assert.True(t, diag.Success)
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	path := writeFile(t, "data.xlsx", "not really a spreadsheet")

	_, _, err := NewExtractor().Extract(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtract_MissingFile(t *testing.T) {
	_, _, err := NewExtractor().Extract(filepath.Join(t.TempDir(), "gone.txt"))
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtract_LegacyDoc(t *testing.T) {
	path := writeFile(t, "old.doc", "binary junk")

	text, diag, err := NewExtractor().Extract(path)
	require.NoError(t, err)
	assert.Contains(t, text, "not supported")
	assert.Equal(t, "unsupported", diag.Method)
	assert.False(t, diag.Success)
}

func TestExtract_ImageUsesOCR(t *testing.T) {
	path := writeFile(t, "scan.png", "fake image bytes")
	ocrText := strings.Repeat("recognized text ", 10)

	extractor := NewExtractorWithOCR(func(p string) (string, error) {
		assert.Equal(t, path, p)
		return ocrText, nil
	})

	text, diag, err := extractor.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, ocrText, text)
	assert.Equal(t, "tesseract_ocr", diag.Method)
	assert.True(t, diag.Success)
}

func TestExtract_ShortOCROutputIsNotSuccess(t *testing.T) {
	path := writeFile(t, "scan.jpg", "fake image bytes")

	extractor := NewExtractorWithOCR(func(string) (string, error) {
		return "blurry", nil
	})

	text, diag, err := extractor.Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "blurry", text)
	assert.False(t, diag.Success)
}

func writeDocx(t *testing.T, paragraphs []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brief.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	doc, err := w.Create("word/document.xml")
	require.NoError(t, err)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		b.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	b.WriteString(`</w:body></w:document>`)
	_, err = doc.Write([]byte(b.String()))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return path
}

func TestExtract_Docx(t *testing.T) {
	path := writeDocx(t, []string{
		"This agreement is made between the parties below.",
		"The landlord shall maintain the premises in good repair.",
	})

	text, diag, err := NewExtractor().Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "docx_zip", diag.Method)
	assert.Contains(t, text, "This agreement is made")
	assert.Contains(t, text, "good repair")
	assert.True(t, diag.Success)
}

// writeEmptyPDF builds a minimal valid one-page PDF with no content stream,
// computing the cross-reference offsets so strict parsers accept it.
func writeEmptyPDF(t *testing.T) string {
	t.Helper()

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")

	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n",
	}
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		b.WriteString(obj)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "scanned.pdf")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0644))
	return path
}

func TestExtract_TextlessPDFReportsFailure(t *testing.T) {
	path := writeEmptyPDF(t)

	text, diag, err := NewExtractor().Extract(path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "[PDF_EXTRACTION_FAILED]"))
	assert.Contains(t, text, "scanned.pdf")
	assert.Equal(t, 1, diag.PageCount)
	assert.Equal(t, "fitz_text", diag.Method)
	// The placeholder is long enough to clear the length threshold, but a
	// sentinel result is still a failed extraction.
	assert.False(t, diag.Success)
}

func TestPreferFallback(t *testing.T) {
	// HTML pass clears the threshold outright.
	long := strings.Repeat("recovered words ", 5)
	text, method := preferFallback("", long)
	assert.Equal(t, long, text)
	assert.Equal(t, "fitz_html", method)

	// HTML pass is under the threshold but still beats the primary pass.
	text, method = preferFallback("abc", "slightly longer html text")
	assert.Equal(t, "slightly longer html text", text)
	assert.Equal(t, "fitz_html", method)

	// Nothing recovered from HTML keeps the primary pass and its method.
	text, method = preferFallback("abc", "")
	assert.Equal(t, "abc", text)
	assert.Equal(t, "fitz_text", method)
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, " hello  world ", stripHTML("<p>hello <b>world</b>"))
	assert.Equal(t, "plain", stripHTML("plain"))
}
