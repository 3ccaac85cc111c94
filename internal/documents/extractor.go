package documents

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

var (
	// ErrUnsupportedFormat is returned for file extensions no extraction
	// method handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrExtractionFailed is returned when every attempted method fails hard.
	ErrExtractionFailed = errors.New("text extraction failed")
)

// minExtractedChars is the threshold below which an extraction is treated as
// failed and the next fallback method is tried.
const minExtractedChars = 50

// extractionFailedSentinel prefixes the placeholder text emitted when a PDF
// yields nothing even after fallbacks, so the pipeline can still surface a
// diagnosable result instead of erroring.
const extractionFailedSentinel = "[PDF_EXTRACTION_FAILED]"

// Diagnostics records how an extraction went.
type Diagnostics struct {
	FileSize   int64
	PageCount  int
	Method     string
	TextLength int
	Success    bool
}

// OCRFunc turns an image file into text.
type OCRFunc func(path string) (string, error)

// Extractor extracts text from PDF, DOCX, image and plain-text files with a
// per-format fallback chain.
type Extractor struct {
	ocr OCRFunc
}

// NewExtractor returns an Extractor using the tesseract binary for OCR.
func NewExtractor() *Extractor {
	return &Extractor{ocr: tesseractOCR}
}

// NewExtractorWithOCR returns an Extractor with a custom OCR implementation.
func NewExtractorWithOCR(ocr OCRFunc) *Extractor {
	return &Extractor{ocr: ocr}
}

// Extract selects an extraction method by extension and applies fallbacks.
// An extraction that ends below the length threshold is reported through
// Diagnostics.Success, not as an error; only hard method failures error.
func (e *Extractor) Extract(path string) (string, Diagnostics, error) {
	diag := Diagnostics{}

	info, err := os.Stat(path)
	if err != nil {
		return "", diag, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	diag.FileSize = info.Size()

	var text string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = e.extractPDF(path, &diag)
	case ".docx":
		text, err = extractDocx(path)
		diag.Method = "docx_zip"
	case ".doc":
		// Legacy binary format; keep behavior visible rather than erroring.
		text = "Document format .doc not supported. Please convert to .docx"
		diag.Method = "unsupported"
	case ".png", ".jpg", ".jpeg", ".tiff":
		text, err = e.ocr(path)
		diag.Method = "tesseract_ocr"
	case ".txt":
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
		diag.Method = "direct_read"
	default:
		return "", diag, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return "", diag, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	diag.TextLength = len(text)
	diag.Success = diag.Method == "direct_read" ||
		(!strings.HasPrefix(text, extractionFailedSentinel) && len(strings.TrimSpace(text)) >= minExtractedChars)
	return text, diag, nil
}

// extractPDF runs the per-page text extraction, falling back to per-page HTML
// with tags stripped, and finally to a sentinel placeholder when nothing at
// all comes out. PDFs are not image formats, so OCR is never attempted here.
func (e *Extractor) extractPDF(path string, diag *Diagnostics) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	diag.PageCount = doc.NumPage()
	diag.Method = "fitz_text"

	var parts []string
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err == nil && strings.TrimSpace(pageText) != "" {
			parts = append(parts, pageText)
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))

	if len(text) < minExtractedChars {
		var htmlParts []string
		for i := 0; i < doc.NumPage(); i++ {
			pageHTML, err := doc.HTML(i, false)
			if err != nil {
				continue
			}
			stripped := stripHTML(pageHTML)
			if strings.TrimSpace(stripped) != "" {
				htmlParts = append(htmlParts, stripped)
			}
		}
		htmlText := strings.TrimSpace(strings.Join(htmlParts, "\n"))
		text, diag.Method = preferFallback(text, htmlText)
	}

	if text == "" {
		text = fmt.Sprintf("%s Document '%s' appears to contain no extractable text. This may be a scanned PDF requiring OCR processing.",
			extractionFailedSentinel, filepath.Base(path))
	}
	return text, nil
}

// extractDocx reads the document as a zip archive and pulls paragraph text
// out of word/document.xml.
func extractDocx(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx as zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()
		return parseDocxXML(rc)
	}
	return "", fmt.Errorf("docx archive has no word/document.xml")
}

func parseDocxXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var b strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

// preferFallback keeps the HTML fallback text whenever it beats the primary
// pass, attributing the extraction method to whichever result is kept.
func preferFallback(text, htmlText string) (string, string) {
	if len(htmlText) >= minExtractedChars || len(htmlText) > len(text) {
		return htmlText, "fitz_html"
	}
	return text, "fitz_text"
}

// stripHTML removes markup, leaving a space where each tag was.
func stripHTML(html string) string {
	var result strings.Builder
	inTag := false
	for _, r := range html {
		if r == '<' {
			inTag = true
			continue
		}
		if r == '>' {
			inTag = false
			result.WriteRune(' ')
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// tesseractOCR shells out to the tesseract binary. Kept behind OCRFunc so
// deployments without tesseract can inject their own implementation.
func tesseractOCR(path string) (string, error) {
	out, err := exec.Command("tesseract", path, "stdout").Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return string(out), nil
}
