// Package textextract pulls per-page plain text and document metadata out of
// source files. Byte-exact extraction fidelity is the PDF library's concern,
// not ours; empty pages are preserved as empty strings to keep 1-based page
// numbering stable downstream.
package textextract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is the extracted form of one source file: page text in reading
// order plus whatever metadata the file carries.
type Document struct {
	Pages []string
	Info  DocumentInfo
}

type DocumentInfo struct {
	Title         string
	Author        string
	FileName      string
	PageCount     int
	FileSizeBytes int64
}

func Extract(data io.ReaderAt, size int64, fileType string) (*Document, error) {
	switch strings.ToLower(fileType) {
	case ".pdf", "pdf", "application/pdf":
		return extractPDF(data, size)
	case ".txt", "txt", "text/plain":
		return extractTXT(data, size)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}
}

func SupportedTypes() []string {
	return []string{".pdf", ".txt"}
}

func extractPDF(data io.ReaderAt, size int64) (*Document, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A page that fails to decode stays in the sequence as empty
			// text so page numbers of later chunks remain correct.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	info := DocumentInfo{
		PageCount:     numPages,
		FileSizeBytes: size,
	}
	trailer := reader.Trailer()
	if meta := trailer.Key("Info"); meta.Kind() == pdf.Dict {
		if v := meta.Key("Title"); v.Kind() == pdf.String {
			info.Title = v.Text()
		}
		if v := meta.Key("Author"); v.Kind() == pdf.String {
			info.Author = v.Text()
		}
	}

	return &Document{Pages: pages, Info: info}, nil
}

func extractTXT(data io.ReaderAt, size int64) (*Document, error) {
	buf := make([]byte, size)
	_, err := data.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read TXT: %w", err)
	}

	// Form-feed separated text is treated as paginated; anything else is a
	// single page.
	text := string(bytes.TrimSpace(buf))
	pages := strings.Split(text, "\f")

	return &Document{
		Pages: pages,
		Info: DocumentInfo{
			PageCount:     len(pages),
			FileSizeBytes: size,
		},
	}, nil
}
