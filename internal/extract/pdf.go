// Package extract pulls per-page plain text out of source documents. It is
// the ingestion-side collaborator of the pipeline; everything downstream
// works on PageText and never touches file formats.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"paperdesk/internal/domain"
)

// Result is the extracted content of one source document.
type Result struct {
	Pages     []domain.PageText
	PageCount int
	Title     string
	Author    string
}

// PDF extracts plain text from every page of a PDF file. Pages that fail
// text extraction are skipped, not fatal; a document with no extractable
// text surfaces later as an ingest failure when chunking yields nothing.
func PDF(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}
	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", filepath.Base(path), err)
	}

	res := &Result{
		PageCount: reader.NumPage(),
		Title:     "Unknown",
		Author:    "Unknown",
	}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		res.Pages = append(res.Pages, domain.PageText{Number: i, Text: text})
	}
	return res, nil
}

// Text reads a plain-text file, treating form feeds as page breaks. A file
// without form feeds is a single page.
func Text(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}
	raw := strings.Split(string(data), "\f")
	res := &Result{Title: "Unknown", Author: "Unknown"}
	for i, p := range raw {
		if strings.TrimSpace(p) == "" {
			continue
		}
		res.Pages = append(res.Pages, domain.PageText{Number: i + 1, Text: p})
	}
	res.PageCount = len(raw)
	return res, nil
}
