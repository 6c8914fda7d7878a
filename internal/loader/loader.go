package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

// pageBreak separates pages in plain text files.
const pageBreak = "\f"

// Load reads the document at path and returns its pages in reading order.
func Load(path string) ([]domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLoad, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrLoad, path)
	}

	var pages []string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		pages, err = readPDF(path)
	case ".txt", ".text", ".md":
		pages, err = readText(path)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", domain.ErrLoad, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrLoad, path, err)
	}
	return toDocuments(path, pages)
}

func readText(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(data), pageBreak), nil
}

// recoverParse turns a panic raised by the PDF parser on malformed input
// into an error stored in *err.
func recoverParse(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed pdf: %v", r)
	}
}

func readPDF(path string) (pages []string, err error) {
	defer recoverParse(&err)
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pages = make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// toDocuments builds one Document per page. Each non-empty page ends with a
// newline so that concatenated pages never join words across a page break.
func toDocuments(path string, pages []string) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(pages))
	hasText := false
	for i, content := range pages {
		if strings.TrimSpace(content) != "" {
			hasText = true
		}
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		docs = append(docs, domain.Document{Path: path, Page: i, Content: content})
	}
	if !hasText {
		return nil, fmt.Errorf("%w: %s contains no text", domain.ErrLoad, path)
	}
	return docs, nil
}
