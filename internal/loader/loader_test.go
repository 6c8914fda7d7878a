package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osaetin-tails/rag-demo/internal/domain"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadTextPages(t *testing.T) {
	path := writeFile(t, "book.txt", "Page one.\fPage two.\n\fPage three.")

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "Page one.\n", docs[0].Content)
	assert.Equal(t, "Page two.\n", docs[1].Content)
	assert.Equal(t, "Page three.\n", docs[2].Content)
	for i, d := range docs {
		assert.Equal(t, i, d.Page)
		assert.Equal(t, path, d.Path)
	}
}

func TestLoadSinglePageMarkdown(t *testing.T) {
	docs, err := Load(writeFile(t, "notes.MD", "# Title\n\nBody text\n"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "# Title\n\nBody text\n", docs[0].Content)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.pdf") }},
		{"directory", func(t *testing.T) string { return t.TempDir() }},
		{"unsupported", func(t *testing.T) string { return writeFile(t, "sheet.xlsx", "data") }},
		{"no_text", func(t *testing.T) string { return writeFile(t, "blank.txt", "  \f\n\f") }},
		{"broken_pdf", func(t *testing.T) string { return writeFile(t, "broken.pdf", "not a pdf") }},
		{"truncated_pdf", func(t *testing.T) string {
			return writeFile(t, "truncated.pdf", "%PDF-1.4\n1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\nstartxref\n9\n%%EOF\n")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.path(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrLoad)
		})
	}
}

func TestRecoverParseConvertsPanic(t *testing.T) {
	parse := func() (pages []string, err error) {
		defer recoverParse(&err)
		panic("invalid xref offset")
	}

	var pages []string
	var err error
	require.NotPanics(t, func() { pages, err = parse() })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed pdf: invalid xref offset")
	assert.Nil(t, pages)

	ok := func() (err error) {
		defer recoverParse(&err)
		return nil
	}
	assert.NoError(t, ok())
}
