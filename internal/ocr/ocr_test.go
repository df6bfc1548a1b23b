package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docinsight/constants"
	"github.com/joseph-ayodele/docinsight/internal/testutil"
)

func TestImageExtractor_RunsTesseractOnStdin(t *testing.T) {
	runner := &stubRunner{stdout: "  Hello World \n\n"}
	e := NewImageExtractor(Config{TessdataDir: "/opt/tessdata", PSM: 6}, nil).WithRunner(runner)
	img := testPNG(t)

	res, err := e.Extract(context.Background(), img)
	require.NoError(t, err)

	assert.Equal(t, "  Hello World \n\n", res.Text)
	assert.Equal(t, constants.FormatImage, res.Format)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, "eng", res.Language)
	assert.Equal(t, 1, res.Pages)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "tesseract", call.name)
	assert.Equal(t, []string{"stdin", "stdout", "-l", "eng", "--psm", "6", "--tessdata-dir", "/opt/tessdata"}, call.args)
	assert.Equal(t, img, call.stdin)
}

func TestImageExtractor_CorruptImage(t *testing.T) {
	runner := &stubRunner{}
	e := NewImageExtractor(Config{}, nil).WithRunner(runner)

	_, err := e.Extract(context.Background(), []byte("definitely not an image"))
	require.Error(t, err)
	assert.Empty(t, runner.calls, "tesseract must not run for undecodable input")
}

func TestImageExtractor_TesseractFailure(t *testing.T) {
	runner := &stubRunner{stderr: "Error in pixReadMem", err: errors.New("exit status 1")}
	e := NewImageExtractor(Config{}, nil).WithRunner(runner)

	res, err := e.Extract(context.Background(), testPNG(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract")
	assert.Equal(t, []string{"Error in pixReadMem"}, res.Warnings)
}

func TestPDFExtractor_NativeTextLayer(t *testing.T) {
	e := NewPDFExtractor(Config{}, nil)

	res, err := e.Extract(context.Background(), testutil.BuildPDF("Hello World"))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, constants.FormatPDF, res.Format)
	assert.Contains(t, res.Text, "Hello World")
}

func TestPDFExtractor_PageOrder(t *testing.T) {
	e := NewPDFExtractor(Config{}, nil)

	res, err := e.Extract(context.Background(), testutil.BuildPDF("First page", "Second page"))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Pages)
	first := strings.Index(res.Text, "First page")
	second := strings.Index(res.Text, "Second page")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
}

func TestPDFExtractor_Rejects(t *testing.T) {
	encrypted, err := testutil.EncryptedPDF("user", "Secret")
	require.NoError(t, err)

	tests := []struct {
		name    string
		content []byte
	}{
		{name: "malformed", content: []byte("%PDF-1.4\nthis is not a pdf body")},
		{name: "encrypted", content: encrypted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewPDFExtractor(Config{}, nil)

			res, err := e.Extract(context.Background(), tt.content)
			require.Error(t, err)
			assert.Empty(t, res.Text)
		})
	}
}

func TestPDFExtractor_PdftotextBackend(t *testing.T) {
	runner := &stubRunner{stdout: "page one\fpage two\f"}
	e := NewPDFExtractor(Config{PDFBackend: "pdftotext"}, nil).WithRunner(runner)
	doc := testutil.BuildPDF("ignored")

	res, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, "pdftotext", res.Method)
	assert.Equal(t, "page one\npage two\n", res.Text)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "pdftotext", runner.calls[0].name)
	assert.Equal(t, []string{"-enc", "UTF-8", "-eol", "unix", "-", "-"}, runner.calls[0].args)
	assert.Equal(t, doc, runner.calls[0].stdin)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...(truncated)", truncate("abc", 2))
}
