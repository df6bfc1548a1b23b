package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.yaml.in/yaml/v3"
)

// Format selects the report encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a flag value or a file extension such as ".yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Writer encodes reports.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

func (w *Writer) Write(out io.Writer, f Format, r Report) error {
	start := time.Now()
	var err error
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err = enc.Encode(r); err == nil {
			err = enc.Close()
		}
	case FormatXLSX:
		err = writeXLSX(out, r)
	default:
		err = fmt.Errorf("unknown report format %q", f)
	}
	if err != nil {
		return fmt.Errorf("%s write: %w", f, err)
	}
	w.logger.Info("export.ok",
		"format", f,
		"rows", len(r.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

const sheet = "Documents"

var headers = []string{
	"Source",
	"Content Type",
	"State",
	"Model",
	"Summary",
	"Sentiment",
	"Hashtags",
	"Key Points",
	"Engagement",
	"Text",
	"Error",
}

// maxCellChars is the XLSX per-cell character limit.
const maxCellChars = 32767

func writeXLSX(out io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for i, it := range r.Items {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, it.Source)
		write(2, it.ContentType)
		write(3, it.State)
		if it.Model != nil {
			write(4, *it.Model)
		}
		write(5, it.Summary)
		write(6, it.Sentiment)
		write(7, joinTags(it.Hashtags))
		write(8, strings.Join(it.KeyPoints, "\n"))
		if it.Engagement != nil {
			write(9, *it.Engagement)
		}
		write(10, truncate(it.Text, maxCellChars))
		write(11, it.Error)
	}

	_ = f.SetColWidth(sheet, "A", "A", 40) // source
	_ = f.SetColWidth(sheet, "B", "D", 18)
	_ = f.SetColWidth(sheet, "E", "E", 60) // summary
	_ = f.SetColWidth(sheet, "F", "G", 22)
	_ = f.SetColWidth(sheet, "H", "H", 48) // key points
	_ = f.SetColWidth(sheet, "J", "J", 80) // text
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	_, err := f.WriteTo(out)
	return err
}

func joinTags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, "#"+t)
	}
	return strings.Join(out, " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
