package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.yaml.in/yaml/v3"

	"github.com/joseph-ayodele/docinsight/constants"
	"github.com/joseph-ayodele/docinsight/internal/common"
	"github.com/joseph-ayodele/docinsight/internal/extract"
	"github.com/joseph-ayodele/docinsight/internal/llm"
	"github.com/joseph-ayodele/docinsight/internal/pipeline"
)

func sampleReport() Report {
	score := 140
	enriched := pipeline.Result{
		ContentType: constants.ContentTypePDF,
		State:       constants.StateCompleted,
		Extraction:  extract.Result{Text: "Hello World", Method: "pdf-text", Pages: 1},
		Enrichment: &llm.EnrichmentResult{
			Model: "models/gemini-2.5-flash",
			Insight: llm.StructuredInsight{
				Summary:              "Greeting",
				Sentiment:            constants.SentimentPositive,
				Hashtags:             []string{"hello", "world"},
				KeyPoints:            []string{"Add emojis"},
				EngagementPrediction: &score,
			},
		},
	}
	plain := pipeline.Result{ContentType: constants.ContentTypePNG, State: constants.StateCompleted, Extraction: extract.Result{Text: "scan"}}
	failed := pipeline.Result{ContentType: constants.ContentTypePDF, State: constants.StateFailed}
	failErr := common.NewAppError(common.CodeExtractionFailed, "PDF extraction failed", errors.New("xref"))

	return Report{
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Items: []Item{
			NewItem("a.pdf", enriched, nil, 1500*time.Millisecond),
			NewItem("b.png", plain, nil, 0),
			NewItem("c.pdf", failed, failErr, 0),
		},
	}
}

func TestNewItem(t *testing.T) {
	r := sampleReport()

	a := r.Items[0]
	require.NotNil(t, a.Model)
	assert.Equal(t, "models/gemini-2.5-flash", *a.Model)
	require.NotNil(t, a.Engagement)
	assert.Equal(t, 100, *a.Engagement, "engagement is clamped on export")
	assert.Equal(t, int64(1500), a.ElapsedMS)

	b := r.Items[1]
	assert.Nil(t, b.Model)
	assert.Equal(t, []string{}, b.Hashtags)

	c := r.Items[2]
	assert.Equal(t, "FAILED", c.State)
	assert.Equal(t, "text extraction failed", c.Error)
	assert.NotContains(t, c.Error, "xref")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, ".yml": FormatYAML, "yaml": FormatYAML, "xlsx": FormatXLSX} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(nil).Write(&buf, FormatJSON, sampleReport()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	items := got["items"].([]any)
	require.Len(t, items, 3)
	second := items[1].(map[string]any)
	assert.Nil(t, second["model"])
	assert.Equal(t, []any{}, second["hashtags"])
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(nil).Write(&buf, FormatYAML, sampleReport()))

	var got Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Items, 3)
	assert.Equal(t, "a.pdf", got.Items[0].Source)
	assert.Equal(t, []string{"hello", "world"}, got.Items[0].Hashtags)
	require.NotNil(t, got.Items[0].Engagement)
	assert.Equal(t, 100, *got.Items[0].Engagement)
	assert.True(t, got.GeneratedAt.Equal(sampleReport().GeneratedAt))
}

func TestWrite_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(nil).Write(&buf, FormatXLSX, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "a.pdf", rows[1][0])
	assert.Equal(t, "#hello #world", rows[1][6])
	assert.Equal(t, "100", rows[1][8])
	assert.Equal(t, "text extraction failed", rows[3][10])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate("abcd", 3))
	assert.Equal(t, strings.Repeat("é", 2)+"…", truncate(strings.Repeat("é", 5), 3))
}
