package export

import (
	"time"

	"github.com/joseph-ayodele/docinsight/internal/common"
	"github.com/joseph-ayodele/docinsight/internal/pipeline"
)

// Report is the batch output of the analyze and watch commands.
type Report struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Items       []Item    `json:"items" yaml:"items"`
}

// Item flattens one pipeline result for export.
type Item struct {
	Source      string   `json:"source" yaml:"source"`
	ContentType string   `json:"content_type" yaml:"content_type"`
	SHA256      string   `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	State       string   `json:"state" yaml:"state"`
	Method      string   `json:"method,omitempty" yaml:"method,omitempty"`
	Pages       int      `json:"pages,omitempty" yaml:"pages,omitempty"`
	Text        string   `json:"text" yaml:"text"`
	Model       *string  `json:"model" yaml:"model"`
	Summary     string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Sentiment   string   `json:"sentiment,omitempty" yaml:"sentiment,omitempty"`
	Hashtags    []string `json:"hashtags" yaml:"hashtags"`
	KeyPoints   []string `json:"key_points" yaml:"key_points"`
	Engagement  *int     `json:"engagement_prediction" yaml:"engagement_prediction"`
	Error       string   `json:"error,omitempty" yaml:"error,omitempty"`
	ElapsedMS   int64    `json:"elapsed_ms" yaml:"elapsed_ms"`
}

// NewItem builds an Item from a processed document. A non-nil err marks
// the item failed; its message is client-safe.
func NewItem(source string, res pipeline.Result, err error, elapsed time.Duration) Item {
	it := Item{
		Source:      source,
		ContentType: string(res.ContentType),
		SHA256:      res.SHA256Hex,
		State:       string(res.State),
		Method:      res.Extraction.Method,
		Pages:       res.Extraction.Pages,
		Text:        res.Extraction.Text,
		Hashtags:    []string{},
		KeyPoints:   []string{},
		ElapsedMS:   elapsed.Milliseconds(),
	}
	if err != nil {
		it.Error = common.ClientMessage(err)
		if it.State == "" {
			it.State = "FAILED"
		}
		return it
	}
	if e := res.Enrichment; e != nil {
		model := e.Model
		it.Model = &model
		it.Summary = e.Insight.Summary
		it.Sentiment = string(e.Insight.Sentiment)
		if e.Insight.Hashtags != nil {
			it.Hashtags = e.Insight.Hashtags
		}
		if e.Insight.KeyPoints != nil {
			it.KeyPoints = e.Insight.KeyPoints
		}
		it.Engagement = e.Insight.Clamped()
	}
	return it
}
