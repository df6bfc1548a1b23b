package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docinsight/constants"
	"github.com/joseph-ayodele/docinsight/internal/common"
)

var reFence = regexp.MustCompile("(?i)```json|```")

// ExtractJSONObject strips code fences and slices raw to the span between the
// first '{' and the last '}'. It reports false when no such pair exists.
func ExtractJSONObject(raw string) (string, bool) {
	s := strings.TrimSpace(reFence.ReplaceAllString(raw, ""))
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// Sanitize turns untrusted model output into a StructuredInsight. The parsed
// document is validated against InsightJSONSchema; when it does not conform,
// fields are coerced one by one instead of rejecting the whole answer.
// Missing engagement stays nil and missing arrays become empty.
func Sanitize(raw string, logger *slog.Logger) (*StructuredInsight, error) {
	if logger == nil {
		logger = slog.Default()
	}

	slice, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, common.NewAppError(common.CodeMalformedEnrichmentOutput, "no JSON object in model output", common.ErrEmptyOutput)
	}
	doc, err := decodeJSON([]byte(slice))
	if err != nil {
		return nil, common.NewAppError(common.CodeMalformedEnrichmentOutput, "model output is not valid JSON", err)
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, common.NewAppError(common.CodeMalformedEnrichmentOutput, "model output is not a JSON object", common.ErrValidation)
	}

	insight, adjusted := coerceInsight(m)
	if vErr := validateInsight(doc); vErr != nil {
		logger.Warn("llm.sanitize.lenient_applied", "error", vErr, "adjusted", adjusted)
	}
	return insight, nil
}

func coerceInsight(m map[string]any) (*StructuredInsight, []string) {
	var adjusted []string
	note := func(s string) { adjusted = append(adjusted, s) }

	out := &StructuredInsight{
		Hashtags:  []string{},
		KeyPoints: []string{},
	}

	switch v := m["summary"].(type) {
	case string:
		out.Summary = strings.TrimSpace(v)
	case nil:
		note("summary(missing)")
	default:
		out.Summary = strings.TrimSpace(fmt.Sprint(v))
		note("summary(type)")
	}

	sentiment, _ := m["sentiment"].(string)
	s, ok := constants.CanonicalizeSentiment(sentiment)
	if !ok {
		note("sentiment(" + sentiment + "->" + string(s) + ")")
	}
	out.Sentiment = s

	for _, tag := range stringItems(m["hashtags"], true, note, "hashtags") {
		tag = strings.TrimSpace(strings.TrimLeft(tag, "#"))
		if tag != "" {
			out.Hashtags = append(out.Hashtags, tag)
		}
	}
	out.KeyPoints = append(out.KeyPoints, stringItems(m["key_points"], false, note, "key_points")...)

	out.EngagementPrediction = engagement(m["engagement_prediction"], note)

	for k := range m {
		if !isRequiredField(k) {
			note(k + "(unknown)")
		}
	}
	return out, adjusted
}

// stringItems reads an array of strings. A bare string is accepted too; for
// hashtags it is split on commas and whitespace.
func stringItems(v any, split bool, note func(string), field string) []string {
	var items []string
	switch t := v.(type) {
	case []any:
		for _, it := range t {
			switch s := it.(type) {
			case string:
				if s = strings.TrimSpace(s); s != "" {
					items = append(items, s)
				}
			case json.Number:
				items = append(items, s.String())
				note(field + "(item type)")
			default:
				note(field + "(item dropped)")
			}
		}
	case string:
		note(field + "(string)")
		if split {
			items = strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' })
		} else if s := strings.TrimSpace(t); s != "" {
			items = []string{s}
		}
	case nil:
		note(field + "(missing)")
	default:
		note(field + "(type)")
	}
	return items
}

func engagement(v any, note func(string)) *int {
	var f float64
	switch t := v.(type) {
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			note("engagement_prediction(unparsable)")
			return nil
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		if err != nil {
			note("engagement_prediction(unparsable)")
			return nil
		}
		f = n
		note("engagement_prediction(string)")
	case nil:
		note("engagement_prediction(missing)")
		return nil
	default:
		note("engagement_prediction(type)")
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		note("engagement_prediction(non-finite)")
		return nil
	}
	// bound before converting so huge values cannot overflow int
	f = math.Max(math.Min(math.Round(f), 1e6), -1e6)
	n := int(f)
	return &n
}

func isRequiredField(k string) bool {
	for _, f := range requiredFields {
		if f == k {
			return true
		}
	}
	return false
}
