package llm

import "github.com/joseph-ayodele/docinsight/constants"

// requiredFields are the top-level keys every insight must carry.
var requiredFields = []string{"summary", "sentiment", "hashtags", "key_points", "engagement_prediction"}

// ResponseSchema is the OpenAPI-subset schema sent as generationConfig.responseSchema.
// The provider treats it as a constraint hint, not a guarantee.
func ResponseSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": requiredFields,
		"properties": map[string]any{
			"summary":               map[string]any{"type": "string"},
			"sentiment":             map[string]any{"type": "string"},
			"hashtags":              map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"key_points":            map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"engagement_prediction": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		},
	}
}

// InsightJSONSchema is the stricter JSON-Schema used to validate model output locally.
func InsightJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             requiredFields,
		"properties": map[string]any{
			"summary":   map[string]any{"type": "string", "minLength": 1},
			"sentiment": map[string]any{"type": "string", "enum": constants.SentimentsAsStringSlice()},
			"hashtags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "minLength": 1, "pattern": `^[^#\s]`},
			},
			"key_points":            map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"engagement_prediction": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		},
	}
}
