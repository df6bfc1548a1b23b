package llm

import (
	"context"
	"encoding/json"

	"github.com/joseph-ayodele/docinsight/constants"
)

// ModelDescriptor is one entry of the provider's model directory.
type ModelDescriptor struct {
	Name                       string   `json:"name"` // e.g. "models/gemini-2.5-flash"
	DisplayName                string   `json:"displayName,omitempty"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// Supports reports whether the model advertises the given generation method.
func (m ModelDescriptor) Supports(method string) bool {
	for _, s := range m.SupportedGenerationMethods {
		if s == method {
			return true
		}
	}
	return false
}

// StructuredInsight is the validated analysis of a document's text.
type StructuredInsight struct {
	Summary              string              `json:"summary"`
	Sentiment            constants.Sentiment `json:"sentiment"`
	Hashtags             []string            `json:"hashtags"`   // bare keywords, no leading '#'
	KeyPoints            []string            `json:"key_points"` // improvement suggestions
	EngagementPrediction *int                `json:"engagement_prediction"`
}

// Clamped returns the engagement score forced into [0,100], or nil when the model gave none.
func (s StructuredInsight) Clamped() *int {
	if s.EngagementPrediction == nil {
		return nil
	}
	v := min(max(*s.EngagementPrediction, 0), 100)
	return &v
}

// MarshalJSON keeps arrays as [] and applies the engagement clamp.
func (s StructuredInsight) MarshalJSON() ([]byte, error) {
	type plain StructuredInsight
	p := plain(s)
	if p.Hashtags == nil {
		p.Hashtags = []string{}
	}
	if p.KeyPoints == nil {
		p.KeyPoints = []string{}
	}
	p.EngagementPrediction = s.Clamped()
	return json.Marshal(p)
}

// EnrichmentResult exists only when every enrichment step succeeded.
type EnrichmentResult struct {
	Raw     string            `json:"raw"`
	Insight StructuredInsight `json:"structured"`
	Model   string            `json:"model"`
}

// ModelDirectory lists the models a credential can use for structured generation.
type ModelDirectory interface {
	ListCapableModels(ctx context.Context, credential string) ([]ModelDescriptor, error)
}

// Enricher sends one generation request and returns the model's raw text output.
type Enricher interface {
	Enrich(ctx context.Context, text, modelID, credential string) (string, error)
}
