package gemini

import "github.com/joseph-ayodele/docinsight/internal/llm"

type listModelsResponse struct {
	Models        []llm.ModelDescriptor `json:"models"`
	NextPageToken string                `json:"nextPageToken,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float32        `json:"temperature"`
	MaxOutputTokens  int            `json:"maxOutputTokens"`
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	Error          *apiError       `json:"error,omitempty"`
}

type candidate struct {
	Content *struct {
		Parts []part `json:"parts"`
	} `json:"content,omitempty"`
	OutputText   string `json:"output_text,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// text returns the first non-empty generated text. Parts are preferred over
// the flat output_text field some response shapes use.
func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	c := r.Candidates[0]
	if c.Content != nil {
		for _, p := range c.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return c.OutputText
}
