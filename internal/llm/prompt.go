package llm

import "strings"

const promptTemplate = `You are an expert in social media content optimization.
Analyze the user content below and generate a response strictly in JSON format:

{
  "summary": "short explanation of the content",
  "sentiment": "Positive | Neutral | Negative",
  "hashtags": ["keyword1", "keyword2", "keyword3"],
  "key_points": ["suggestion1", "suggestion2"],
  "engagement_prediction": 0
}

Rules:
- Use only DOUBLE QUOTES
- NO markdown, NO backticks, NO codeblock
- hashtags must NOT include '#'
- engagement_prediction must be an integer between 0-100

Content:
`

// maxPromptChars caps the text sent to the provider; extraction can be far
// larger than what a single request should carry.
const maxPromptChars = 60000

// BuildPrompt joins the fixed instruction template with the extracted text.
func BuildPrompt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > maxPromptChars {
		cut := maxPromptChars
		// don't split a UTF-8 sequence
		for cut > 0 && !isRuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "\n…(truncated)"
	}
	return promptTemplate + text
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
