package llm

import "strings"

// GenerateContentMethod is the capability a model needs for enrichment.
const GenerateContentMethod = "generateContent"

// SelectModel picks one model deterministically. Each preference is checked
// against the whole capable list before moving to the next; if none match,
// the first model whose name contains vendorMarker is used. It returns false
// when nothing matches, which callers treat as "enrichment unavailable".
func SelectModel(capable []ModelDescriptor, preferences []string, vendorMarker string) (string, bool) {
	for _, pref := range preferences {
		pref = strings.ToLower(strings.TrimSpace(pref))
		if pref == "" {
			continue
		}
		for _, m := range capable {
			if strings.Contains(strings.ToLower(m.Name), pref) {
				return m.Name, true
			}
		}
	}

	marker := strings.ToLower(strings.TrimSpace(vendorMarker))
	if marker == "" {
		return "", false
	}
	for _, m := range capable {
		if strings.Contains(strings.ToLower(m.Name), marker) {
			return m.Name, true
		}
	}
	return "", false
}
