package converter

import (
	"strings"
)

// PageSeparator is written between pages of a converted document.
const PageSeparator = "\n\n---\n\n"

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// normalizeText trims trailing whitespace from every line and collapses runs
// of blank lines into one.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var b strings.Builder
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\f\v\u00a0")
		if line == "" {
			blank++
			continue
		}
		if b.Len() > 0 {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		blank = 0
		b.WriteString(line)
	}
	return b.String()
}

// joinPages joins non-empty page texts with PageSeparator, prefixed by a
// title heading when one is known.
func joinPages(title string, pages []string) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}

	body := strings.Join(parts, PageSeparator)
	if title = strings.TrimSpace(title); title != "" {
		return "# " + title + "\n\n" + body
	}
	return body
}

// stripFences removes a Markdown code fence wrapped around model output.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```markdown")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// isRefusal reports whether model output is a refusal rather than content.
func isRefusal(content string) bool {
	lower := strings.ToLower(content)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
