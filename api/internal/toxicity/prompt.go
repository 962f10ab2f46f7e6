package toxicity

import (
	"fmt"
	"strings"
)

// The user text is embedded verbatim inside double quotes; quotes in the text
// are not escaped.
const detectTemplate = `Analyze this text for toxicity:
Text: "%s"

Respond with JSON format:
{
    "is_toxic": true/false,
    "score": 0.0-1.0,
    "reason": "brief explanation",
    "categories": ["list of issues found"]
}`

const rewriteTemplate = `Rewrite this message to be %s and respectful while keeping the same meaning:

Original: "%s"

Provide only the rewritten text, nothing else.`

func DetectPrompt(text string) string {
	return fmt.Sprintf(detectTemplate, text)
}

func RewritePrompt(text string, tone Tone) string {
	if tone == "" {
		tone = Professional
	}
	return fmt.Sprintf(rewriteTemplate, strings.ToLower(string(tone)), text)
}
