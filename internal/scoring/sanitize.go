package scoring

import (
	"regexp"
	"strings"
)

var (
	blockTag   = regexp.MustCompile(`(?i)</?(br|p|li|div|tr|ul|ol|h[1-6])\b[^>]*>`)
	anyTag     = regexp.MustCompile(`<[^>]*>`)
	apostrophe = strings.NewReplacer("'", "", "’", "", "`", "")
	disallowed = regexp.MustCompile(`[^\p{L}\p{N}\s.,;!?\-/+#&]`)
	// A dot only ends a sentence when whitespace or the end of text follows,
	// so tokens like "node.js" survive.
	sentenceDot = regexp.MustCompile(`\.(\s|$)`)
	clausePunct = regexp.MustCompile(`[,;!?]`)
	lineBreak   = regexp.MustCompile(`[\r\n]+`)
)

// Sanitize turns free text into the normalized form the scorer works on:
// markup is removed, the text is lower-cased, characters that cannot be part
// of a profile phrase become spaces, and clause punctuation is isolated as
// standalone tokens. Line breaks end a clause.
func Sanitize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	text = blockTag.ReplaceAllString(text, "\n")
	text = anyTag.ReplaceAllString(text, " ")
	text = strings.ToLower(text)
	text = apostrophe.Replace(text)
	text = disallowed.ReplaceAllString(text, " ")
	text = lineBreak.ReplaceAllString(text, " . ")
	text = sentenceDot.ReplaceAllString(text, " . $1")
	text = clausePunct.ReplaceAllStringFunc(text, func(p string) string { return " " + p + " " })

	return strings.Join(strings.Fields(text), " ")
}
