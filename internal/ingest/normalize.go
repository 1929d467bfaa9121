package ingest

import (
	"regexp"
	"strings"
)

// OCR scans insert soft hyphens, zero-width characters and spurious line
// breaks inside words. These break date patterns ("15/01/\n2024") so the
// cleanup runs before any extraction.
var (
	invisibleChars = regexp.MustCompile("[­​‌‍\uFEFF]")
	hyphenBreak    = regexp.MustCompile(`(\p{L})-\n(\p{L})`)
	multiBlank     = regexp.MustCompile(`\n{3,}`)
	trailingSpace  = regexp.MustCompile(`[ \t]+\n`)
)

// Normalize cleans common OCR and encoding artifacts from document text
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, " ", " ")
	text = invisibleChars.ReplaceAllString(text, "")
	text = hyphenBreak.ReplaceAllString(text, "$1$2")
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = multiBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
