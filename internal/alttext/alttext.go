package alttext

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLength is the longest alt text Normalize will produce, in runes.
const MaxLength = 140

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	prefixPattern     = regexp.MustCompile(`(?i)^(an?\s+)?(image|photo|picture)\s+of\s+`)
	articlePattern    = regexp.MustCompile(`(?i)^(an?|the)\s+`)
	filenamePattern   = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|svg)$`)
)

const edgeCutset = " \t\n\r\x00\x0b.,;:-"

// Normalize turns a raw provider caption into clean alt text. It strips
// markup and control characters, collapses whitespace, removes a leading
// "a/an image/photo/picture of" framing phrase together with the article
// that follows it, trims edge punctuation, truncates to MaxLength runes on
// a word boundary (then on sentence punctuation when one lies past the
// midpoint), and capitalizes the first letter. Pure and deterministic;
// applying it twice gives the same result as applying it once.
func Normalize(caption string) string {
	text := tagPattern.ReplaceAllString(caption, " ")
	text = stripControl(text)
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if stripped := prefixPattern.ReplaceAllString(text, ""); stripped != text {
		text = articlePattern.ReplaceAllString(stripped, "")
	}

	text = strings.Trim(text, edgeCutset)
	text = truncate(text)
	text = capitalize(text)
	return strings.TrimSpace(text)
}

// IsUsable reports whether alt text passes the minimal quality gate: at
// least five characters and not a bare filename with an image extension.
// A cheap heuristic, not full validation.
func IsUsable(alt string) bool {
	alt = strings.TrimSpace(alt)
	if utf8.RuneCountInString(alt) < 5 {
		return false
	}
	return !filenamePattern.MatchString(alt)
}

// truncate cuts text to MaxLength runes, backing up to the last space and
// then to the last sentence-ending punctuation mark past the midpoint so a
// hard cut does not strand a trailing fragment.
func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxLength {
		return text
	}
	runes = runes[:MaxLength]
	if idx := lastIndexRune(runes, ' '); idx > 0 {
		runes = runes[:idx]
	}
	sentence := -1
	for _, mark := range []rune{'.', '!', '?'} {
		if idx := lastIndexRune(runes, mark); idx > sentence {
			sentence = idx
		}
	}
	if sentence > len(runes)/2 {
		runes = runes[:sentence+1]
	}
	return string(runes)
}

func lastIndexRune(runes []rune, target rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == target {
			return i
		}
	}
	return -1
}

func stripControl(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, text)
}

func capitalize(text string) string {
	if text == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(text)
	if first == utf8.RuneError {
		return text
	}
	return string(unicode.ToUpper(first)) + text[size:]
}
