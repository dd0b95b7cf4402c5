package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that do not decompose into base + combining mark under NFD.
var transliterations = map[rune]string{
	'ß': "ss", 'æ': "ae", 'Æ': "ae", 'ø': "o", 'Ø': "o", 'œ': "oe", 'Œ': "oe",
	'ł': "l", 'Ł': "l", 'đ': "d", 'Đ': "d", 'ð': "d", 'Ð': "d", 'þ': "th", 'Þ': "th",
	'ı': "i", 'ħ': "h", 'Ħ': "h",
}

// stripMarks removes combining diacritics: München -> Munchen.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slugify derives a URL-safe identifier from a display name. Accents are
// stripped, letters lowercased and every run of other characters becomes a
// single hyphen. Letters outside Latin script are kept as-is.
func Slugify(name string) string {
	name = stripMarks(Sanitize(name))

	var b strings.Builder
	b.Grow(len(name))
	pendingHyphen := false
	for _, r := range name {
		var piece string
		switch {
		case transliterations[r] != "":
			piece = transliterations[r]
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			piece = string(unicode.ToLower(r))
		default:
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteString(piece)
	}
	return b.String()
}
