package identity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Honorifics are removed wherever they appear as a whole token.
var honorifics = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "mx": true, "miss": true,
	"dr": true, "doctor": true, "prof": true, "professor": true,
	"sir": true, "dame": true, "madam": true, "rev": true,
	"jr": true, "sr": true, "phd": true, "md": true,
}

// IsHonorific reports whether word, without a trailing period, is one of
// the honorifics Normalize removes ("Dr.", "mrs").
func IsHonorific(word string) bool {
	return honorifics[folder.String(strings.TrimSuffix(word, "."))]
}

var (
	// (she/her), (he/him), (they/them), (she/they) ...
	pronounPattern = regexp.MustCompile(`(?i)\s*\((?:she|he|they|xe|ze)(?:\s*/\s*(?:her|hers|him|his|them|they|she|he|xe|ze))*\)`)

	// Anything that is neither a letter, a digit nor whitespace.
	punctPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

var folder = cases.Fold()

// stripMarks removes combining diacritics ("José" -> "Jose").
func stripMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// IsEmail reports whether s looks like a bare e-mail address.
func IsEmail(s string) bool {
	s = strings.TrimPrefix(strings.TrimSpace(s), "mailto:")
	return emailPattern.MatchString(s)
}

// EmailToName turns "bob.smith@example.com" into "bob smith".
func EmailToName(email string) string {
	email = strings.TrimPrefix(strings.TrimSpace(email), "mailto:")
	local, _, _ := strings.Cut(email, "@")
	local, _, _ = strings.Cut(local, "+")
	return strings.Join(strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	}), " ")
}

// Normalize reduces a raw name to its comparison key:
//   - "Dr. José  Smith (he/him)" -> "jose smith"
//   - "Smith, Bob"               -> "bob smith"
//   - "bob.smith@example.com"    -> "bob smith"
//
// An empty result means the string carries no usable name.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if IsEmail(s) {
		s = EmailToName(s)
	}

	s = pronounPattern.ReplaceAllString(s, "")
	s = strings.Trim(s, `"'`)

	// "Last, First" -> "First Last"
	if last, first, ok := strings.Cut(s, ","); ok {
		last, first = strings.TrimSpace(last), strings.TrimSpace(first)
		if first != "" && last != "" && !strings.Contains(first, ",") {
			s = first + " " + last
		}
	}

	s = stripMarks(s)
	s = folder.String(s)
	s = punctPattern.ReplaceAllString(s, " ")

	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if honorifics[w] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// DisplayForm tidies a raw string for presentation without changing its
// spelling: pronouns and surrounding quotes go, whitespace collapses, and an
// e-mail address becomes a title-cased name.
func DisplayForm(raw string) string {
	s := strings.TrimSpace(raw)
	if IsEmail(s) {
		return titleCase(EmailToName(s))
	}
	s = pronounPattern.ReplaceAllString(s, "")
	s = strings.Trim(s, `"'`)
	return strings.Join(strings.Fields(s), " ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
