package notes

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hugogrimmett/meeting-analyser/identity"
)

// Speaker-label patterns. A name is one to five tokens; each starts with an
// upper-case letter, is a lower-case surname particle, or (after the first)
// a small number as in "Speaker 2".
const (
	nameToken = `\p{Lu}[\p{L}\p{M}'’.\-]*`
	particle  = `(?:van|von|de|der|den|da|di|du|del|della|la|le|dos|das|bin|ibn|al|y)`
	namePat   = nameToken + `(?:\s+(?:` + nameToken + `|` + particle + `|\d{1,3})){0,4}`
	listPat   = namePat + `(?:\s*(?:,|&|\band\b)\s*` + namePat + `)*`
	parenPat  = `\s*\(([^()]{1,40})\)`
)

var (
	// 00:00:00, 0:11, [00:01:02]
	timestampLine = regexp.MustCompile(`^\[?(\d{1,2}:\d{2}(?::\d{2})?)\]?$`)

	// Timestamp in front of a label: "00:01:02 Alice: hi", "0:11 : Alice : hi".
	timestampPrefix = regexp.MustCompile(`^\[?(\d{1,2}:\d{2}(?::\d{2})?)\]?(?:\s*[:\-–—]\s+|\s+)`)

	// Alice: hi / Alice (she/her): hi / Alice (to Bob): hi / Alice : hi
	colonLabel = regexp.MustCompile(`^(` + namePat + `)(?:` + parenPat + `)?\s*:(?:\s+(.*)|$)`)

	// Alice -> Bob, Carol: hi
	arrowLabel = regexp.MustCompile(`^(` + namePat + `)\s*(?:->|→|=>)\s*(` + listPat + `)\s*:(?:\s+(.*)|$)`)

	// [Alice] hi / [Alice]: hi
	bracketLabel = regexp.MustCompile(`^\[([^\[\]]{1,60})\]\s*:?(?:\s+(.*)|$)`)

	// **Alice**: hi / **Alice:** hi
	boldLabel = regexp.MustCompile(`^\*\*(` + namePat + `)(?:` + parenPat + `)?(?::\*\*|\*\*\s*:?)(?:\s+(.*)|$)`)

	// Alice - hi / Alice – hi
	dashLabel = regexp.MustCompile(`^(` + namePat + `)(?:` + parenPat + `)?\s+[-–—]\s+(.+)$`)

	// A further turn inside one line: "...Bob. Bob: Hi Alice".
	inlineLabel = regexp.MustCompile(`([.!?…])\s+(` + namePat + `)(?:` + parenPat + `)?\s*:\s+`)

	// Leading @mentions.
	mentionPrefix = regexp.MustCompile(`^(?:@([\p{L}\p{M}'’.\-]+)[,:]?\s*)+`)
	mentionToken  = regexp.MustCompile(`@([\p{L}\p{M}'’.\-]+)`)

	bulletPrefix = regexp.MustCompile(`^(?:[-*•▪◦]\s+|\d{1,2}[.)]\s+|\[[ xX]\]\s+)`)

	listSplit = regexp.MustCompile(`\s*(?:,|&|\band\b)\s*`)

	bracketName = regexp.MustCompile(`^` + namePat + `$`)
)

// label is a recognised speaker label on one line.
type label struct {
	speaker    string
	addressees []string
	text       string
	offset     time.Duration
	hasOffset  bool
}

// parseTimestamp reads "H:MM:SS" or "M:SS".
func parseTimestamp(s string) (time.Duration, bool) {
	parts := strings.Split(s, ":")
	var h, m, sec int
	var err error
	switch len(parts) {
	case 2:
		if m, err = strconv.Atoi(parts[0]); err != nil {
			return 0, false
		}
		if sec, err = strconv.Atoi(parts[1]); err != nil {
			return 0, false
		}
	case 3:
		if h, err = strconv.Atoi(parts[0]); err != nil {
			return 0, false
		}
		if m, err = strconv.Atoi(parts[1]); err != nil {
			return 0, false
		}
		if sec, err = strconv.Atoi(parts[2]); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if m > 59 && len(parts) == 3 || sec > 59 {
		return 0, false
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, true
}

// isTimestampLine reports a line that holds only a timestamp.
func isTimestampLine(line string) (time.Duration, bool) {
	m := timestampLine.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return parseTimestamp(m[1])
}

// isBullet reports list items; they never carry speaker labels.
func isBullet(line string) bool {
	return bulletPrefix.MatchString(line)
}

// matchLabel recognises a speaker label at the start of line.
func matchLabel(line string) (label, bool) {
	var l label
	if m := timestampPrefix.FindStringSubmatch(line); m != nil {
		if d, ok := parseTimestamp(m[1]); ok {
			l.offset, l.hasOffset = d, true
			line = line[len(m[0]):]
		}
	}
	if line == "" || isBullet(line) {
		return label{}, false
	}

	if m := arrowLabel.FindStringSubmatch(line); m != nil {
		l.speaker = m[1]
		l.addressees = splitNames(m[2])
		l.text = m[3]
		return finish(l), true
	}
	if m := colonLabel.FindStringSubmatch(line); m != nil {
		l.speaker = m[1]
		l.addressees = parenAddressees(m[2])
		l.text = m[3]
		return finish(l), true
	}
	if m := boldLabel.FindStringSubmatch(line); m != nil {
		l.speaker = m[1]
		l.addressees = parenAddressees(m[2])
		l.text = m[3]
		return finish(l), true
	}
	if m := bracketLabel.FindStringSubmatch(line); m != nil {
		name := strings.TrimSpace(m[1])
		if !bracketName.MatchString(name) {
			return label{}, false
		}
		l.speaker = name
		l.text = m[2]
		return finish(l), true
	}
	if m := dashLabel.FindStringSubmatch(line); m != nil {
		l.speaker = m[1]
		l.addressees = parenAddressees(m[2])
		l.text = m[3]
		return finish(l), true
	}
	return label{}, false
}

func finish(l label) label {
	l.speaker = strings.TrimSpace(l.speaker)
	l.text = strings.TrimSpace(l.text)
	if m := mentionPrefix.FindString(l.text); m != "" {
		for _, sm := range mentionToken.FindAllStringSubmatch(m, -1) {
			l.addressees = append(l.addressees, strings.TrimRight(sm[1], ".'’-"))
		}
	}
	return l
}

// parenAddressees reads "(to Bob and Carol)"; other parentheticals such as
// pronouns or affiliations carry no addressee.
func parenAddressees(paren string) []string {
	paren = strings.TrimSpace(paren)
	lower := strings.ToLower(paren)
	if !strings.HasPrefix(lower, "to ") {
		return nil
	}
	return splitNames(paren[3:])
}

func splitNames(s string) []string {
	var out []string
	for _, n := range listSplit.Split(s, -1) {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// splitInline cuts text at further labels following sentence-ending
// punctuation. The first piece keeps its punctuation. A period closing an
// honorific ("to Dr. Smith: he agreed") ends no sentence.
func splitInline(text string) (head string, rest []label) {
	var locs [][]int
	for _, loc := range inlineLabel.FindAllStringSubmatchIndex(text, -1) {
		if !afterHonorific(text, loc[2]) {
			locs = append(locs, loc)
		}
	}
	if len(locs) == 0 {
		return text, nil
	}

	head = strings.TrimSpace(text[:locs[0][3]])
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][3]
		}
		l := label{
			speaker: text[loc[4]:loc[5]],
			text:    text[loc[1]:end],
		}
		if loc[6] >= 0 {
			l.addressees = parenAddressees(text[loc[6]:loc[7]])
		}
		rest = append(rest, finish(l))
	}
	return head, rest
}

// afterHonorific reports whether the word ending at pos is an honorific.
func afterHonorific(text string, pos int) bool {
	if text[pos] != '.' {
		return false
	}
	words := strings.Fields(text[:pos])
	if len(words) == 0 {
		return false
	}
	return identity.IsHonorific(words[len(words)-1])
}
