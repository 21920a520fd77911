package notes

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

type lineKind int

const (
	lineBlank lineKind = iota
	lineStamp
	lineHeading
	lineLabeled
	lineBullet
	lineText
)

type line struct {
	no      int // 1-based
	text    string
	kind    lineKind
	heading string
	lbl     label
	stamp   time.Duration
}

var (
	markdownHeading = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*$`)
	boldHeading     = regexp.MustCompile(`^\*\*([^*]+)\*\*$`)

	// "Jul 3, 2025", "July 3, 2025", "Thu, Jul 3, 2025"
	headerDate = regexp.MustCompile(`^(?:[A-Z][a-z]{2,8},?\s+)?([A-Z][a-z]{2,8})\.?\s+(\d{1,2}),\s+(\d{4})\b`)
)

// maxHeadingWords bounds how long a heading line may be.
const maxHeadingWords = 5

// Parse extracts the header, sections and turns of raw notes text. It never
// fails: text without recognisable dialogue yields Notes without turns.
func Parse(text string) *Notes {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]line, len(raw))
	for i, r := range raw {
		lines[i] = line{no: i + 1, text: strings.TrimSpace(r)}
	}

	n := &Notes{}
	body := parseHeader(lines, n)
	classify(lines[body:])
	n.Sections = sections(lines[body:])

	for _, s := range n.Sections {
		if s.Kind != SectionDialogue {
			continue
		}
		n.Turns = append(n.Turns, turns(lines[s.StartLine-1:s.EndLine])...)
	}
	return n
}

// parseHeader consumes a leading date line and the title line after it, the
// layout of generated meeting-notes documents. It returns the index of the
// first body line.
func parseHeader(lines []line, n *Notes) int {
	first := nextNonBlank(lines, 0)
	if first < 0 {
		return len(lines)
	}
	m := headerDate.FindStringSubmatch(lines[first].text)
	if m == nil {
		return 0
	}
	if d, ok := parseHeaderDate(m[1], m[2], m[3]); ok {
		n.Date = d
	}

	second := nextNonBlank(lines, first+1)
	if second < 0 {
		return len(lines)
	}
	if _, isLabel := matchLabel(lines[second].text); isLabel {
		return second
	}
	n.Title = lines[second].text
	return second + 1
}

func parseHeaderDate(month, day, year string) (time.Time, bool) {
	for _, layout := range []string{"Jan 2 2006", "January 2 2006"} {
		if t, err := time.Parse(layout, month+" "+day+" "+year); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func nextNonBlank(lines []line, from int) int {
	for i := from; i < len(lines); i++ {
		if lines[i].text != "" {
			return i
		}
	}
	return -1
}

// classify assigns every line its structural kind.
func classify(lines []line) {
	for i := range lines {
		l := &lines[i]
		prevBlank := i == 0 || lines[i-1].text == ""

		switch {
		case l.text == "":
			l.kind = lineBlank
		case markdownHeading.MatchString(l.text):
			l.kind = lineHeading
			l.heading = markdownHeading.FindStringSubmatch(l.text)[1]
		case boldHeading.MatchString(l.text):
			l.kind = lineHeading
			l.heading = strings.TrimSpace(boldHeading.FindStringSubmatch(l.text)[1])
		default:
			if d, ok := isTimestampLine(l.text); ok {
				l.kind, l.stamp = lineStamp, d
				continue
			}
			if isBullet(l.text) {
				l.kind = lineBullet
				continue
			}
			if lbl, ok := matchLabel(l.text); ok {
				l.kind, l.lbl = lineLabeled, lbl
				continue
			}
			if h, ok := colonHeading(l.text); ok {
				l.kind, l.heading = lineHeading, h
				continue
			}
			if prevBlank && titleLike(l.text) {
				l.kind, l.heading = lineHeading, l.text
				continue
			}
			l.kind = lineText
		}
	}
}

// colonHeading: a short line ending in a colon with nothing after it, such
// as "Action items:". Name-shaped ones were already taken as labels.
func colonHeading(s string) (string, bool) {
	if !strings.HasSuffix(s, ":") {
		return "", false
	}
	h := strings.TrimSpace(strings.TrimSuffix(s, ":"))
	if h == "" || len(strings.Fields(h)) > maxHeadingWords {
		return "", false
	}
	return h, true
}

// titleLike: a short line that starts upper-case and does not end like a
// sentence.
func titleLike(s string) bool {
	if len(strings.Fields(s)) > maxHeadingWords {
		return false
	}
	first := []rune(s)[0]
	if !unicode.IsUpper(first) {
		return false
	}
	last := []rune(s)[len([]rune(s))-1]
	return !strings.ContainsRune(".!?,;:…\"'”)", last)
}

// sections splits lines at headings and classifies each block. A block is
// dialogue when it has labeled lines and they make up at least half of its
// content (timestamps and blanks excluded). Once some dialogue block carries
// timestamps, blocks without any are not dialogue: in a timestamped
// transcript layout they hold "Topic: sentence" summaries.
func sections(lines []line) []Section {
	var out []Section
	var cur *Section

	closeCur := func() {
		if cur == nil {
			return
		}
		if cur.Labeled > 0 && cur.Labeled*2 >= cur.Content {
			cur.Kind = SectionDialogue
		} else {
			cur.Kind = SectionOther
		}
		out = append(out, *cur)
		cur = nil
	}

	for _, l := range lines {
		if l.kind == lineHeading {
			closeCur()
			cur = &Section{Heading: l.heading, StartLine: l.no, EndLine: l.no}
			continue
		}
		if cur == nil {
			if l.kind == lineBlank {
				continue
			}
			cur = &Section{StartLine: l.no}
		}
		cur.EndLine = l.no
		switch l.kind {
		case lineStamp:
			cur.Stamped++
		case lineLabeled:
			cur.Labeled++
			cur.Content++
			if l.lbl.hasOffset {
				cur.Stamped++
			}
		case lineBullet, lineText:
			cur.Content++
		}
	}
	closeCur()

	timed := false
	for _, s := range out {
		if s.Kind == SectionDialogue && s.Stamped > 0 {
			timed = true
		}
	}
	if timed {
		for i := range out {
			if out[i].Stamped == 0 {
				out[i].Kind = SectionOther
			}
		}
	}
	return out
}

// turns walks one dialogue section.
func turns(lines []line) []Turn {
	var out []Turn
	var cur *Turn
	var stamp time.Duration
	var stamped bool

	flush := func() {
		if cur != nil && cur.Text != "" {
			out = append(out, *cur)
		}
		cur = nil
	}
	start := func(lbl label, no int) {
		flush()
		cur = &Turn{Speaker: lbl.speaker, Addressees: lbl.addressees, Line: no}
		switch {
		case lbl.hasOffset:
			cur.Offset, cur.HasOffset = lbl.offset, true
			stamp, stamped = lbl.offset, true
		case stamped:
			cur.Offset, cur.HasOffset = stamp, true
		}
	}
	appendText := func(text string, no int) {
		head, rest := splitInline(text)
		if cur == nil {
			cur = &Turn{Line: no}
			if stamped {
				cur.Offset, cur.HasOffset = stamp, true
			}
		}
		cur.Text = joinText(cur.Text, head)
		for _, lbl := range rest {
			start(lbl, no)
			cur.Text = lbl.text
		}
	}

	for _, l := range lines {
		switch l.kind {
		case lineStamp:
			stamp, stamped = l.stamp, true
		case lineLabeled:
			start(l.lbl, l.no)
			appendText(l.lbl.text, l.no)
		case lineText, lineBullet:
			appendText(l.text, l.no)
		}
	}
	flush()
	return out
}

func joinText(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}
