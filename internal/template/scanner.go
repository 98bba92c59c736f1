package template

import (
	"iter"
	"regexp"
)

// Unicode word characters and spaces, so {{ ČAS }} matches.
var placeholderRegex = regexp.MustCompile(`\{\{[\s\p{Z}]*([\p{L}\p{M}\p{Nd}\p{Pc}]+)[\s\p{Z}]*\}\}`)

// Match is one {{ NAME }} occurrence. Start and End are byte offsets of the
// whole placeholder including its braces.
type Match struct {
	Start int
	End   int
	Name  string
	// Text is the placeholder exactly as written, whitespace included.
	Text string
}

// Scan yields the placeholders of text from left to right. Matches never
// overlap and each call starts a fresh scan.
func Scan(text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		pos := 0
		for pos < len(text) {
			loc := placeholderRegex.FindStringSubmatchIndex(text[pos:])
			if loc == nil {
				return
			}
			m := Match{
				Start: pos + loc[0],
				End:   pos + loc[1],
				Name:  text[pos+loc[2] : pos+loc[3]],
			}
			m.Text = text[m.Start:m.End]
			if !yield(m) {
				return
			}
			pos = m.End
		}
	}
}

// Names returns the distinct placeholder names of text in first-seen order.
func Names(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for m := range Scan(text) {
		if seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		names = append(names, m.Name)
	}
	return names
}
