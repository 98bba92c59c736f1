package template

import "strings"

const (
	helmOpen  = "{{`"
	helmClose = "`}}"
)

// form tells a bare placeholder apart from one already wrapped for Helm.
type form int

const (
	formBare form = iota
	formWrapped
)

func classify(text string, m Match) form {
	if strings.HasSuffix(text[:m.Start], helmOpen) && strings.HasPrefix(text[m.End:], helmClose) {
		return formWrapped
	}
	return formBare
}

// Process replaces every placeholder of input according to p and returns
// the new text. The trace is only populated when p.Debug is set.
//
// Input is consumed once, left to right; replacement text is never scanned
// again.
func Process(input string, p Policy) (string, []DebugEntry) {
	if input == "" {
		return "", nil
	}

	var out strings.Builder
	out.Grow(len(input))
	var trace []DebugEntry

	last, index := 0, 0
	for m := range Scan(input) {
		out.WriteString(input[last:m.Start])

		replacement := p.replacement(input, m)
		if p.Debug {
			trace = append(trace, DebugEntry{Index: index, Original: m.Text, Replacement: replacement})
		}

		out.WriteString(replacement)
		last = m.End
		index++
	}
	out.WriteString(input[last:])

	return out.String(), trace
}

func (p Policy) replacement(input string, m Match) string {
	if p.Mode == ModeHelmOnly {
		if classify(input, m) == formWrapped {
			return m.Text
		}
		return helmOpen + "{{" + m.Name + "}}" + helmClose
	}

	value, ok := p.lookup(m.Name)
	if !ok {
		if p.Fallback == nil {
			return m.Text
		}
		value = *p.Fallback
	}
	if p.Escape {
		return Escape(value)
	}
	return value
}

func (p Policy) lookup(name string) (string, bool) {
	if p.Lookup == nil {
		return "", false
	}
	return p.Lookup(name)
}

// Unresolved returns the names a normal-mode Process call with p would leave
// untouched because neither the lookup nor a fallback supplies a value.
func Unresolved(input string, p Policy) []string {
	if p.Mode == ModeHelmOnly || p.Fallback != nil {
		return nil
	}
	var missing []string
	for _, name := range Names(input) {
		if _, ok := p.lookup(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
