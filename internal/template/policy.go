package template

import "fmt"

// Mode selects what happens to each placeholder.
type Mode int

const (
	// ModeNormal resolves placeholders through Policy.Lookup.
	ModeNormal Mode = iota
	// ModeHelmOnly wraps placeholders for Helm without resolving them.
	ModeHelmOnly
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeHelmOnly:
		return "helm-only"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// LookupFunc resolves a variable name. The boolean reports whether the
// name is known; an empty value with true is a valid substitution.
type LookupFunc func(name string) (string, bool)

// Policy controls a single Process call.
type Policy struct {
	Mode   Mode
	Escape bool
	// Fallback replaces names the lookup does not know. Nil keeps the
	// placeholder verbatim.
	Fallback *string
	// Debug records a DebugEntry for every placeholder.
	Debug  bool
	Lookup LookupFunc
}

// DebugEntry describes one placeholder and what it was replaced with.
type DebugEntry struct {
	Index       int
	Original    string
	Replacement string
}

func (e DebugEntry) String() string {
	return fmt.Sprintf(`Found [%d], orig: "%s", apply with: "%s"`, e.Index, e.Original, e.Replacement)
}
