// Package template substitutes {{ NAME }} placeholders in arbitrary text.
//
// Only one placeholder form is recognized: two opening braces, optional
// whitespace, a name made of letters, digits and underscores, optional
// whitespace and two closing braces. Everything else, including other
// template syntax, passes through untouched.
//
// # Modes
//
// In ModeNormal each placeholder is resolved through the policy's lookup
// function:
//
//	p := template.Policy{Lookup: vars.Environ()}
//	out, _ := template.Process("Hello {{ USER }}", p)
//
// A missing name is replaced by the fallback when one is set, otherwise the
// placeholder is left exactly as written. With Escape set, substituted
// values are escaped for use inside JSON/YAML double-quoted strings.
//
// In ModeHelmOnly no lookup happens. Every placeholder is rewritten into a
// Go template string literal so that Helm renders it back as text:
//
//	{{FOO}}  ->  {{`{{FOO}}`}}
//
// Placeholders that are already wrapped this way are left alone, so running
// the transformation twice gives the same result as running it once.
package template
