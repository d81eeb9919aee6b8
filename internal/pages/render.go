package pages

import "strings"

// Values maps placeholder names to the functions producing their values.
// A function is only called if its placeholder occurs in the template.
type Values map[string]func() string

// Static returns a value function for a constant.
func Static(v string) func() string {
	return func() string { return v }
}

// Render substitutes every ${name} token whose name is in values, in a
// single left-to-right pass. Tokens with unknown names and an unterminated
// "${" are copied through unchanged. Each value function is called at most
// once per Render, so a placeholder repeated in the template renders the
// same value everywhere.
func Render(tmpl string, values Values) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	resolved := make(map[string]string, len(values))

	for {
		start := strings.Index(tmpl, "${")
		if start < 0 {
			b.WriteString(tmpl)
			break
		}
		b.WriteString(tmpl[:start])

		rest := tmpl[start+2:]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			b.WriteString(tmpl[start:])
			break
		}

		name := rest[:end]
		fn, ok := values[name]
		if !ok {
			// Unknown name: emit the opener and keep scanning inside the
			// token, so "${x${hostName}}" still substitutes hostName.
			b.WriteString("${")
			tmpl = rest
			continue
		}

		v, seen := resolved[name]
		if !seen {
			v = fn()
			resolved[name] = v
		}
		b.WriteString(v)
		tmpl = rest[end+1:]
	}

	return b.String()
}

// Placeholders returns the names of all ${name} tokens in tmpl, in order of
// first appearance.
func Placeholders(tmpl string) []string {
	var names []string
	seen := make(map[string]bool)

	for {
		start := strings.Index(tmpl, "${")
		if start < 0 {
			return names
		}
		rest := tmpl[start+2:]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return names
		}
		name := rest[:end]
		if strings.Contains(name, "${") {
			tmpl = rest
			continue
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		tmpl = rest[end+1:]
	}
}
