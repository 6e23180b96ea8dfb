package cache

import (
	"net/url"
	"regexp"
	"strings"
)

var placeholderName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type segment struct {
	text        string
	placeholder bool
}

// Template is a parsed cache key template such as "products:q={search}|page={page}".
//
// Every rendered value is query-escaped, so it only contains characters from
// [A-Za-z0-9-_.~+%]. Adjacent placeholders must be separated by a literal that
// holds at least one character outside that set. Together these make Render
// injective: two different argument sets never produce the same key.
type Template struct {
	raw      string
	segments []segment
	names    []string
}

// ParseTemplate validates raw and returns the parsed template.
func ParseTemplate(raw string) (*Template, error) {
	if raw == "" {
		return nil, &KeyTemplateError{Template: raw, Reason: "template is empty"}
	}

	t := &Template{raw: raw}
	seen := map[string]bool{}

	var literal strings.Builder
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '}':
			return nil, &KeyTemplateError{Template: raw, Reason: "unbalanced '}'"}
		case '{':
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return nil, &KeyTemplateError{Template: raw, Reason: "unbalanced '{'"}
			}
			name := raw[i+1 : i+1+end]
			if !placeholderName.MatchString(name) {
				return nil, &KeyTemplateError{Template: raw, Placeholder: name, Reason: "invalid placeholder name"}
			}

			if len(t.segments) > 0 && t.segments[len(t.segments)-1].placeholder && !hasDelimiter(literal.String()) {
				return nil, &KeyTemplateError{
					Template:    raw,
					Placeholder: name,
					Reason:      "adjacent placeholders need a delimiter outside [A-Za-z0-9-_.~+%] between them",
				}
			}
			if literal.Len() > 0 {
				t.segments = append(t.segments, segment{text: literal.String()})
				literal.Reset()
			}

			t.segments = append(t.segments, segment{text: name, placeholder: true})
			if !seen[name] {
				seen[name] = true
				t.names = append(t.names, name)
			}
			i += end + 1
		default:
			literal.WriteByte(raw[i])
		}
	}
	if literal.Len() > 0 {
		t.segments = append(t.segments, segment{text: literal.String()})
	}

	return t, nil
}

// MustParseTemplate is like ParseTemplate but panics on error.
func MustParseTemplate(raw string) *Template {
	t, err := ParseTemplate(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) String() string { return t.raw }

// Placeholders returns the distinct placeholder names in order of first use.
func (t *Template) Placeholders() []string {
	return append([]string(nil), t.names...)
}

// Render substitutes args into the template. Every placeholder must be bound;
// extra args are ignored. A bound empty string is the canonical absent value.
func (t *Template) Render(args map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(t.raw) + 16*len(t.names))

	for _, seg := range t.segments {
		if !seg.placeholder {
			b.WriteString(seg.text)
			continue
		}
		v, ok := args[seg.text]
		if !ok {
			return "", &KeyTemplateError{Template: t.raw, Placeholder: seg.text, Reason: "placeholder is not bound"}
		}
		b.WriteString(url.QueryEscape(v))
	}

	return b.String(), nil
}

// Render parses template and renders it with args.
func Render(template string, args map[string]string) (string, error) {
	t, err := ParseTemplate(template)
	if err != nil {
		return "", err
	}
	return t.Render(args)
}

func hasDelimiter(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isKeyValueByte(s[i]) {
			return true
		}
	}
	return false
}

// isKeyValueByte reports whether c can appear in a query-escaped value.
func isKeyValueByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '~', '+', '%':
		return true
	}
	return false
}
