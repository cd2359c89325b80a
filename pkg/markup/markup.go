// Package markup handles the small amount of HTML that lives inside record
// fields: line breaks, highlight spans and stray formatting.
package markup

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Strip returns the text content of s with all tags removed and entities
// decoded. <br> tags become spaces so adjacent lines do not run together.
func Strip(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF, or malformed input: keep what was decoded so far.
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				b.WriteByte(' ')
			}
		}
	}
}

// IsBlank reports whether s has no visible text.
func IsBlank(s string) bool {
	return strings.TrimSpace(Strip(s)) == ""
}

// Text is Strip followed by trimming surrounding whitespace.
func Text(s string) string {
	return strings.TrimSpace(Strip(s))
}

// MapText rewrites the text content of s with f and copies tags through
// unchanged. Text that f leaves as is keeps its original bytes, entities
// included. The first error from f is returned with s.
func MapText(s string, f func(string) (string, error)) (string, error) {
	if !strings.ContainsAny(s, "<&") {
		out, err := f(s)
		if err != nil {
			return s, err
		}
		return out, nil
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				return s, z.Err()
			}
			return b.String(), nil
		}
		// Text decodes in place, so keep a copy of the raw bytes.
		raw := string(z.Raw())
		if tt != html.TextToken {
			b.WriteString(raw)
			continue
		}
		text := string(z.Text())
		out, err := f(text)
		if err != nil {
			return s, err
		}
		if out == text {
			b.WriteString(raw)
		} else {
			b.WriteString(html.EscapeString(out))
		}
	}
}
