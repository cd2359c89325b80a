package errs

import (
	"fmt"
	"strings"
)

// Collection accumulates independent failures. It is itself an error, but
// only once it holds something: use ErrOrNil to hand it to a caller.
//
// The zero value is ready to use.
type Collection struct {
	items []error
}

// Append adds err. Nil errors and empty collections are ignored; non-empty
// collections are kept as is and flattened on read.
func (c *Collection) Append(err error) {
	if err == nil {
		return
	}
	if nested, ok := err.(*Collection); ok {
		if nested == nil || nested.Len() == 0 {
			return
		}
	}
	c.items = append(c.items, err)
}

// Errors returns every failure with nested collections flattened.
func (c *Collection) Errors() []error {
	if c == nil {
		return nil
	}
	var out []error
	for _, e := range c.items {
		if nested, ok := e.(*Collection); ok {
			out = append(out, nested.Errors()...)
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len is the number of flattened failures.
func (c *Collection) Len() int {
	return len(c.Errors())
}

// Messages returns the distinct failure messages in order of first occurrence.
func (c *Collection) Messages() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range c.Errors() {
		m := e.Error()
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// Error renders a single failure as its own message and several as a
// numbered report.
func (c *Collection) Error() string {
	msgs := c.Messages()
	switch len(msgs) {
	case 0:
		return "no errors"
	case 1:
		return msgs[0]
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, m)
	}
	return b.String()
}

// Unwrap exposes the flattened failures to errors.Is and errors.As.
func (c *Collection) Unwrap() []error {
	return c.Errors()
}

// ErrOrNil returns c when it holds failures and nil otherwise.
func (c *Collection) ErrOrNil() error {
	if c == nil || c.Len() == 0 {
		return nil
	}
	return c
}
