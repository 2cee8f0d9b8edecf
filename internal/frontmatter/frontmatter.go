// Package frontmatter splits, parses, and reassembles the YAML front matter
// block of a Markdown post.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a front
// matter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// Style captures the newline shape of a document so a rewrite via Join keeps
// the file byte-stable apart from the intended change.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// DefaultStyle is used when generating documents from scratch.
var DefaultStyle = Style{Newline: "\n", HasTrailingNewline: true}

// Split separates YAML front matter (`---` delimited) from the Markdown body.
// If the document does not start with a front matter delimiter, had is false
// and body is the full input.
func Split(content []byte) (raw []byte, body []byte, had bool, style Style, err error) {
	style = detectStyle(content)
	delim := []byte("---" + style.Newline)

	rest, ok := bytes.CutPrefix(content, delim)
	if !ok {
		return nil, content, false, style, nil
	}
	// Empty block: the closing delimiter directly follows the opener.
	if after, ok := bytes.CutPrefix(rest, delim); ok {
		return []byte{}, after, true, style, nil
	}

	idx := bytes.Index(rest, []byte(style.Newline+"---"+style.Newline))
	if idx < 0 {
		return nil, nil, false, style, ErrMissingClosingDelimiter
	}
	raw = rest[:idx+len(style.Newline)]
	body = rest[idx+len(style.Newline)+len(delim):]
	return raw, body, true, style, nil
}

// Join reassembles a document from raw front matter and body, restoring the
// newline shape Split detected. If had is false, the body is returned with
// only the trailing-newline style applied.
func Join(raw []byte, body []byte, had bool, style Style) []byte {
	nl := style.Newline
	if nl == "" {
		nl = "\n"
	}

	var out []byte
	if had {
		delim := []byte("---" + nl)
		out = make([]byte, 0, 2*len(delim)+len(raw)+len(body))
		out = append(out, delim...)
		out = append(out, raw...)
		out = append(out, delim...)
		out = append(out, body...)
	} else {
		out = append(out, body...)
	}

	if style.HasTrailingNewline && !bytes.HasSuffix(out, []byte("\n")) {
		out = append(out, nl...)
	}
	return out
}

// ParseYAML parses raw YAML front matter (without --- delimiters) into a map.
func ParseYAML(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func detectStyle(content []byte) Style {
	newline := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		newline = "\r\n"
	}
	return Style{
		Newline:            newline,
		HasTrailingNewline: bytes.HasSuffix(content, []byte("\n")),
	}
}
