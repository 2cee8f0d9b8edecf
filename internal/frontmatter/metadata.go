package frontmatter

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Metadata holds the typed front matter fields Blogforge understands.
// Unknown fields are preserved in Extra so plugins can read them.
type Metadata struct {
	Title       string
	Date        time.Time
	Author      string
	Tags        []string
	Description string
	Draft       bool
	Slug        string

	Extra map[string]any
}

// dateLayouts are accepted front matter date formats, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseMetadata parses raw YAML front matter into typed Metadata.
func ParseMetadata(raw []byte) (*Metadata, error) {
	fields, err := ParseYAML(raw)
	if err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}

	meta := &Metadata{Extra: map[string]any{}}
	for key, value := range fields {
		switch key {
		case "title":
			meta.Title = asString(value)
		case "author":
			meta.Author = asString(value)
		case "description":
			meta.Description = asString(value)
		case "slug":
			meta.Slug = asString(value)
		case "draft":
			if b, ok := value.(bool); ok {
				meta.Draft = b
			}
		case "date":
			d, err := parseDate(value)
			if err != nil {
				return nil, fmt.Errorf("front matter date: %w", err)
			}
			meta.Date = d
		case "tags":
			meta.Tags = asStringSlice(value)
		default:
			meta.Extra[key] = value
		}
	}

	return meta, nil
}

// Serialize renders the metadata back to YAML, typed fields first, Extra after.
func (m *Metadata) Serialize() ([]byte, error) {
	out := map[string]any{}
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.Title != "" {
		out["title"] = m.Title
	}
	if !m.Date.IsZero() {
		out["date"] = m.Date.Format("2006-01-02")
	}
	if m.Author != "" {
		out["author"] = m.Author
	}
	if len(m.Tags) > 0 {
		out["tags"] = m.Tags
	}
	if m.Description != "" {
		out["description"] = m.Description
	}
	if m.Slug != "" {
		out["slug"] = m.Slug
	}
	if m.Draft {
		out["draft"] = true
	}
	return yaml.Marshal(out)
}

func parseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, v); err == nil {
				return d, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", v)
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", value)
	}
}

func asString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func asStringSlice(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
