package builtin

import (
	"context"
	"strings"
	"testing"

	"git.home.luguber.info/inful/blogforge/internal/plugin"
)

func TestMarkdownTransformsMarkdownFiles(t *testing.T) {
	d := Markdown()

	res, err := d.Transform(context.Background(), &plugin.TransformInput{
		Path:    "posts/hello.md",
		Content: []byte("# Hello\n\nSome *text*.\n"),
	})
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if res == nil {
		t.Fatal("markdown plugin must claim .md files")
	}
	html := string(res.Content)
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "<em>text</em>") {
		t.Errorf("unexpected html: %s", html)
	}
}

func TestMarkdownDeclinesOtherFiles(t *testing.T) {
	d := Markdown()

	res, err := d.Transform(context.Background(), &plugin.TransformInput{
		Path:    "style.css",
		Content: []byte("body {}"),
	})
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if res != nil {
		t.Error("markdown plugin must decline non-markdown files")
	}
}

func TestMarkdownRewritesRelativeLinks(t *testing.T) {
	d := Markdown()

	res, err := d.Transform(context.Background(), &plugin.TransformInput{
		Path:    "index.md",
		Content: []byte("[react](./react-basics.md) [ext](https://example.com/a.md) [anchor](./deep.md#hmr)\n"),
	})
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	html := string(res.Content)
	if !strings.Contains(html, `href="./react-basics.html"`) {
		t.Errorf("relative .md link not rewritten: %s", html)
	}
	if !strings.Contains(html, `href="https://example.com/a.md"`) {
		t.Errorf("external link must not be rewritten: %s", html)
	}
	if !strings.Contains(html, `href="./deep.html#hmr"`) {
		t.Errorf("fragment must be preserved: %s", html)
	}
}

func TestMarkdownRendersGFMTables(t *testing.T) {
	d := Markdown()

	res, err := d.Transform(context.Background(), &plugin.TransformInput{
		Path:    "table.md",
		Content: []byte("| a | b |\n|---|---|\n| 1 | 2 |\n"),
	})
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if !strings.Contains(string(res.Content), "<table>") {
		t.Errorf("GFM table not rendered: %s", res.Content)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"React 基础入门", "react-基础入门"},
		{"Café au Lait!", "cafe-au-lait"},
		{"  spaced  out  ", "spaced-out"},
		{"already-slugged", "already-slugged"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
