// Package builtin provides the plugin descriptors Blogforge registers before
// any user plugins: the goldmark Markdown renderer, the post-build link
// checker, and the build-event publisher.
package builtin

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/blogforge/internal/plugin"
)

// MarkdownName is the registered name of the Markdown renderer plugin.
const MarkdownName = "markdown"

// Markdown returns the built-in Markdown transform. It claims `.md` documents
// and renders their body to HTML with GFM extensions; relative `.md` links are
// rewritten to their output URLs during rendering. Non-Markdown documents are
// passed to the next plugin.
func Markdown() *plugin.Descriptor {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(&linkRewriter{}, 500)),
		),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	return &plugin.Descriptor{
		Name: MarkdownName,
		Transform: func(_ context.Context, in *plugin.TransformInput) (*plugin.TransformResult, error) {
			if !strings.HasSuffix(in.Path, ".md") {
				return nil, nil
			}
			var buf bytes.Buffer
			if err := md.Convert(in.Content, &buf); err != nil {
				return nil, fmt.Errorf("rendering %s: %w", in.Path, err)
			}
			return &plugin.TransformResult{Content: buf.Bytes()}, nil
		},
	}
}

// linkRewriter rewrites relative Markdown links (`./react-basics.md`) to the
// URLs the build emits (`./react-basics.html`). Absolute URLs and anchors are
// left alone.
type linkRewriter struct{}

func (linkRewriter) Transform(doc *gmast.Document, _ text.Reader, _ parser.Context) {
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		link, ok := n.(*gmast.Link)
		if !ok {
			return gmast.WalkContinue, nil
		}
		link.Destination = rewriteDestination(link.Destination)
		return gmast.WalkContinue, nil
	})
}

func rewriteDestination(dest []byte) []byte {
	s := string(dest)
	if strings.Contains(s, "://") || strings.HasPrefix(s, "#") || strings.HasPrefix(s, "mailto:") {
		return dest
	}
	base, fragment, _ := strings.Cut(s, "#")
	if !strings.HasSuffix(base, ".md") {
		return dest
	}
	out := strings.TrimSuffix(base, ".md") + ".html"
	if fragment != "" {
		out += "#" + fragment
	}
	return []byte(out)
}
