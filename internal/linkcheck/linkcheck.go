// Package linkcheck verifies that internal links in generated HTML resolve to
// files the build actually emitted.
package linkcheck

import (
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	bferrors "git.home.luguber.info/inful/blogforge/internal/errors"
)

// Issue describes one broken internal link.
type Issue struct {
	// File is the HTML file containing the link, relative to the output dir.
	File string
	// URL is the link destination as written.
	URL string
	// Target is the resolved output-relative path that does not exist.
	Target string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: broken link %q (resolved to %s)", i.File, i.URL, i.Target)
}

// CheckDir walks outputDir, extracts links from every .html file, and returns
// the internal links whose targets are missing. External links are ignored.
func CheckDir(outputDir string) ([]Issue, error) {
	emitted := map[string]bool{}
	var htmlFiles []string

	err := filepath.WalkDir(outputDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(outputDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		emitted[rel] = true
		if strings.HasSuffix(rel, ".html") {
			htmlFiles = append(htmlFiles, rel)
		}
		return nil
	})
	if err != nil {
		return nil, bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "walking output directory").WithContext("dir", outputDir)
	}

	var issues []Issue
	for _, rel := range htmlFiles {
		file, err := os.Open(filepath.Join(outputDir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, bferrors.Wrap(err, bferrors.CategoryFileSystem, bferrors.SeverityError, "opening generated file").WithContext("file", rel)
		}
		links, err := ExtractLinks(file)
		_ = file.Close()
		if err != nil {
			return nil, bferrors.Wrap(err, bferrors.CategoryValidation, bferrors.SeverityError, "parsing generated HTML").WithContext("file", rel)
		}

		for _, link := range links {
			target, internal := resolveInternal(rel, link)
			if !internal {
				continue
			}
			if !emitted[target] && !emitted[path.Join(target, "index.html")] {
				issues = append(issues, Issue{File: rel, URL: link, Target: target})
			}
		}
	}
	return issues, nil
}

// ExtractLinks parses HTML and returns href/src destinations from a, img,
// link, and script elements, in document order.
func ExtractLinks(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			attr := ""
			switch n.Data {
			case "a", "link":
				attr = "href"
			case "img", "script":
				attr = "src"
			}
			if attr != "" {
				for _, a := range n.Attr {
					if a.Key == attr && a.Val != "" {
						links = append(links, a.Val)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

// resolveInternal resolves a link found in fromFile against the output tree.
// It reports internal=false for absolute URLs, anchors, and mailto links.
func resolveInternal(fromFile, link string) (target string, internal bool) {
	u, err := url.Parse(link)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	if u.Path == "" {
		// Pure fragment link inside the same document.
		return "", false
	}

	p := u.Path
	if path.IsAbs(p) {
		return strings.TrimPrefix(p, "/"), true
	}
	return path.Join(path.Dir(fromFile), p), true
}
