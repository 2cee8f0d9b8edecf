package build

import (
	"html/template"
	"io"
	"time"

	"git.home.luguber.info/inful/blogforge/internal/config"
	"git.home.luguber.info/inful/blogforge/internal/frontmatter"
)

// pageData feeds the post page shell.
type pageData struct {
	Site        config.SiteConfig
	Title       string
	Author      string
	Date        time.Time
	Tags        []string
	Description string
	Content     template.HTML
	LiveReload  bool
}

// indexData feeds the generated index page.
type indexData struct {
	Site       config.SiteConfig
	Posts      []PostInfo
	LiveReload bool
}

// PostInfo is one entry on the generated index page.
type PostInfo struct {
	Title       string
	URL         string
	Date        time.Time
	Description string
	Tags        []string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Site.Language}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{if .Title}}{{.Title}} · {{end}}{{.Site.Title}}</title>
{{if .Description}}<meta name="description" content="{{.Description}}">{{end}}
{{if .Author}}<meta name="author" content="{{.Author}}">{{end}}
</head>
<body>
<header><nav><a href="{{.Site.BaseURL}}">{{.Site.Title}}</a></nav></header>
<main>
<article>
{{if .Title}}<h1>{{.Title}}</h1>{{end}}
{{if not .Date.IsZero}}<p class="meta"><time datetime="{{.Date.Format "2006-01-02"}}">{{.Date.Format "2006-01-02"}}</time>{{if .Author}} · {{.Author}}{{end}}</p>{{end}}
{{.Content}}
{{if .Tags}}<ul class="tags">{{range .Tags}}<li>{{.}}</li>{{end}}</ul>{{end}}
</article>
</main>
{{if .LiveReload}}<script src="/livereload.js"></script>{{end}}
</body>
</html>
`))

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="{{.Site.Language}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Site.Title}}</title>
{{if .Site.Description}}<meta name="description" content="{{.Site.Description}}">{{end}}
</head>
<body>
<header><h1>{{.Site.Title}}</h1>{{if .Site.Description}}<p>{{.Site.Description}}</p>{{end}}</header>
<main>
<ul class="posts">
{{range .Posts}}<li>
<a href="{{.URL}}">{{.Title}}</a>
{{if not .Date.IsZero}}<time datetime="{{.Date.Format "2006-01-02"}}">{{.Date.Format "2006-01-02"}}</time>{{end}}
{{if .Description}}<p>{{.Description}}</p>{{end}}
</li>
{{end}}</ul>
</main>
{{if .LiveReload}}<script src="/livereload.js"></script>{{end}}
</body>
</html>
`))

func renderPage(w io.Writer, site config.SiteConfig, meta *frontmatter.Metadata, content []byte, liveReload bool) error {
	data := pageData{
		Site:       site,
		Content:    template.HTML(content),
		LiveReload: liveReload,
	}
	if meta != nil {
		data.Title = meta.Title
		data.Author = meta.Author
		data.Date = meta.Date
		data.Tags = meta.Tags
		data.Description = meta.Description
	}
	return pageTemplate.Execute(w, data)
}

func renderIndex(w io.Writer, site config.SiteConfig, posts []PostInfo, liveReload bool) error {
	return indexTemplate.Execute(w, indexData{Site: site, Posts: posts, LiveReload: liveReload})
}
