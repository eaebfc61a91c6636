package export

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/ziadkadry99/storyforge/internal/project"
)

// md renders author Markdown. Raw HTML in the source is dropped.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// Preview converts Markdown to HTML for display inside a page.
func Preview(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

var pageTemplate = template.Must(template.New("manuscript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { max-width: 40em; margin: 3em auto; font-family: Georgia, serif; line-height: 1.6; color: #222; }
h1 { text-align: center; }
h2 { margin-top: 3em; page-break-before: always; }
blockquote { color: #555; font-style: italic; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders the manuscript as a standalone HTML document.
func HTML(p *project.Project) ([]byte, error) {
	body, err := Preview(Markdown(p))
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	err = pageTemplate.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{p.Title, body})
	if err != nil {
		return nil, fmt.Errorf("executing page template: %w", err)
	}
	return out.Bytes(), nil
}
