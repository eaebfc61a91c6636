package router

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"strings"

	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/session"
)

var fallbackTemplate = template.Must(template.New("fallback").Parse(`<section class="failure">
<h2>This page could not be shown</h2>
<p>{{.Message}}</p>
<p>The details were logged.</p>
<p><a class="button" href="{{.Home}}">Return to the dashboard</a></p>
</section>`))

// DefaultFallback renders a short failure notice with a link home.
func DefaultFallback(_ context.Context, _ *Request, rec *session.ErrorRecord) (Output, error) {
	var buf bytes.Buffer
	err := fallbackTemplate.Execute(&buf, struct {
		Message string
		Home    string
	}{rec.Message, nav.Home().URL()})
	if err != nil {
		return Output{}, err
	}
	return Output{
		Title:  "Something went wrong",
		Body:   template.HTML(buf.String()),
		Status: http.StatusInternalServerError,
	}, nil
}

const staticPage = `<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>storyforge</title></head>
<body><h1>storyforge</h1><p>%s</p><p><a href="/?page=home">Return to the dashboard</a></p></body></html>`

// StaticPage is the last-resort output: a complete document that uses no
// templates and cannot fail.
func StaticPage(message string) Output {
	if message == "" {
		message = genericFailure
	}
	return Output{
		Title:      "storyforge",
		Body:       template.HTML(strings.Replace(staticPage, "%s", template.HTMLEscapeString(message), 1)),
		Status:     http.StatusInternalServerError,
		Standalone: true,
	}
}
