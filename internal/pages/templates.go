package pages

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

var funcs = template.FuncMap{
	"action":   func(name string) string { return "/actions/" + name },
	"date":     formatDate,
	"money":    func(f float64) string { return fmt.Sprintf("$%.4f", f) },
	"title":    capitalize,
	"lines":    paragraphs,
	"joinTags": func(tags []string) string { return strings.Join(tags, ", ") },
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2 Jan 2006 15:04")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// paragraphs splits text on blank lines.
func paragraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var templates = template.Must(template.New("pages").Funcs(funcs).Parse(layoutTemplate + pageTemplates))

const layoutTemplate = `
{{define "layout"}}<!DOCTYPE html>
<html lang="en" class="theme-{{.Theme}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} · storyforge</title>
<style>
:root { --fg: #1f2328; --bg: #ffffff; --muted: #59636e; --panel: #f6f8fa; --accent: #8250df; --border: #d1d9e0; }
.theme-dark { --fg: #e6edf3; --bg: #0d1117; --muted: #9198a1; --panel: #151b23; --accent: #ab7df8; --border: #3d444d; }
body { margin: 0; font-family: system-ui, sans-serif; color: var(--fg); background: var(--bg); }
header { display: flex; gap: 1em; align-items: center; padding: .6em 1.2em; border-bottom: 1px solid var(--border); }
header .brand { font-weight: 700; color: var(--accent); }
nav a { margin-right: .9em; color: var(--muted); text-decoration: none; }
nav a.active { color: var(--fg); font-weight: 600; }
nav a.disabled { opacity: .45; }
main { max-width: 70em; margin: 1.5em auto; padding: 0 1.2em; }
textarea.manuscript { width: 100%; min-height: 28em; font-family: Georgia, serif; font-size: {{.FontSize}}px; line-height: 1.6; }
textarea, input[type=text], select { background: var(--panel); color: var(--fg); border: 1px solid var(--border); border-radius: 4px; padding: .35em; }
.columns { display: grid; grid-template-columns: 16em 1fr; gap: 1.5em; }
.panel { background: var(--panel); border: 1px solid var(--border); border-radius: 6px; padding: .8em 1em; margin-bottom: 1em; }
.notice { padding: .6em 1em; border-radius: 6px; margin-bottom: .6em; }
.notice-info { background: #ddf4ff; color: #0a3069; } .notice-success { background: #dafbe1; color: #116329; }
.notice-warning { background: #fff8c5; color: #7d4e00; } .notice-error { background: #ffebe9; color: #82071e; }
.muted { color: var(--muted); } .inline { display: inline; }
.debug pre { white-space: pre-wrap; font-size: 12px; max-height: 20em; overflow: auto; }
table { border-collapse: collapse; width: 100%; } td, th { text-align: left; padding: .3em .5em; border-bottom: 1px solid var(--border); }
</style>
</head>
<body>
<header>
<span class="brand">storyforge</span>
<nav>{{range .Menu}}<a href="{{.URL}}" class="{{if .Active}}active{{end}}{{if .Disabled}} disabled{{end}}">{{.Title}}</a>{{end}}</nav>
</header>
<main>
{{range .Notices}}<div class="notice notice-{{.Level}}" role="status">{{.Text}}</div>{{end}}
{{.Body}}
{{if .Debug}}
<section class="panel debug">
<h3>Debug</h3>
{{with .Debug.Record}}
<p><strong>Last error</strong> on <code>{{.Page}}</code> at {{date .At}}: {{.Message}}</p>
<pre>{{.Detail}}</pre>
<form method="post" action="{{action "debug.clear"}}"><button>Clear error</button></form>
{{else}}<p class="muted">No errors recorded in this session.</p>{{end}}
<p class="muted">Session {{.Debug.SessionID}} · {{.Debug.Provider}} / {{.Debug.Model}} · version {{.Debug.Version}}</p>
</section>
{{end}}
</main>
</body>
</html>
{{end}}

{{define "target"}}<input type="hidden" name="project" value="{{.ProjectID}}">{{if .ChapterID}}<input type="hidden" name="chapter" value="{{.ChapterID}}">{{end}}{{if .EntityID}}<input type="hidden" name="entity" value="{{.EntityID}}">{{end}}{{end}}

{{define "unavailable"}}
<section class="panel">
<h2>{{.Heading}}</h2>
<p>{{.Message}}</p>
<p><a href="{{.ProjectsURL}}">Go to your projects</a></p>
</section>
{{end}}

{{define "fallback"}}
<section class="panel failure">
<h2>This page could not be shown</h2>
<p>{{.Message}}</p>
<p class="muted">The details were logged{{if .Debug}} and are shown in the debug panel below{{end}}.</p>
<p><a href="{{.HomeURL}}">Return to the dashboard</a></p>
</section>
{{end}}
`

const pageTemplates = `
{{define "home"}}
<h1>Dashboard</h1>
{{if .Warnings}}<section class="panel"><h3>Configuration</h3><p class="muted">Some settings could not be read and use their defaults:</p>
<ul>{{range .Warnings}}<li>{{.}}</li>{{end}}</ul></section>{{end}}
<section class="panel">
<p><strong>{{.ProjectCount}}</strong> projects · <strong>{{.TotalWords}}</strong> words written</p>
{{if .Recent}}<h3>Recently edited</h3>
<ul>{{range .Recent}}<li>{{if .Corrupt}}{{.ID}} <span class="muted">(damaged)</span>{{else}}<a href="{{.URL}}">{{.Title}}</a> <span class="muted">{{.Words}} words · {{date .UpdatedAt}}</span>{{end}}</li>{{end}}</ul>
{{else}}<p>No projects yet. <a href="{{.ProjectsURL}}">Start one</a>.</p>{{end}}
</section>
{{with .Usage}}
<section class="panel">
<h3>AI usage</h3>
<p>{{.Requests}} requests · {{.Failures}} failed · {{.InputTokens}} in / {{.OutputTokens}} out tokens · {{money .CostUSD}}</p>
</section>
{{end}}
{{end}}

{{define "projects"}}
<h1>Projects</h1>
<section class="panel">
<h3>New project</h3>
<form method="post" action="{{action "project.create"}}">
<p><input type="text" id="{{.Keys.title}}" name="title" placeholder="Title" required>
<input type="text" id="{{.Keys.genre}}" name="genre" placeholder="Genre"></p>
<p><textarea id="{{.Keys.synopsis}}" name="synopsis" rows="3" cols="60" placeholder="Synopsis"></textarea></p>
<button>Create</button>
</form>
</section>
{{if .Projects}}
<table>
<tr><th>Title</th><th>Genre</th><th>Chapters</th><th>Words</th><th>Updated</th><th></th></tr>
{{range .Projects}}
<tr>
{{if .Corrupt}}<td colspan="5">{{.ID}} <span class="muted">damaged file, run storyforge repair</span></td><td></td>
{{else}}<td><a href="{{.URL}}">{{.Title}}</a></td><td>{{.Genre}}</td><td>{{.Chapters}}</td><td>{{.Words}}</td><td>{{date .UpdatedAt}}</td>
<td><form class="inline" method="post" action="{{action "project.delete"}}"><input type="hidden" name="project" value="{{.ID}}"><button id="{{.DeleteKey}}" onclick="return confirm('Delete this project?')">Delete</button></form></td>{{end}}
</tr>
{{end}}
</table>
{{else}}<p class="muted">No projects yet.</p>{{end}}
{{end}}

{{define "generation"}}
{{with .Generation}}
<section class="panel">
<h3>AI {{.Task}}</h3>
<div>{{range lines .Text}}<p>{{.}}</p>{{end}}</div>
<p class="muted">{{.Model}} · {{.InputTokens}} in / {{.OutputTokens}} out</p>
<form class="inline" method="post" action="{{action "generation.apply"}}">{{template "target" $.Target}}<button>{{$.ApplyLabel}}</button></form>
<form class="inline" method="post" action="{{action "generation.discard"}}">{{template "target" $.Target}}<button>Discard</button></form>
</section>
{{end}}
{{end}}

{{define "editor"}}
<h1>{{.Project.Title}}</h1>
<div class="columns">
<aside>
<section class="panel">
<h3>Chapters</h3>
<ol>{{range .Chapters}}<li>{{if .Active}}<strong>{{.Title}}</strong>{{else}}<a href="{{.URL}}">{{.Title}}</a>{{end}} <span class="muted">{{.Words}}</span></li>{{end}}</ol>
<form method="post" action="{{action "chapter.add"}}">{{template "target" .Target}}<input type="text" name="title" placeholder="New chapter title" size="14"><button id="{{.Keys.add}}">Add</button></form>
</section>
<section class="panel">
<h3>Story</h3>
<form method="post" action="{{action "project.update"}}">{{template "target" .Target}}
<p><input type="text" name="title" value="{{.Project.Title}}" size="18"></p>
<p><input type="text" name="genre" value="{{.Project.Genre}}" placeholder="Genre" size="18"></p>
<p><textarea name="synopsis" rows="4" cols="22" placeholder="Synopsis">{{.Project.Synopsis}}</textarea></p>
<p><textarea name="outline" rows="6" cols="22" placeholder="Outline">{{.Project.Outline}}</textarea></p>
<button id="{{.Keys.story}}">Save story details</button>
</form>
</section>
</aside>
<div>
{{with .Chapter}}
<form method="post" action="{{action "chapter.save"}}">{{template "target" $.Target}}
<p><input type="text" id="{{$.Keys.title}}" name="title" value="{{.Title}}" size="40"></p>
<p><textarea class="manuscript" id="{{$.Keys.content}}" name="content">{{.Content}}</textarea></p>
<p><textarea id="{{$.Keys.notes}}" name="notes" rows="3" cols="80" placeholder="Notes for this chapter">{{.Notes}}</textarea></p>
{{if .Summary}}<p class="muted">Summary: {{.Summary}}</p>{{end}}
<button id="{{$.Keys.save}}">Save chapter</button>
<span class="muted">{{$.Stats.Words}} words · grade {{$.Stats.Grade}} (ages {{$.Stats.Ages}}) · {{$.Stats.Minutes}} min read</span>
</form>
<form class="inline" method="post" action="{{action "chapter.move"}}">{{template "target" $.Target}}<input type="hidden" name="delta" value="-1"><button>Move up</button></form>
<form class="inline" method="post" action="{{action "chapter.move"}}">{{template "target" $.Target}}<input type="hidden" name="delta" value="1"><button>Move down</button></form>
<form class="inline" method="post" action="{{action "chapter.delete"}}">{{template "target" $.Target}}<button onclick="return confirm('Delete this chapter?')">Delete chapter</button></form>

<section class="panel">
<h3>AI assist</h3>
<form method="post" action="{{action "assist.generate"}}">{{template "target" $.Target}}
<select id="{{$.Keys.task}}" name="task">{{range $.Tasks}}<option value="{{.}}">{{title .}}</option>{{end}}</select>
<input type="text" id="{{$.Keys.instruction}}" name="instruction" placeholder="Direction (optional)" size="50">
<button id="{{$.Keys.generate}}">Generate</button>
</form>
</section>
{{template "generation" $.Gen}}
{{if $.Preview}}<section class="panel"><h3>Preview</h3>{{$.Preview}}</section>{{end}}
{{else}}
<p>This project has no chapters yet. Add one from the sidebar.</p>
{{end}}
</div>
</div>
{{end}}

{{define "worldbible"}}
<h1>World Bible · {{.Project.Title}}</h1>
<form method="post" action="{{action "worldbible.filter"}}">{{template "target" .Target}}
<select name="kind"><option value="">All entries</option>{{range .Kinds}}<option value="{{.}}"{{if eq (print .) $.Filter}} selected{{end}}>{{title (print .)}}</option>{{end}}</select>
<button>Filter</button>
</form>
<div class="columns">
<aside>
<section class="panel">
<ul>{{range .Entities}}<li>{{if .Active}}<strong>{{.Name}}</strong>{{else}}<a href="{{.URL}}">{{.Name}}</a>{{end}} <span class="muted">{{.Kind}}</span></li>{{else}}<li class="muted">Nothing here yet.</li>{{end}}</ul>
</section>
<section class="panel">
<h3>Add entry</h3>
<form method="post" action="{{action "entity.add"}}">{{template "target" .Target}}
<p><select name="kind">{{range .Kinds}}<option value="{{.}}">{{title (print .)}}</option>{{end}}</select></p>
<p><input type="text" name="name" placeholder="Name" size="18" required></p>
<p><textarea name="description" rows="3" cols="22" placeholder="Description"></textarea></p>
<p><input type="text" name="tags" placeholder="tags, comma separated" size="18"></p>
<button id="{{.Keys.add}}">Add</button>
</form>
</section>
</aside>
<div>
{{with .Entity}}
<section class="panel">
<form method="post" action="{{action "entity.save"}}">{{template "target" $.Target}}
<p><input type="text" id="{{$.Keys.name}}" name="name" value="{{.Name}}" size="30"> <span class="muted">{{.Kind}}</span></p>
<p><textarea id="{{$.Keys.description}}" name="description" rows="8" cols="70">{{.Description}}</textarea></p>
<p><input type="text" id="{{$.Keys.tags}}" name="tags" value="{{joinTags .Tags}}" size="40"></p>
<button id="{{$.Keys.save}}">Save entry</button>
</form>
<form class="inline" method="post" action="{{action "assist.generate"}}">{{template "target" $.Target}}<input type="hidden" name="task" value="describe"><input type="text" name="instruction" placeholder="Direction (optional)" size="30"><button id="{{$.Keys.describe}}">Describe with AI</button></form>
<form class="inline" method="post" action="{{action "entity.delete"}}">{{template "target" $.Target}}<button onclick="return confirm('Delete this entry?')">Delete</button></form>
</section>
{{template "generation" $.Gen}}
{{end}}
<section class="panel">
<h3>AI memory</h3>
<p class="muted">Facts the AI keeps in mind for every request in this project.</p>
<ul>{{range .Memory}}<li>{{.Text}} <form class="inline" method="post" action="{{action "memory.delete"}}">{{template "target" $.Target}}<input type="hidden" name="note" value="{{.ID}}"><button>Remove</button></form></li>{{end}}</ul>
<form method="post" action="{{action "memory.add"}}">{{template "target" .Target}}<input type="text" name="text" size="60" placeholder="e.g. Mara is left-handed"><button id="{{.Keys.memory}}">Remember</button></form>
</section>
</div>
</div>
{{end}}

{{define "export"}}
<h1>Export · {{.Project.Title}}</h1>
<form method="post" action="{{action "export.format"}}">{{template "target" .Target}}
<select id="{{.Keys.format}}" name="format">{{range .Formats}}<option value="{{.}}"{{if eq (print .) $.Format}} selected{{end}}>{{.}}</option>{{end}}</select>
<button>Choose</button>
</form>
<p><a class="button" href="{{.DownloadURL}}" id="{{.Keys.download}}">Download {{.Filename}}</a> <span class="muted">{{.Words}} words in {{.ChapterCount}} chapters</span></p>
<section class="panel"><h3>Preview</h3>{{.Preview}}</section>
{{end}}

{{define "settings"}}
<h1>Settings</h1>
{{if .Warnings}}<section class="panel"><h3>Configuration warnings</h3><ul>{{range .Warnings}}<li>{{.}}</li>{{end}}</ul></section>{{end}}
<section class="panel">
<h3>This session</h3>
<form method="post" action="{{action "settings.overrides"}}">
<p><label>Model <input type="text" id="{{.Keys.model}}" name="model" value="{{.Overrides.Model}}"></label>
<label>Temperature <input type="text" id="{{.Keys.temperature}}" name="temperature" value="{{printf "%.2f" .Overrides.Temperature}}" size="5"></label></p>
<button id="{{.Keys.overrides}}">Apply</button>
</form>
<form method="post" action="{{action "debug.toggle"}}"><button id="{{.Keys.debug}}">{{if .ShowDebug}}Hide{{else}}Show{{end}} debug panel</button></form>
</section>
<section class="panel">
<h3>Saved preferences</h3>
<form method="post" action="{{action "settings.save"}}">
<p><label>Theme <select name="theme"><option value="light"{{if eq .Config.Theme "light"}} selected{{end}}>light</option><option value="dark"{{if eq .Config.Theme "dark"}} selected{{end}}>dark</option></select></label>
<label>Editor font size <input type="text" name="editor_font_size" value="{{.Config.EditorFontSize}}" size="3"></label></p>
<p><label>Request timeout (s) <input type="text" name="request_timeout_seconds" value="{{.Config.RequestTimeoutSeconds}}" size="4"></label>
<label>Save cooldown (s) <input type="text" name="save_cooldown_seconds" value="{{.Config.SaveCooldownSeconds}}" size="4"></label>
<label>Generate cooldown (s) <input type="text" name="generate_cooldown_seconds" value="{{.Config.GenerateCooldownSeconds}}" size="4"></label></p>
<p><label><input type="checkbox" name="recall_enabled" value="true"{{if .Config.RecallEnabled}} checked{{end}}> Add world bible context to prompts</label></p>
<button id="{{.Keys.save}}">Save preferences</button>
</form>
</section>
<section class="panel">
<h3>Provider</h3>
<table>
<tr><td>Provider</td><td>{{.Config.Provider}}</td></tr>
<tr><td>Default model</td><td>{{.Config.Model}}</td></tr>
<tr><td>API key</td><td>{{if .MaskedKey}}{{.MaskedKey}}{{else}}<span class="muted">not set{{if .KeyEnv}}, export {{.KeyEnv}}{{end}}</span>{{end}}</td></tr>
<tr><td>Projects directory</td><td><code>{{.Config.ProjectsDir}}</code></td></tr>
<tr><td>Version</td><td>{{.Config.AppVersion}}</td></tr>
</table>
<p class="muted">Provider and key changes take effect after a restart (storyforge init).</p>
</section>
{{end}}
`
