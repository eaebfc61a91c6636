package assist

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/storyforge/internal/project"
)

const systemPrompt = `You are a skilled fiction co-writer. Match the author's voice, tense and point of view. Stay consistent with the story notes you are given. Never mention that you are an AI and never add commentary around the text you produce.`

const continueTemplate = `Continue the chapter "%s" from exactly where it stops. Write roughly 250 words of new prose.
%s
Text so far:
"""
%s
"""`

const rewriteTemplate = `Rewrite the passage below. %s
Return only the rewritten passage.

Passage:
"""
%s
"""`

const brainstormTemplate = `Suggest five distinct ideas for the story below, one per line, each a single sentence.
Focus: %s

Title: %s
Genre: %s
Synopsis: %s
Outline:
%s`

const describeTemplate = `Write a vivid two-paragraph description of the %s "%s" for the story's world bible.
Existing notes: %s
%s`

const summarizeTemplate = `Summarize the chapter "%s" in three to five sentences. Mention every named character who acts in it.

Chapter:
"""
%s
"""`

// storyHeader gives every prompt the project frame.
func storyHeader(p *project.Project) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Story: %s", orDefault(Sanitize(p.Title, 200), "Untitled"))
	if genre := Sanitize(p.Genre, 100); genre != "" {
		fmt.Fprintf(&b, " (%s)", genre)
	}
	b.WriteString("\n")
	if synopsis := Sanitize(p.Synopsis, 2000); synopsis != "" {
		fmt.Fprintf(&b, "Synopsis: %s\n", synopsis)
	}
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
