package archie

import (
	"fmt"
	"strings"
)

// Source is one page fetched for grounding content.
type Source struct {
	Label string
	URL   string
}

// DefaultSources are fetched, in this order, for every query.
var DefaultSources = []Source{
	{Label: "Website", URL: "https://www.arcadia.edu/"},
	{Label: "Events", URL: "https://www.arcadia.edu/events/?mode=month"},
	{Label: "About", URL: "https://www.arcadia.edu/about-arcadia/"},
}

// Preamble is the persona instruction placed at the top of every prompt.
const Preamble = "System: You are ArchieAI an AI assistant for Arcadia University. " +
	"You are here to help students, faculty, and staff with any questions they may have about the university. " +
	"You were made by Eva Akselrad and Ab."

// buildPrompt composes the grounding prompt. texts[i] belongs to sources[i].
func buildPrompt(query string, sources []Source, texts []string) string {
	var sb strings.Builder
	sb.WriteString(Preamble)
	fmt.Fprintf(&sb, "\nUsing the following website content, answer the query: %s", query)
	for i, src := range sources {
		fmt.Fprintf(&sb, "\n\n%s Content:\n%s", src.Label, texts[i])
	}
	return sb.String()
}
