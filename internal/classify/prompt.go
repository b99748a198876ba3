package classify

import (
	"fmt"
	"strings"
)

// maxEvidenceSnippets bounds the context passed to the model. More
// snippets add cost without improving one-word answers.
const maxEvidenceSnippets = 3

// BuildEvidencePrompt assembles the grounded prompt. Categories appear in
// the given order, evidence beyond the snippet cap is ignored.
func BuildEvidencePrompt(keyword string, categories, snippets []string) string {
	if len(snippets) > maxEvidenceSnippets {
		snippets = snippets[:maxEvidenceSnippets]
	}
	return fmt.Sprintf("You are an expert in industrial products.\n\n"+
		"Based on the web information below, determine which of the following "+
		"categories best classifies the keyword '%s'. Respond with only one word.\n\n"+
		"Category candidates: %s\n\n"+
		"Snippets:\n%s",
		keyword, strings.Join(categories, ", "), strings.Join(snippets, "\n"))
}

// BuildKeywordPrompt assembles the fallback prompt used when no snippet
// evidence is available.
func BuildKeywordPrompt(keyword string, categories []string) string {
	return fmt.Sprintf("You are an expert in industrial products.\n\n"+
		"Based on your knowledge, determine which of the following categories "+
		"best classifies the keyword '%s'. Respond with only one word.\n\n"+
		"Category candidates: %s",
		keyword, strings.Join(categories, ", "))
}
