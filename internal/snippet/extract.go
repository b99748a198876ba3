// SPDX-License-Identifier: MIT

// Package snippet turns search result pages into short evidence texts.
// Extraction prefers paragraph content and falls back to any block
// element carrying enough text, matching the layout of the snapshot
// files this feeds.
package snippet

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	unorm "golang.org/x/text/unicode/norm"
)

var newlineRuns = regexp.MustCompile(`\n+`)

// ExtractOptions bound the extraction rules.
type ExtractOptions struct {
	// ParagraphMin is the <p> count from which the page counts as
	// paragraph-structured.
	ParagraphMin int
	// ParagraphMax caps how many paragraphs are joined.
	ParagraphMax int
	// MinBlockChars is the minimum rune length for fallback blocks.
	MinBlockChars int
	// MaxChars caps the final snippet in runes.
	MaxChars int
}

// Extract pulls the evidence text out of a parsed page. Pages with at
// least ParagraphMin <p> elements contribute their first ParagraphMax
// paragraphs; anything else contributes every p/div/span block longer
// than MinBlockChars.
func Extract(root *html.Node, opts ExtractOptions) string {
	var paragraphs []string
	var blocks []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p":
				text := textContent(n)
				paragraphs = append(paragraphs, text)
				blocks = append(blocks, text)
			case "div", "span":
				blocks = append(blocks, textContent(n))
			case "script", "style", "noscript", "template":
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	var text string
	if len(paragraphs) >= opts.ParagraphMin {
		take := opts.ParagraphMax
		if take > len(paragraphs) {
			take = len(paragraphs)
		}
		text = strings.Join(paragraphs[:take], "\n")
	} else {
		kept := make([]string, 0, len(blocks))
		for _, b := range blocks {
			if len([]rune(b)) > opts.MinBlockChars {
				kept = append(kept, b)
			}
		}
		text = strings.Join(kept, "\n")
	}

	return cleanText(text, opts.MaxChars)
}

// textContent concatenates the stripped text nodes below n. Script and
// style bodies are not text.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(strings.TrimSpace(n.Data))
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}

// cleanText collapses newline runs, trims, normalizes to NFC and caps
// the result at maxChars runes.
func cleanText(s string, maxChars int) string {
	s = newlineRuns.ReplaceAllString(s, "\n")
	s = strings.TrimSpace(s)
	s = unorm.NFC.String(s)
	if maxChars > 0 {
		if r := []rune(s); len(r) > maxChars {
			s = string(r[:maxChars])
		}
	}
	return s
}
