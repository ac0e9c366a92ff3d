package service

import (
	"strings"

	"golang.org/x/net/html"
)

// ContentParser derives plain text from a section's markup
type ContentParser struct{}

// NewContentParser creates a new ContentParser
func NewContentParser() *ContentParser {
	return &ContentParser{}
}

// PlainText extracts the readable text of an HTML fragment. Block elements
// become line breaks; runs of whitespace inside a line collapse to one space.
func (p *ContentParser) PlainText(markup string) string {
	if markup == "" {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(markup))

	var lines []string
	var line strings.Builder
	skip := 0

	flush := func() {
		text := strings.Join(strings.Fields(line.String()), " ")
		if text != "" {
			lines = append(lines, text)
		}
		line.Reset()
	}

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			// end of input or malformed markup
			flush()
			return strings.Join(lines, "\n")

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if isSkippedElement(tag) && tt == html.StartTagToken {
				skip++
			}
			if isBlockElement(tag) {
				flush()
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if isSkippedElement(tag) && skip > 0 {
				skip--
			}
			if isBlockElement(tag) {
				flush()
			}

		case html.TextToken:
			if skip == 0 {
				line.Write(tokenizer.Text())
				line.WriteByte(' ')
			}
		}
	}
}

// WordCount counts whitespace separated words
func (p *ContentParser) WordCount(text string) int {
	return len(strings.Fields(text))
}

// isBlockElement returns true if the element starts a new line of text
func isBlockElement(name string) bool {
	switch name {
	case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "table", "ul", "ol", "blockquote":
		return true
	default:
		return false
	}
}

// isSkippedElement returns true if the element's text is not readable content
func isSkippedElement(name string) bool {
	switch name {
	case "script", "style", "head":
		return true
	default:
		return false
	}
}
