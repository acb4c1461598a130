package feed

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText strips HTML markup from a feed fragment, decodes entities and
// collapses all runs of whitespace (including non-breaking spaces) into
// single spaces.
func CleanText(fragment string) string {
	if fragment == "" {
		return ""
	}

	text := fragment
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
		text = doc.Text()
	} else {
		text = html.UnescapeString(text)
	}

	text = strings.ReplaceAll(text, "\u00a0", " ")

	return strings.Join(strings.Fields(text), " ")
}

// Truncate caps a string to max runes, appending an ellipsis when shortened.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}

// FirstImageURL returns the src of the first <img> tag found in an HTML
// fragment, or an empty string.
func FirstImageURL(fragment string) string {
	if fragment == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}
