package crawler

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"sjsage522/pricecrawler/internal/normalize"
)

// createDocument parses markup into a document. goquery only fails on read
// errors, which a string reader never produces, so nil is returned for
// empty input only.
func createDocument(markup string) *goquery.Document {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	return doc
}

// applyHandlers applies a series of handlers to a selection and returns the
// first non-empty result
func applyHandlers(s *goquery.Selection, handlers []ElementHandler) string {
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if result := handler(s); result != "" {
			return result
		}
	}
	return ""
}

// firstMatch returns the matches of the first selector in chain that matches
// anything below scope, or an empty selection.
func firstMatch(scope *goquery.Selection, chain Chain) *goquery.Selection {
	for _, sel := range chain {
		if found := scope.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return scope.Find("__no_match__")
}

// pick is firstMatch restricted to one element. An empty chain picks scope
// itself.
func pick(scope *goquery.Selection, chain Chain) *goquery.Selection {
	if len(chain) == 0 {
		return scope
	}
	return firstMatch(scope, chain).First()
}

// visibleText joins the text nodes below s with single spaces
func visibleText(s *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return normalize.CollapseText(strings.Join(parts, " "))
}

// textHandler returns a handler yielding the visible text of the first
// element matched by selector
func textHandler(selector string) ElementHandler {
	return func(s *goquery.Selection) string {
		return visibleText(s.Find(selector).First())
	}
}

// chainHandlers turns every selector of chain into a text handler
func chainHandlers(chain Chain) []ElementHandler {
	handlers := make([]ElementHandler, 0, len(chain))
	for _, sel := range chain {
		handlers = append(handlers, textHandler(sel))
	}
	return handlers
}

func titleTooShort(title string, min int) bool {
	return title == "" || utf8.RuneCountInString(title) < min
}
