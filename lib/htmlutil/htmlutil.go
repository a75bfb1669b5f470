// Package htmlutil extracts text and links from rendered wiki HTML.
package htmlutil

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("social-signals/htmlutil")

// GetText concatenates every text node under node.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText drops non-printable characters and collapses whitespace.
func CleanText(s string) string {
	out := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			out.WriteRune(c)
		}
	}
	return innerWhitespace.ReplaceAllString(strings.TrimSpace(out.String()), " ")
}

type Anchor struct {
	// Text is the visible text of the link.
	Text string
	Href string
	// Title is the title attribute, wiki links carry the title of the page they point to.
	Title string
}

// GetAnchors reads every <a> node of sel, anchors with an unparsable href are skipped.
func GetAnchors(ctx context.Context, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		var href, title string
		for _, a := range n.Attr {
			switch a.Key {
			case "href":
				href = a.Val
			case "title":
				title = a.Val
			}
		}

		link, err := url.Parse(href)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "got error while parsing url")
			continue
		}

		anchor := Anchor{
			Text:  CleanText(GetText(n)),
			Href:  link.String(),
			Title: title,
		}
		anchors = append(anchors, anchor)
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("text", anchor.Text),
			attribute.String("url", anchor.Href),
		))
	}
	return anchors
}

// ListedPageTitles returns the titles of the internal wiki pages led by list items of a
// rendered page (ex. the candidates of a disambiguation page), deduplicated and in document
// order. Only the first link of an item counts, links in its description are not candidates.
// Table of contents entries, red links (pages that do not exist) and links outside of /wiki/
// are ignored.
func ListedPageTitles(ctx context.Context, document string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var titles []string
	items := doc.Find("li").FilterFunction(func(_ int, li *goquery.Selection) bool {
		class, _ := li.Attr("class")
		return !strings.Contains(class, "tocsection")
	})
	var leading []*html.Node
	items.Each(func(_ int, li *goquery.Selection) {
		leading = append(leading, li.Find("a").First().Nodes...)
	})

	for _, anchor := range GetAnchors(ctx, doc.FindNodes(leading...)) {
		if anchor.Title == "" || !strings.Contains(anchor.Href, "/wiki/") {
			continue
		}
		if seen[anchor.Title] {
			continue
		}
		seen[anchor.Title] = true
		titles = append(titles, anchor.Title)
	}
	return titles, nil
}
