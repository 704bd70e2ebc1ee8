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

var tracer = otel.Tracer("yamisign.lib.htmlutil")

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
	// script bodies are never visible text
	if node.Type == html.ElementNode && node.Data == "script" {
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText trims a piece of visible text and collapses inner whitespace.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

type Anchor struct {
	Name string
	Href string
}

// ResolveHref resolves a (possibly relative) href against base.
func ResolveHref(base *url.URL, href string) (string, error) {
	link, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if base == nil {
		return link.String(), nil
	}
	return base.ResolveReference(link).String(), nil
}

// GetAnchors lists the anchors in sel that carry an href, resolving every
// href against base. Anchors with unparsable hrefs are skipped.
func GetAnchors(ctx context.Context, base *url.URL, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		hasHref := false
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				hasHref = true
				break
			}
		}
		if !hasHref || strings.TrimSpace(href) == "" {
			continue
		}

		linkStr, err := ResolveHref(base, href)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "got error while parsing url")
			continue
		}

		name := CleanText(GetText(n))
		anchors = append(anchors, Anchor{
			Name: name,
			Href: linkStr,
		})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("url", linkStr),
		))
	}

	return anchors
}
