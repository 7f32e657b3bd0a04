package extract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// noiseTags are structural elements removed document-wide before any
// candidate evaluation. They never carry article prose.
var noiseTags = []string{
	"script", "style", "noscript", "nav", "footer", "header", "aside",
	"iframe", "form", "button", "svg", "figure", "video", "audio",
	"object", "embed", "canvas",
}

// noiseClassRe matches class tokens that mark boilerplate containers. The
// word-boundary anchors are load-bearing: a plain substring match on "ad"
// would also delete "shadow", "gradient", "add-to-cart" and similar.
var noiseClassRe = regexp.MustCompile(`(?i)\b(ad|ads|advert|advertisement|adsense|banner|sidebar|comment|comments|share|sharing|social|related|recommended|menu|navigation|newsletter|subscribe|signup|popup|modal|overlay|cookie|consent|gdpr|promo|sponsor|sponsored|widget|breadcrumb|breadcrumbs|pagination|masthead)\b`)

// candidateSelectors are evaluated in priority order against the original
// tree. The first candidate whose cleaned text passes minContentChars wins.
var candidateSelectors = []string{
	"article",
	"main",
	"[role=main]",
	"#content",
	"#main-content",
	".post-content",
	".article-content",
	".entry-content",
	".article-body",
	".story-body",
	".content",
}

// minContentChars is the cleaned-text length a candidate must exceed to be
// accepted as the page's content root.
const minContentChars = 200

// FromHTML reduces raw page markup to clean prose capped at maxWords,
// prefixed with any publish date and author captured from the metadata
// elements before cleaning removes them. Returns "" when nothing usable
// remains.
func FromHTML(body []byte, maxWords int) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	prefix := metadataPrefix(doc)

	doc.Find(strings.Join(noiseTags, ", ")).Remove()

	text := selectContent(doc)
	if text == "" {
		return ""
	}
	return prefix + truncateWords(text, maxWords)
}

// selectContent walks candidateSelectors against the structural-clean tree.
// Each candidate is cleaned in an isolated clone so that scoring one never
// mutates or disqualifies another evaluated later; a huge ad-filled sibling
// must not shadow a smaller genuine article.
func selectContent(doc *goquery.Document) string {
	for _, sel := range candidateSelectors {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if len(s.Nodes) == 0 {
				return true
			}
			cleaned := cleanedText(s.Nodes[0])
			if len(cleaned) > minContentChars {
				found = cleaned
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	// No candidate qualified: fall back to <body>, or the whole document.
	if body := doc.Find("body").First(); len(body.Nodes) > 0 {
		return cleanedText(body.Nodes[0])
	}
	if len(doc.Selection.Nodes) > 0 {
		return cleanedText(doc.Selection.Nodes[0])
	}
	return ""
}

// cleanedText deep-copies n, strips noise-classed subtrees from the copy,
// and returns its whitespace-normalized text.
func cleanedText(n *html.Node) string {
	clone := cloneNode(n)
	removeNoiseClassed(clone)
	var b strings.Builder
	collectText(&b, clone)
	return normalizeWhitespace(b.String())
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:     n.Type,
		DataAtom: n.DataAtom,
		Data:     n.Data,
		Attr:     append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}

// removeNoiseClassed prunes every element under root whose class attribute
// carries a noise token.
func removeNoiseClassed(root *html.Node) {
	for child := root.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.ElementNode && isNoiseClassed(child) {
			root.RemoveChild(child)
		} else {
			removeNoiseClassed(child)
		}
		child = next
	}
}

func isNoiseClassed(n *html.Node) bool {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, "class") && noiseClassRe.MatchString(attr.Val) {
			return true
		}
	}
	return false
}

func collectText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
}

// metadataPrefix captures publish date and author before cleaning, since the
// elements carrying them are frequently inside headers that get removed.
// Returns a bracketed prefix line, or "".
func metadataPrefix(doc *goquery.Document) string {
	date := strings.TrimSpace(doc.Find("time[datetime]").First().AttrOr("datetime", ""))
	if date == "" {
		date = strings.TrimSpace(doc.Find(`meta[property="article:published_time"]`).First().AttrOr("content", ""))
	}
	author := strings.TrimSpace(doc.Find(`meta[name="author"]`).First().AttrOr("content", ""))

	parts := make([]string, 0, 2)
	if date != "" {
		parts = append(parts, "Published: "+date)
	}
	if author != "" {
		parts = append(parts, "Author: "+author)
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, " | ") + "]\n"
}

// truncateWords caps text at maxWords. It prefers cutting at a sentence
// terminator found scanning backward through the last 30% of the window; a
// cut there keeps the terminator and adds no ellipsis. Without one it
// hard-truncates and appends "...".
func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if maxWords <= 0 || len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	floor := maxWords * 7 / 10
	for i := maxWords - 1; i >= floor; i-- {
		if endsSentence(words[i]) {
			return strings.Join(words[:i+1], " ")
		}
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

func endsSentence(word string) bool {
	return strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?")
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
