package document

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	tagPattern = regexp.MustCompile(`<[^>]+>`)
)

// readHTML prefers the readability article text and falls back to a
// boilerplate-stripped walk of the DOM for short pages readability rejects.
func readHTML(data []byte, pageURL *url.URL) (string, error) {
	if pageURL == nil {
		pageURL = &url.URL{Scheme: "file", Path: "/careplan.html"}
	}
	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err == nil {
		if text := collapse(article.TextContent); text != "" {
			return text, nil
		}
	}
	text, serr := stripBoilerplate(data)
	if serr != nil {
		if err != nil {
			return "", fmt.Errorf("failed to parse HTML: %w", err)
		}
		return "", serr
	}
	return text, nil
}

func stripBoilerplate(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return collapse(tagPattern.ReplaceAllString(string(data), " ")), nil
	}

	doc.Find("header, nav, footer, aside, script, style, noscript, svg, menu, form").Remove()

	var b strings.Builder
	doc.Find("h1, h2, h3, h4, li, p, td").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			b.WriteString(t)
			b.WriteString("\n")
		}
	})
	if b.Len() == 0 {
		return collapse(doc.Find("body").Text()), nil
	}
	return collapse(b.String()), nil
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
