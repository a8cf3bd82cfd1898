package pageload

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Response is a fetched page. A failed fetch is represented as a Response
// with OK unset and Err carrying the cause, never as a bare error.
type Response struct {
	URL    string
	Status int
	OK     bool
	Header http.Header
	Body   []byte
	Err    error
}

func failed(u string, err error) *Response {
	return &Response{URL: u, OK: false, Err: err}
}

// Document parses the body as HTML.
func (r *Response) Document() (*goquery.Document, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// Text returns the whitespace-collapsed text of the elements matching
// selector, or of the body when selector is empty, cut to maxLength runes.
func (r *Response) Text(selector string, maxLength int) (string, error) {
	doc, err := r.Document()
	if err != nil {
		return "", err
	}

	sel := doc.Find("body")
	if strings.TrimSpace(selector) != "" {
		sel = doc.Find(selector)
		if sel.Length() == 0 {
			return "", fmt.Errorf("selector %q matched no elements", selector)
		}
	}

	text := strings.Join(strings.Fields(sel.Text()), " ")
	if runes := []rune(text); maxLength > 0 && len(runes) > maxLength {
		text = string(runes[:maxLength]) + "…"
	}
	return text, nil
}

// Link is an anchor found on the page, resolved against the response URL.
type Link struct {
	Title string
	URL   string
}

// Links returns up to limit anchors in document order. limit <= 0 means all.
func (r *Response) Links(limit int) ([]Link, error) {
	doc, err := r.Document()
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid response url %q: %w", r.URL, err)
	}

	var links []Link
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(links) >= limit {
			return false
		}
		href, _ := s.Attr("href")
		u, err := base.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		title := strings.Join(strings.Fields(s.Text()), " ")
		if title == "" {
			title = u.String()
		}
		links = append(links, Link{Title: title, URL: u.String()})
		return true
	})
	return links, nil
}

// Title returns the document title, or "".
func (r *Response) Title() string {
	doc, err := r.Document()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
