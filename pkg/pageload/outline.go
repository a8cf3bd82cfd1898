package pageload

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Outline is a compact rendering of a page: metadata, headings and a
// stripped-down markup tree without scripts, styles or embeds.
type Outline struct {
	Title       string
	Description string
	Headings    []string
	Markup      string
	Truncated   bool
}

// Outline renders the body into at most maxLength bytes of markup.
func (r *Response) Outline(maxLength int) (*Outline, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	doc, err := html.Parse(bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	o := &Outline{
		Title:       findTitle(doc),
		Description: findDescription(doc),
		Headings:    findHeadings(doc),
	}
	w := &outlineWriter{max: maxLength}
	o.Truncated = w.node(doc, 0)
	o.Markup = w.b.String()
	return o, nil
}

type outlineWriter struct {
	b   strings.Builder
	n   int
	max int
}

// node writes n and its subtree; it reports whether output was cut short.
func (w *outlineWriter) node(n *html.Node, depth int) bool {
	if w.n >= w.max {
		return true
	}
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return false
	case html.TextNode:
		return w.text(n.Data)
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if droppedTags[tag] {
			return false
		}
		return w.element(n, tag, depth)
	default:
		return w.children(n, depth)
	}
}

func (w *outlineWriter) text(s string) bool {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return false
	}
	if w.n+len(s) > w.max {
		s = s[:w.max-w.n] + "..."
		w.b.WriteString(s)
		w.n = w.max
		return true
	}
	w.b.WriteString(s)
	w.n += len(s)
	return false
}

func (w *outlineWriter) element(n *html.Node, tag string, depth int) bool {
	block := blockTags[tag]
	if block && depth > 0 {
		w.b.WriteString("\n" + strings.Repeat("  ", depth))
	}

	w.b.WriteString("<" + tag)
	for _, a := range n.Attr {
		if keepAttr(tag, strings.ToLower(a.Key)) {
			fmt.Fprintf(&w.b, ` %s="%s"`, a.Key, html.EscapeString(a.Val))
		}
	}
	w.b.WriteString(">")
	w.n += len(tag) + 2

	cut := w.children(n, depth+1)
	if voidTags[tag] {
		return cut
	}
	if block {
		w.b.WriteString("\n" + strings.Repeat("  ", depth))
	}
	w.b.WriteString("</" + tag + ">")
	w.n += len(tag) + 3
	return cut
}

func (w *outlineWriter) children(n *html.Node, depth int) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if w.node(c, depth) {
			return true
		}
	}
	return false
}

var droppedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"iframe": true, "embed": true, "object": true, "svg": true,
}

var blockTags = map[string]bool{
	"html": true, "head": true, "body": true,
	"div": true, "p": true, "section": true, "article": true, "header": true,
	"footer": true, "nav": true, "main": true, "aside": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "table": true, "tr": true, "td": true,
	"th": true, "form": true, "fieldset": true, "blockquote": true, "pre": true,
}

var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

func keepAttr(tag, key string) bool {
	switch key {
	case "id", "role", "aria-label":
		return true
	}
	switch tag {
	case "a":
		return key == "href"
	case "img":
		return key == "src" || key == "alt"
	case "form":
		return key == "action" || key == "method"
	case "input", "select", "textarea", "button":
		return key == "name" || key == "type"
	}
	return false
}

func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func textOf(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteString(" ")
		}
		return true
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func findTitle(doc *html.Node) string {
	var title string
	walk(doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			title = textOf(n)
			return false
		}
		return true
	})
	return title
}

func findDescription(doc *html.Node) string {
	var desc string
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "meta" {
			return true
		}
		var name, content string
		for _, a := range n.Attr {
			switch a.Key {
			case "name":
				name = a.Val
			case "content":
				content = a.Val
			}
		}
		if strings.EqualFold(name, "description") && content != "" {
			desc = strings.TrimSpace(content)
			return false
		}
		return true
	})
	return desc
}

func findHeadings(doc *html.Node) []string {
	var out []string
	walk(doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && len(n.Data) == 2 && n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6' {
			if t := textOf(n); t != "" {
				out = append(out, strings.Repeat("#", int(n.Data[1]-'0'))+" "+t)
			}
		}
		return true
	})
	return out
}
