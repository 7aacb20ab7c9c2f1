package processor

import (
	"bytes"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"golang.org/x/net/html"
)

// MarkdownToSlackProcessor converts Markdown to Slack mrkdwn.
type MarkdownToSlackProcessor struct{}

// NewMarkdownToSlackProcessor creates a new MarkdownToSlackProcessor.
func NewMarkdownToSlackProcessor() *MarkdownToSlackProcessor {
	return &MarkdownToSlackProcessor{}
}

// Process converts a Markdown string to a Slack mrkdwn string.
func (p *MarkdownToSlackProcessor) Process(content string, _ any) (string, error) {
	return htmlToMrkdwn(renderHTML(content))
}

// MarkdownToHTMLProcessor converts Markdown to HTML.
type MarkdownToHTMLProcessor struct{}

// NewMarkdownToHTMLProcessor creates a new MarkdownToHTMLProcessor.
func NewMarkdownToHTMLProcessor() *MarkdownToHTMLProcessor {
	return &MarkdownToHTMLProcessor{}
}

// Process converts a Markdown string to an HTML string.
func (p *MarkdownToHTMLProcessor) Process(content string, _ any) (string, error) {
	return renderHTML(content), nil
}

func renderHTML(content string) string {
	ps := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	doc := ps.Parse([]byte(content))
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return string(markdown.Render(doc, renderer))
}

// mrkdwnMarks maps inline elements to the Slack mark written on both sides.
var mrkdwnMarks = map[string]string{
	"h1": "*", "h2": "*", "h3": "*", "h4": "*", "h5": "*", "h6": "*",
	"strong": "*", "b": "*",
	"em": "_", "i": "_",
	"del": "~", "s": "~",
	"code": "`",
}

func htmlToMrkdwn(htmlStr string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "p":
				buf.WriteString("\n")
			case "br":
				buf.WriteString("\n")
			case "a":
				buf.WriteString("<" + attr(n, "href") + "|")
			case "li":
				if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
					buf.WriteString("\n")
				}
				buf.WriteString("• ")
			default:
				buf.WriteString(mrkdwnMarks[n.Data])
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}

		if n.Type == html.ElementNode {
			if n.Data == "a" {
				buf.WriteString(">")
			} else {
				buf.WriteString(mrkdwnMarks[n.Data])
			}
		}
	}

	traverse(doc)
	return strings.TrimSpace(buf.String()), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
