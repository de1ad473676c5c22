package archie

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"github.com/oraraka-deko/archie/internal/logger"
)

// contentSelector is the element whose text is treated as page content.
const contentSelector = "body"

// hiddenElements never contribute visible text.
var hiddenElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// WebExtractor fetches a page and returns its visible body text.
type WebExtractor struct {
	client   *http.Client
	selector string
	log      *logger.Logger
}

// NewWebExtractor returns an extractor sharing client. A nil client means http.DefaultClient.
func NewWebExtractor(client *http.Client, log *logger.Logger) *WebExtractor {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebExtractor{client: client, selector: contentSelector, log: logger.OrNop(log)}
}

// statusError carries a non-2xx response status.
type statusError struct {
	code   int
	status string
	url    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s for url (%s)", e.status, e.url)
}

// Extract GETs url and returns the trimmed visible text under <body>.
// HTTP failures are reported as KindRequest, parsing failures as KindGeneral.
func (w *WebExtractor) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", RequestError("Failed to connect or send request", err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return "", RequestError("Failed to connect or send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", RequestError("HTTP error status", &statusError{code: resp.StatusCode, status: resp.Status, url: url})
	}

	body, err := readText(resp)
	if err != nil {
		return "", RequestError("Failed to read response body", err)
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", GeneralError(fmt.Sprintf("Failed to parse document: %v", err))
	}
	sel, ok := compileSelector(w.selector)
	if !ok {
		return "", GeneralError("Failed to parse selector")
	}

	var sb strings.Builder
	for _, n := range selectAll(doc, sel) {
		collectText(n, &sb)
	}
	text := strings.TrimSpace(sb.String())
	w.log.Debug("extracted page", "url", url, "chars", len(text))
	return text, nil
}

// readText reads the whole body, decoding it to UTF-8 per its declared charset.
func readText(resp *http.Response) (string, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	r, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// compileSelector resolves a tag-name selector to its atom.
func compileSelector(sel string) (atom.Atom, bool) {
	a := atom.Lookup([]byte(strings.ToLower(strings.TrimSpace(sel))))
	return a, a != 0
}

// selectAll returns every element matching sel in document order.
func selectAll(root *html.Node, sel atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == sel {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if hiddenElements[n.DataAtom] {
			return
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
