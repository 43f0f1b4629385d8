package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// URLContent is the readable text pulled out of a web page.
type URLContent struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	URL       string `json:"url"`
	Domain    string `json:"domain"`
	WordCount int    `json:"word_count"`
}

// corsProxies are tried in order; the first one that yields usable content
// wins. Pages behind aggressive bot protection tend to work through at least
// one of them.
var corsProxies = []string{
	"https://api.allorigins.win/get?url=",
	"https://corsproxy.io/?",
	"https://cors-anywhere.herokuapp.com/",
	"https://thingproxy.freeboard.io/fetch/",
}

type URLExtractService struct {
	httpClient *http.Client
}

func NewURLExtractService() *URLExtractService {
	return &URLExtractService{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Extract fetches a page through the proxy chain and strips it down to its
// readable text. Each proxy gets 15 seconds; the last failure is surfaced if
// all of them fail.
func (s *URLExtractService) Extract(ctx context.Context, pageURL string) (*URLContent, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, &ValidationError{Fields: map[string]string{
			"url": "URL inválida. Por favor, insira uma URL válida.",
		}}
	}

	var lastErr error
	for _, proxy := range corsProxies {
		htmlContent, err := s.fetchWithProxy(ctx, pageURL, proxy)
		if err != nil {
			lastErr = err
			continue
		}

		content, err := parsePage(htmlContent, pageURL, parsed.Hostname())
		if err != nil {
			lastErr = err
			continue
		}

		return content, nil
	}

	return nil, fmt.Errorf("all proxies failed, last error: %w", lastErr)
}

func (s *URLExtractService) fetchWithProxy(ctx context.Context, pageURL, proxy string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var proxyURL string
	switch {
	case strings.Contains(proxy, "allorigins.win"), strings.Contains(proxy, "corsproxy.io"):
		proxyURL = proxy + url.QueryEscape(pageURL)
	default:
		proxyURL = proxy + pageURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxyURL, nil)
	if err != nil {
		return "", err
	}
	if strings.Contains(proxy, "allorigins.win") {
		req.Header.Set("Accept", "application/json")
	} else if !strings.Contains(proxy, "corsproxy.io") {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d from proxy", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return "", err
	}

	// allorigins wraps the page in a JSON envelope
	if strings.Contains(proxy, "allorigins.win") {
		var envelope struct {
			Contents string `json:"contents"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return "", fmt.Errorf("failed to decode proxy envelope: %w", err)
		}
		if envelope.Contents == "" {
			return "", fmt.Errorf("proxy returned empty contents")
		}
		return envelope.Contents, nil
	}

	if len(body) == 0 {
		return "", fmt.Errorf("proxy returned empty body")
	}
	return string(body), nil
}

// contentSelectors name the containers most likely to hold the article body,
// checked in order before falling back to <body>.
var contentSelectors = []selector{
	{tag: "main"},
	{tag: "article"},
	{class: "content"},
	{class: "post-content"},
	{class: "entry-content"},
	{class: "article-content"},
	{id: "content"},
	{class: "main-content"},
}

var skipTags = map[string]bool{
	"script": true, "style": true, "nav": true,
	"footer": true, "header": true, "aside": true,
}

var textTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "li": true, "blockquote": true, "div": true,
}

func parsePage(rawHTML, pageURL, domain string) (*URLContent, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(nodeText(findTag(doc, "title")))
	if title == "" {
		title = "Sem título"
	}

	root := findContentRoot(doc)
	if root == nil {
		root = doc
	}

	var parts []string
	collectText(root, &parts)
	content := cleanContent(strings.Join(parts, "\n\n"))

	if len(content) < 100 {
		return nil, fmt.Errorf("extracted content is too short, the page may not have enough text")
	}

	return &URLContent{
		Title:     title,
		Content:   content,
		URL:       pageURL,
		Domain:    domain,
		WordCount: len(strings.Fields(content)),
	}, nil
}

type selector struct {
	tag   string
	class string
	id    string
}

func (sel selector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if sel.tag != "" {
		return n.Data == sel.tag
	}
	for _, attr := range n.Attr {
		if sel.id != "" && attr.Key == "id" && attr.Val == sel.id {
			return true
		}
		if sel.class != "" && attr.Key == "class" {
			for _, c := range strings.Fields(attr.Val) {
				if c == sel.class {
					return true
				}
			}
		}
	}
	return false
}

func findContentRoot(doc *html.Node) *html.Node {
	for _, sel := range contentSelectors {
		if n := findNode(doc, sel.matches); n != nil {
			return n
		}
	}
	return findTag(doc, "body")
}

func findTag(doc *html.Node, tag string) *html.Node {
	return findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	})
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

// collectText gathers text from paragraph-like elements, skipping chrome
// (nav, scripts, etc.) and fragments too short to be content.
func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.ElementNode {
		if skipTags[n.Data] {
			return
		}
		if textTags[n.Data] {
			text := strings.TrimSpace(nodeText(n))
			if len(text) > 20 && !hasBlockChild(n) {
				*parts = append(*parts, text)
				return
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// hasBlockChild reports whether an element contains nested block elements,
// so container divs do not duplicate the text of their children.
func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (textTags[c.Data] || skipTags[c.Data]) {
			return true
		}
		if hasBlockChild(c) {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func cleanContent(content string) string {
	paragraphs := strings.Split(content, "\n\n")
	var cleaned []string
	for _, p := range paragraphs {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n\n"))
}
