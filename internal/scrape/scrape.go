// Package scrape locates the structured JSON payload embedded in a scraped
// HTML document and provides typed navigation over it.
package scrape

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// The embedded payload lives under a fixed two-level key path inside one of
// the page's application/json scripts.
const (
	scopeKey   = "__DEFAULT_SCOPE__"
	featureKey = "webapp.video-detail"
)

var (
	// ErrNotFound means no script payload matched the expected shape.
	ErrNotFound = errors.New("no matching json payload in document body")

	// ErrAmbiguous means more than one script payload matched; the document
	// does not identify which one is authoritative.
	ErrAmbiguous = errors.New("more than one matching json payload in document body")
)

// Extract parses htmlSrc, collects every <script type="application/json">
// under <body>, and returns the single payload reachable through the fixed
// key path. Scripts that fail to parse or lack the path are skipped; exactly
// one surviving candidate is required.
func Extract(htmlSrc string) (any, error) {
	doc, err := html.Parse(strings.NewReader(htmlSrc))
	if err != nil {
		return nil, err
	}

	var found any
	matches := 0
	for _, raw := range jsonScripts(doc) {
		var value any
		if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &value); err != nil {
			continue
		}
		payload, ok := DeepGet(value, scopeKey, featureKey)
		if !ok {
			continue
		}
		found = payload
		matches++
	}

	switch matches {
	case 0:
		return nil, ErrNotFound
	case 1:
		return found, nil
	default:
		return nil, ErrAmbiguous
	}
}

// jsonScripts returns the inner text of every application/json script that
// is a descendant of <body>, in document order.
func jsonScripts(doc *html.Node) []string {
	body := findElement(doc, "body")
	if body == nil {
		return nil
	}
	var scripts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" && attr(n, "type") == "application/json" {
			scripts = append(scripts, innerText(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return scripts
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func innerText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// DeepGet walks value through the given key sequence, treating each step as
// an object member lookup, and reports absence on the first miss.
func DeepGet(value any, keys ...string) (any, bool) {
	for _, key := range keys {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return value, true
}

// String returns the value at the key path when it is a string.
func String(value any, keys ...string) (string, bool) {
	v, ok := DeepGet(value, keys...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Pretty renders a payload sub-tree as indented JSON.
func Pretty(value any) (string, error) {
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ParseTimestamp interprets a JSON number or numeric string as epoch seconds.
// Zero means "absent" rather than the epoch itself.
func ParseTimestamp(value any) (time.Time, bool) {
	var secs int64
	switch v := value.(type) {
	case float64:
		secs = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		secs = parsed
	default:
		return time.Time{}, false
	}
	if secs == 0 {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}
