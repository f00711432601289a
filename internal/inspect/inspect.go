// Package inspect fetches a URL and produces a structured summary of the
// HTTP transaction: the redirect chain, a query-stripped canonical form of
// the final URL, a classification of the body, and the response headers.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Firefox ESR. Some sites serve a stripped page to unknown agents.
const defaultUserAgent = "Mozilla/5.0 (X11; Fedora; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

const (
	defaultTimeout      = 60 * time.Second
	defaultMaxBodyBytes = 20 << 20

	// Header values longer than this are omitted from the summary unless the
	// key is in interestingHeaders.
	maxHeaderValueLen = 30

	// Rendered "key: value" lines longer than this get a separating blank
	// line when chunked.
	longHeaderLineLen = 45
)

// interestingHeaders are always rendered verbatim regardless of length.
var interestingHeaders = map[string]bool{
	"cache-control":  true,
	"content-length": true,
	"content-type":   true,
	"expires":        true,
	"last-modified":  true,
	"server":         true,
}

// Header is one response header occurrence. Omitted marks values that are
// too long and not interesting enough to relay.
type Header struct {
	Key     string
	Value   string
	Omitted bool
}

// Line renders the header the way it is relayed to the chat.
func (h Header) Line() string {
	if h.Omitted {
		return h.Key + ": <omitted>"
	}
	return h.Key + ": " + h.Value
}

// Long reports whether the rendered line should be followed by a blank line.
func (h Header) Long() bool {
	return len(h.Line()) > longHeaderLineLen
}

// Summary describes one completed fetch. HTTP error statuses are summaries
// like any other; only transport failures abort a fetch.
type Summary struct {
	// FinalURL is the URL after following all redirects.
	FinalURL *url.URL

	// Redirects is the ordered chain of visited URLs including the first
	// and the final one. Length 1 means no redirect occurred.
	Redirects []string

	Proto   string
	Status  string
	Headers []Header

	// Body holds the decoded text body when BodyErr is nil.
	Body    string
	BodyErr error
}

// Client fetches URLs for inspection.
type Client struct {
	userAgent    string
	timeout      time.Duration
	maxBodyBytes int64
	transport    http.RoundTripper
}

// Options configures a Client. Zero values pick defaults.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
}

func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Client{
		userAgent:    opts.UserAgent,
		timeout:      opts.Timeout,
		maxBodyBytes: opts.MaxBodyBytes,
		transport:    http.DefaultTransport,
	}
}

// Fetch performs a GET on rawURL, following redirects, and returns the
// transaction summary. Transport failures are returned as errors; HTTP
// statuses of any class are not.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Summary, error) {
	var chain []string

	httpClient := &http.Client{
		Timeout:   c.timeout,
		Transport: c.transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			chain = append(chain, req.URL.String())
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	chain = append(chain, req.URL.String())

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	s := &Summary{
		FinalURL:  resp.Request.URL,
		Redirects: chain,
		Proto:     resp.Proto,
		Status:    resp.Status,
		Headers:   summarizeHeaders(resp.Header),
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	switch {
	case err != nil:
		s.BodyErr = fmt.Errorf("read body: %w", err)
	case !utf8.Valid(raw):
		s.BodyErr = errors.New("body is not valid UTF-8")
	default:
		s.Body = string(raw)
	}
	return s, nil
}

// summarizeHeaders flattens a header map into a deterministic list: keys are
// lowercased and sorted, values for one key keep their received order. The
// wire order itself is not observable through net/http.
func summarizeHeaders(h http.Header) []Header {
	keys := make([]string, 0, len(h))
	for key := range h {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []Header
	for _, key := range keys {
		lower := strings.ToLower(key)
		for _, value := range h[key] {
			out = append(out, Header{
				Key:     lower,
				Value:   value,
				Omitted: len(value) > maxHeaderValueLen && !interestingHeaders[lower],
			})
		}
	}
	return out
}
