package inspect

import (
	"context"
	"fmt"
	"strings"

	"linkpeek/internal/relay"
)

// MetaText builds the human-readable transaction summary: the redirect
// history when there was one, the query-stripped canonical URL, and the body
// classification.
func (s *Summary) MetaText() string {
	var b strings.Builder

	if len(s.Redirects) > 1 {
		b.WriteString("Redirect history:\n")
		for _, step := range s.Redirects {
			fmt.Fprintf(&b, "- %s\n", step)
		}
		b.WriteString("\n")
	}

	if query := s.FinalURL.RawQuery; query != "" {
		// Deliberately a textual transform, not a URL rebuild, so the
		// canonical form is byte-identical to the final URL minus the query.
		withoutQuery := strings.Replace(s.FinalURL.String(), "?"+query, "", 1)
		fmt.Fprintf(&b, "Without query: %s\n\n", withoutQuery)
	}

	if s.BodyErr != nil {
		fmt.Fprintf(&b, "Body is not a string: %v\n", s.BodyErr)
	} else {
		fmt.Fprintf(&b, "Body is a string with length %d\n", len(s.Body))
	}

	return strings.TrimRight(b.String(), "\n")
}

// StatusLine renders the protocol and status, e.g. "HTTP/2.0 200 OK".
func (s *Summary) StatusLine() string {
	return s.Proto + " " + s.Status
}

// RelayHeaders sends the status line and every response header as chunked
// code blocks. Long header lines are followed by a blank line so they stand
// apart visually.
func (s *Summary) RelayHeaders(ctx context.Context, sender relay.Sender) error {
	c := relay.NewChunker(sender, "", "http")
	if err := c.WriteLine(ctx, s.StatusLine()); err != nil {
		return err
	}
	for _, h := range s.Headers {
		if err := c.WriteLine(ctx, h.Line()); err != nil {
			return err
		}
		if h.Long() {
			if err := c.WriteBlankLine(ctx); err != nil {
				return err
			}
		}
	}
	return c.Flush(ctx)
}
