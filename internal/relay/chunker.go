package relay

import (
	"context"
	"strings"
	"unicode/utf8"
)

const (
	// MessageLimit is the hard Telegram ceiling for a single message.
	MessageLimit = 4096

	// safeLimit is the budget the chunker actually fills. The transport
	// rejects oversized payloads outright, so the split must stay strictly
	// under the ceiling rather than hit it exactly.
	safeLimit = 4090
)

// Chunker accumulates lines and flushes them as messages that each fit the
// platform limit. Chunks are sent in generation order, never buffered past a
// flush. Sizes are counted in bytes, which is an upper bound on the UTF-16
// length Telegram enforces.
type Chunker struct {
	sender   Sender
	header   string
	language string
	limit    int
	buf      strings.Builder
}

// NewChunker returns a Chunker that flushes through sender. A non-empty
// header is repeated on every chunk and its size is reserved from the budget.
func NewChunker(sender Sender, header, language string) *Chunker {
	limit := safeLimit
	if header != "" {
		limit -= len(header) + len(":\n")
	}
	return &Chunker{
		sender:   sender,
		header:   header,
		language: language,
		limit:    limit,
	}
}

// WriteLine appends one line (without trailing newline) to the current chunk,
// flushing first if the line would push the chunk over the limit. A single
// line larger than the whole budget is force-split at byte boundaries.
func (c *Chunker) WriteLine(ctx context.Context, line string) error {
	need := len(line) + 1
	if c.buf.Len() > 0 && c.buf.Len()+need > c.limit {
		if err := c.Flush(ctx); err != nil {
			return err
		}
	}
	if need > c.limit {
		for _, part := range forceSplit(line, c.limit-1) {
			c.buf.WriteString(part)
			c.buf.WriteByte('\n')
			if err := c.Flush(ctx); err != nil {
				return err
			}
		}
		return nil
	}
	c.buf.WriteString(line)
	c.buf.WriteByte('\n')
	return nil
}

// WriteBlankLine inserts an empty line into the current chunk.
func (c *Chunker) WriteBlankLine(ctx context.Context) error {
	return c.WriteLine(ctx, "")
}

// Flush sends the accumulated chunk. A chunk that is only whitespace is
// dropped so the conversation never ends on an empty message.
func (c *Chunker) Flush(ctx context.Context) error {
	text := c.buf.String()
	c.buf.Reset()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if c.language != "" {
		return c.sender.SendCode(ctx, c.header, c.language, text)
	}
	if c.header != "" {
		return c.sender.SendText(ctx, c.header+":\n"+text)
	}
	return c.sender.SendText(ctx, text)
}

// SendChunked splits body at line boundaries and sends every resulting chunk
// in order through sender.
func SendChunked(ctx context.Context, sender Sender, header, language, body string) error {
	c := NewChunker(sender, header, language)
	for _, line := range strings.SplitAfter(body, "\n") {
		if line == "" {
			continue
		}
		if err := c.WriteLine(ctx, strings.TrimSuffix(line, "\n")); err != nil {
			return err
		}
	}
	return c.Flush(ctx)
}

// forceSplit breaks a single oversized line into pieces of at most max bytes,
// cutting only at rune boundaries so every piece stays valid UTF-8. A max
// below the widest rune still makes progress, falling back to a byte cut.
func forceSplit(line string, max int) []string {
	if max < 1 {
		max = 1
	}
	var parts []string
	for len(line) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			cut = max
		}
		parts = append(parts, line[:cut])
		line = line[cut:]
	}
	if len(line) > 0 {
		parts = append(parts, line)
	}
	return parts
}
