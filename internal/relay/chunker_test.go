package relay

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

type sent struct {
	kind     string // "text", "code", "photo", "audio"
	header   string
	language string
	body     string
}

type captureSender struct {
	calls []sent
}

func (c *captureSender) SendText(_ context.Context, text string) error {
	c.calls = append(c.calls, sent{kind: "text", body: text})
	return nil
}

func (c *captureSender) SendCode(_ context.Context, header, language, code string) error {
	c.calls = append(c.calls, sent{kind: "code", header: header, language: language, body: code})
	return nil
}

func (c *captureSender) SendPhoto(_ context.Context, fileURL, caption string) error {
	c.calls = append(c.calls, sent{kind: "photo", header: caption, body: fileURL})
	return nil
}

func (c *captureSender) SendAudio(_ context.Context, a Audio) error {
	c.calls = append(c.calls, sent{kind: "audio", body: a.URL})
	return nil
}

// rendered returns the size of the message as the transport would see it.
func (s sent) rendered() int {
	if s.header != "" {
		return len(s.header) + len(":\n") + len(s.body)
	}
	return len(s.body)
}

func TestSendChunkedSingleChunk(t *testing.T) {
	cs := &captureSender{}
	if err := SendChunked(context.Background(), cs, "stats", "json", "{\n  \"a\": 1\n}"); err != nil {
		t.Fatal(err)
	}
	if len(cs.calls) != 1 {
		t.Fatalf("expected 1 send, got %d", len(cs.calls))
	}
	got := cs.calls[0]
	if got.kind != "code" || got.header != "stats" || got.language != "json" {
		t.Fatalf("unexpected call: %+v", got)
	}
	if !strings.Contains(got.body, "\"a\": 1") {
		t.Fatalf("body lost content: %q", got.body)
	}
}

func TestSendChunkedNeverExceedsLimit(t *testing.T) {
	line := strings.Repeat("x", 100)
	body := strings.Repeat(line+"\n", 500) // ~50k, forces many chunks

	cs := &captureSender{}
	if err := SendChunked(context.Background(), cs, "video.subtitleInfos", "json", body); err != nil {
		t.Fatal(err)
	}
	if len(cs.calls) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(cs.calls))
	}
	for i, call := range cs.calls {
		if n := call.rendered(); n > safeLimit {
			t.Errorf("chunk %d is %d bytes, above the %d budget", i, n, safeLimit)
		}
	}
}

func TestSendChunkedPreservesLineOrder(t *testing.T) {
	var lines []string
	for i := 0; i < 300; i++ {
		lines = append(lines, strings.Repeat("line", 10)+string(rune('a'+i%26)))
	}
	body := strings.Join(lines, "\n")

	cs := &captureSender{}
	if err := SendChunked(context.Background(), cs, "", "http", body); err != nil {
		t.Fatal(err)
	}

	var rejoined []string
	for _, call := range cs.calls {
		rejoined = append(rejoined, strings.TrimRight(call.body, "\n"))
	}
	if got := strings.Join(rejoined, "\n"); got != body {
		t.Fatal("chunk concatenation does not reproduce the input")
	}
}

func TestChunkerDropsWhitespaceOnlyTail(t *testing.T) {
	cs := &captureSender{}
	c := NewChunker(cs, "", "")
	ctx := context.Background()
	if err := c.WriteLine(ctx, "payload"); err != nil {
		t.Fatal(err)
	}
	if err := c.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteBlankLine(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if len(cs.calls) != 1 {
		t.Fatalf("whitespace-only tail was sent: %+v", cs.calls)
	}
}

func TestChunkerForceSplitsOversizedLine(t *testing.T) {
	cs := &captureSender{}
	c := NewChunker(cs, "", "plaintext")
	ctx := context.Background()
	long := strings.Repeat("z", safeLimit*2+17)
	if err := c.WriteLine(ctx, long); err != nil {
		t.Fatal(err)
	}
	if err := c.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	total := 0
	for i, call := range cs.calls {
		if n := call.rendered(); n > safeLimit {
			t.Errorf("chunk %d is %d bytes, above the %d budget", i, n, safeLimit)
		}
		total += len(strings.TrimRight(call.body, "\n"))
	}
	if total != len(long) {
		t.Fatalf("force split lost bytes: got %d want %d", total, len(long))
	}
}

func TestChunkerForceSplitKeepsRunesIntact(t *testing.T) {
	cs := &captureSender{}
	c := NewChunker(cs, "", "plaintext")
	ctx := context.Background()

	// safeLimit is even, so an odd rune width guarantees a cut would land
	// mid-rune without boundary handling.
	long := strings.Repeat("ä", safeLimit)
	if err := c.WriteLine(ctx, long); err != nil {
		t.Fatal(err)
	}
	if err := c.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	if len(cs.calls) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(cs.calls))
	}
	var rejoined strings.Builder
	for i, call := range cs.calls {
		if !utf8.ValidString(call.body) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
		if n := call.rendered(); n > safeLimit {
			t.Errorf("chunk %d is %d bytes, above the %d budget", i, n, safeLimit)
		}
		rejoined.WriteString(strings.TrimRight(call.body, "\n"))
	}
	if rejoined.String() != long {
		t.Fatal("chunk concatenation does not reproduce the input")
	}
}

func TestForceSplitTinyBudgetMakesProgress(t *testing.T) {
	parts := forceSplit("abcdef", 0)
	if len(parts) != 6 {
		t.Fatalf("parts = %v", parts)
	}
	if got := strings.Join(parts, ""); got != "abcdef" {
		t.Fatalf("rejoined = %q", got)
	}
}

func TestChunkerEmptyBodyNothingSent(t *testing.T) {
	cs := &captureSender{}
	if err := SendChunked(context.Background(), cs, "poi", "json", "   \n \n"); err != nil {
		t.Fatal(err)
	}
	if len(cs.calls) != 0 {
		t.Fatalf("expected no sends, got %d", len(cs.calls))
	}
}
