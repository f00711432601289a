// Package relay delivers reply messages to a chat while respecting the
// Telegram message length ceiling. All outbound text produced by the
// inspection pipeline goes through a Sender, so nothing above the transport
// layer touches the Bot API types directly.
package relay

import "context"

// Audio describes a playable audio attachment referenced by URL.
type Audio struct {
	URL       string
	Duration  int // seconds, 0 = unknown
	Performer string
	Title     string
	Caption   string
}

// Sender delivers replies scoped to one inbound message. Implementations
// carry the chat ID and the message being replied to.
type Sender interface {
	// SendText sends a plain text reply with link previews disabled.
	SendText(ctx context.Context, text string) error

	// SendCode sends text as a monospace code block. A non-empty header is
	// prepended as a title line outside the block; language tags the block
	// for syntax highlighting.
	SendCode(ctx context.Context, header, language, code string) error

	// SendPhoto sends a photo by URL with an optional caption.
	SendPhoto(ctx context.Context, fileURL, caption string) error

	// SendAudio sends an audio attachment by URL.
	SendAudio(ctx context.Context, a Audio) error
}
