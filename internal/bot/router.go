package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"linkpeek/internal/download"
	"linkpeek/internal/metrics"
	"linkpeek/internal/tiktok"
)

// ErrNoURL signals that a message carried nothing to inspect. The dispatch
// loop reports it back to the sender like any other routing error.
var ErrNoURL = errors.New("no url found in message")

// routeMessage inspects every URL entity of the message independently. An
// inspection failure for one URL is reported as a reply scoped to that URL
// and does not stop the remaining URLs; only a failure to deliver such a
// report propagates.
func (b *Bot) routeMessage(ctx context.Context, msg *tgbotapi.Message) error {
	urls, err := extractURLs(msg.Text, msg.Entities)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return ErrNoURL
	}

	for _, rawURL := range urls {
		sender := b.senderFor(msg)
		if err := b.inspectURL(ctx, sender, rawURL); err != nil {
			b.logger.Warn("url inspection failed", "url", rawURL, "err", err)
			if sendErr := sender.SendText(ctx, fmt.Sprintf("%s: %v", rawURL, err)); sendErr != nil {
				return fmt.Errorf("report inspection error: %w", sendErr)
			}
		}
	}
	return nil
}

// extractURLs slices every url-type entity out of text. Entity offsets are
// UTF-16 code units. An entity pointing outside the text makes the whole
// message malformed; no partial list is returned.
func extractURLs(text string, entities []tgbotapi.MessageEntity) ([]string, error) {
	if text == "" || len(entities) == 0 {
		return nil, nil
	}
	encoded := utf16.Encode([]rune(text))

	var urls []string
	for _, ent := range entities {
		if ent.Type != "url" {
			continue
		}
		end := ent.Offset + ent.Length
		if ent.Offset < 0 || ent.Length < 0 || end > len(encoded) {
			return nil, fmt.Errorf("url entity [%d, %d) lies outside the message text", ent.Offset, end)
		}
		urls = append(urls, string(utf16.Decode(encoded[ent.Offset:end])))
	}
	return urls, nil
}

// inspectURL fetches one URL, relays the transaction summary and headers,
// and runs the platform relay when the final host matches the configured
// suffix and the body decoded as text.
func (b *Bot) inspectURL(ctx context.Context, sender download.Transport, rawURL string) error {
	b.logger.Info("inspect url", "url", rawURL)

	summary, err := b.inspector.Fetch(ctx, rawURL)
	if err != nil {
		metrics.InspectionsTotal.WithLabelValues("fetch_error").Inc()
		return fmt.Errorf("HTTP GET request failed: %w", err)
	}
	metrics.InspectionsTotal.WithLabelValues("ok").Inc()

	if err := sender.SendText(ctx, summary.MetaText()); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	if err := summary.RelayHeaders(ctx, sender); err != nil {
		return fmt.Errorf("send headers: %w", err)
	}

	if summary.BodyErr != nil {
		return nil
	}
	if !strings.HasSuffix(summary.FinalURL.Hostname(), b.platformSuffix) {
		return nil
	}

	if err := tiktok.Analyze(ctx, sender, b.logger, summary.Body); err != nil {
		metrics.PlatformRelaysTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("analyze %s page: %w", b.platformSuffix, err)
	}
	metrics.PlatformRelaysTotal.WithLabelValues("ok").Inc()

	if b.downloader != nil {
		if err := b.downloader.Relay(ctx, sender, rawURL); err != nil {
			return fmt.Errorf("download relay: %w", err)
		}
	}
	return nil
}
