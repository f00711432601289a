// Package tiktok relays selected fields of a video-detail payload back to
// the chat. The field order is fixed: it is the narrative the user reads,
// so it must come out the same way every time.
package tiktok

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"linkpeek/internal/relay"
	"linkpeek/internal/scrape"
)

// Analyze extracts the embedded payload from body and relays its fields
// through sender. Individual fields are best effort; only a missing
// itemInfo.itemStruct aborts the whole relay.
func Analyze(ctx context.Context, sender relay.Sender, logger *slog.Logger, body string) error {
	payload, err := scrape.Extract(body)
	if err != nil {
		return fmt.Errorf("extract payload: %w", err)
	}

	shareDesc, hasShareDesc := scrape.String(payload, "shareMeta", "desc")
	if hasShareDesc {
		if err := sender.SendText(ctx, "shareMeta.desc:\n\n"+shareDesc); err != nil {
			return fmt.Errorf("send share description: %w", err)
		}
	}

	item, ok := scrape.DeepGet(payload, "itemInfo", "itemStruct")
	if !ok {
		return fmt.Errorf("payload has no itemInfo.itemStruct")
	}

	if desc, ok := scrape.String(item, "desc"); ok && !(hasShareDesc && desc == shareDesc) {
		if err := sender.SendText(ctx, "desc:\n\n"+desc); err != nil {
			return fmt.Errorf("send description: %w", err)
		}
	}

	if err := relayContents(ctx, sender, item); err != nil {
		return err
	}
	if err := relayTimes(ctx, sender, item); err != nil {
		return err
	}

	if err := replyJSON(ctx, sender, logger, item, "stats"); err != nil {
		return err
	}
	if err := replyJSON(ctx, sender, logger, item, "statsV2"); err != nil {
		return err
	}

	if err := relayAuthor(ctx, sender, logger, item); err != nil {
		return err
	}
	if err := replyJSON(ctx, sender, logger, item, "authorStats"); err != nil {
		return err
	}

	if err := relayMusic(ctx, sender, logger, item); err != nil {
		return err
	}

	for _, keys := range [][]string{
		{"video", "subtitleInfos"},
		{"contentLocation"},
		{"poi"},
		{"warnInfo"},
	} {
		if err := replyJSON(ctx, sender, logger, item, keys...); err != nil {
			return err
		}
	}

	return nil
}

// relayContents joins the per-entry descriptions of the contents array and
// sends them as one message when at least one entry contributed.
func relayContents(ctx context.Context, sender relay.Sender, item any) error {
	entries, ok := scrape.DeepGet(item, "contents")
	if !ok {
		return nil
	}
	list, ok := entries.([]any)
	if !ok {
		return nil
	}
	var lines []string
	for _, entry := range list {
		if desc, ok := scrape.String(entry, "desc"); ok {
			lines = append(lines, desc)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	if err := sender.SendText(ctx, "contents:\n\n"+strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("send contents: %w", err)
	}
	return nil
}

// relayTimes accumulates the item's timestamp fields into one message.
// A value of zero counts as absent.
func relayTimes(ctx context.Context, sender relay.Sender, item any) error {
	var b strings.Builder
	for _, key := range []string{"createTime", "scheduleTime", "takeDown"} {
		value, ok := scrape.DeepGet(item, key)
		if !ok {
			continue
		}
		if ts, ok := scrape.ParseTimestamp(value); ok {
			fmt.Fprintf(&b, "%s: %s\n", key, ts.Format("2006-01-02 15:04:05 UTC"))
		}
	}
	if b.Len() == 0 {
		return nil
	}
	if err := sender.SendText(ctx, b.String()); err != nil {
		return fmt.Errorf("send times: %w", err)
	}
	return nil
}

func relayAuthor(ctx context.Context, sender relay.Sender, logger *slog.Logger, item any) error {
	author, ok := scrape.DeepGet(item, "author")
	if !ok {
		return nil
	}

	if avatar, ok := scrape.String(author, "avatarLarger"); ok {
		if err := sender.SendPhoto(ctx, avatar, "author"); err != nil {
			logger.Warn("author avatar not sent", "err", err)
		}
	}

	if signature, ok := scrape.String(author, "signature"); ok {
		if err := sender.SendText(ctx, "author signature:\n\n"+signature); err != nil {
			return fmt.Errorf("send author signature: %w", err)
		}
	}
	return nil
}

func relayMusic(ctx context.Context, sender relay.Sender, logger *slog.Logger, item any) error {
	music, ok := scrape.DeepGet(item, "music")
	if !ok {
		return nil
	}

	caption := "Music behind video\n\n"
	title, hasTitle := scrape.String(music, "title")
	if hasTitle {
		caption += "title: " + title + "\n"
	}
	artist, hasArtist := scrape.String(music, "authorName")
	if hasArtist {
		caption += "authorName: " + artist + "\n"
	}
	if album, ok := scrape.String(music, "album"); ok {
		caption += "album: " + album + "\n"
	}

	if cover, ok := scrape.String(music, "coverLarge"); ok {
		if err := sender.SendPhoto(ctx, cover, caption); err != nil {
			logger.Warn("music cover not sent", "err", err)
		}
	}

	if playURL, ok := scrape.String(music, "playUrl"); ok {
		audio := relay.Audio{
			URL:       playURL,
			Performer: artist,
			Title:     title,
			Caption:   caption,
		}
		if duration, ok := scrape.DeepGet(music, "duration"); ok {
			if secs, isNum := duration.(float64); isNum && secs > 0 {
				audio.Duration = int(secs)
			}
		}
		if err := sender.SendAudio(ctx, audio); err != nil {
			return fmt.Errorf("send music: %w", err)
		}
	}
	return nil
}

// replyJSON relays the sub-tree at the dotted key path as a pretty-printed
// code block. A missing key is logged and skipped; a send failure is
// reported to the chat instead of aborting the relay.
func replyJSON(ctx context.Context, sender relay.Sender, logger *slog.Logger, item any, keys ...string) error {
	header := strings.Join(keys, ".")
	value, ok := scrape.DeepGet(item, keys...)
	if !ok {
		logger.Debug("payload key not present", "key", header)
		return nil
	}
	pretty, err := scrape.Pretty(value)
	if err != nil {
		logger.Debug("payload key not renderable", "key", header, "err", err)
		return nil
	}
	if err := relay.SendChunked(ctx, sender, header, "json", pretty); err != nil {
		notice := fmt.Sprintf("failed to send %s: %v", header, err)
		if err := sender.SendText(ctx, notice); err != nil {
			return fmt.Errorf("report %s send failure: %w", header, err)
		}
	}
	return nil
}
