// Package download invokes the external downloader on a platform URL and
// relays the produced files and tool output back to the chat.
package download

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"linkpeek/internal/media"
	"linkpeek/internal/relay"
)

// Transport is what the relay needs from the chat transport beyond plain
// replies: upload progress, a mutable status message, and file uploads.
type Transport interface {
	relay.Sender

	// NotifyUploading signals an upload in progress to the chat.
	NotifyUploading(ctx context.Context) error

	// SendVideoFile uploads a local video annotated with its probed stats
	// and returns when the transport accepted it.
	SendVideoFile(ctx context.Context, path string, st media.Stats) error

	// SendStatus posts a progress message and returns its message ID.
	SendStatus(ctx context.Context, text string) (int, error)

	// EditStatus rewrites a previously posted status message.
	EditStatus(ctx context.Context, messageID int, text string) error

	// DeleteStatus removes a previously posted status message.
	DeleteStatus(ctx context.Context, messageID int) error
}

// Runner wraps one downloader configuration.
type Runner struct {
	command string
	tempDir string
	logger  *slog.Logger
	probe   func(ctx context.Context, path string) (media.Stats, error)
}

func NewRunner(command, tempDir string, logger *slog.Logger) *Runner {
	return &Runner{
		command: command,
		tempDir: tempDir,
		logger:  logger,
		probe:   media.Probe,
	}
}

// Relay downloads url into a scratch directory, uploads every produced file
// as a video, and relays the tool's stdout and stderr as chunked text.
// Failures on individual files are reported to the chat and do not stop the
// remaining files.
func (r *Runner) Relay(ctx context.Context, t Transport, url string) error {
	dir, err := os.MkdirTemp("", "linkpeek-dl-")
	if err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	defer os.RemoveAll(dir)

	statusID, err := t.SendStatus(ctx, "Start "+r.command+"…")
	if err != nil {
		return fmt.Errorf("send downloader status: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.command,
		"--embed-chapters",
		"--embed-metadata",
		"--embed-subs",
		"--sub-langs=all",
		"--sponsorblock-remove=default",
		"--paths=temp:"+r.tempDir,
		"--no-progress",
		"--no-playlist",
		"--restrict-filenames",
		"--trim-filenames=80",
		"--format-sort=vcodec:h264,+size,+br,+res,+fps",
		url,
	)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	if err := r.sendFiles(ctx, t, dir); err != nil {
		return err
	}

	if runErr == nil {
		if err := t.DeleteStatus(ctx, statusID); err != nil {
			r.logger.Warn("downloader status not deleted", "err", err)
		}
	} else {
		if err := t.EditStatus(ctx, statusID, fmt.Sprintf("%s: %v", r.command, runErr)); err != nil {
			return fmt.Errorf("edit downloader status: %w", err)
		}
	}

	if out := stdout.String(); out != "" {
		if err := relay.SendChunked(ctx, t, r.command+" stdout", "plaintext", out); err != nil {
			return err
		}
	}
	if errOut := stderr.String(); errOut != "" {
		if err := relay.SendChunked(ctx, t, r.command+" stderr", "plaintext", errOut); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) sendFiles(ctx context.Context, t Transport, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read download dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		if err := t.NotifyUploading(ctx); err != nil {
			return err
		}

		st, err := r.probe(ctx, path)
		if err != nil {
			if err := t.SendText(ctx, fmt.Sprintf("Failed to get video stats from %s: %v", entry.Name(), err)); err != nil {
				return err
			}
			continue
		}

		if err := t.SendVideoFile(ctx, path, st); err != nil {
			if err := t.SendText(ctx, fmt.Sprintf("Failed to send downloaded video: %v", err)); err != nil {
				return err
			}
		}
	}
	return nil
}
