// Package bot runs the long-poll dispatch loop: it pulls updates, applies
// the access policy and chat-type rules, and routes eligible messages into
// the URL inspection pipeline.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"linkpeek/internal/config"
	"linkpeek/internal/download"
	"linkpeek/internal/inspect"
	"linkpeek/internal/metrics"
)

const farewellText = "Adding a random bot as an admin to your channel is maybe not the best idea…\n\nSincerely, a random bot, added as an admin to this channel."

const rejectionText = "This bot does not have any information about you (%d) and therefore doesn't serve you. If you think this is a mistake you need to message the admins about this yourself. This usage attempt is not stored."

// Bot ties the Telegram transport to the inspection pipeline.
type Bot struct {
	api            *tgbotapi.BotAPI
	policy         AccessPolicy
	inspector      *inspect.Client
	downloader     *download.Runner
	platformSuffix string
	pollTimeout    int
	logger         *slog.Logger

	// senderFor builds the reply transport for one message. Swappable in
	// tests.
	senderFor func(msg *tgbotapi.Message) download.Transport
}

func New(cfg *config.Config, logger *slog.Logger) (*Bot, error) {
	policy, err := NewAccessPolicy(cfg.Access.Mode, cfg.Access.Chats)
	if err != nil {
		return nil, err
	}
	if policy.Open() {
		logger.Warn("access mode is open, serving every chat")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	inspector := inspect.NewClient(inspect.Options{
		UserAgent:    cfg.Inspect.UserAgent,
		Timeout:      time.Duration(cfg.Inspect.TimeoutSeconds) * time.Second,
		MaxBodyBytes: cfg.Inspect.MaxBodyBytes,
	})

	var downloader *download.Runner
	if cfg.Downloader.Enabled {
		downloader = download.NewRunner(cfg.Downloader.Command, cfg.Downloader.TempDir, logger)
	}

	b := &Bot{
		api:            api,
		policy:         policy,
		inspector:      inspector,
		downloader:     downloader,
		platformSuffix: cfg.Platform.DomainSuffix,
		pollTimeout:    cfg.Telegram.PollTimeoutSeconds,
		logger:         logger,
	}
	b.senderFor = func(msg *tgbotapi.Message) download.Transport {
		return replySender{api: api, chatID: msg.Chat.ID, replyTo: msg.MessageID}
	}
	return b, nil
}

// Run polls for updates until ctx is cancelled. Transport failures of the
// poll itself, of rejection notices, and of error notices are unrecoverable
// and end the loop; everything else is contained per update.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("bot connected", "username", b.api.Self.UserName, "id", b.api.Self.ID)

	// The bot has no commands; clear leftovers from earlier deployments.
	if _, err := b.api.Request(tgbotapi.DeleteMyCommandsConfig{}); err != nil {
		return fmt.Errorf("delete bot commands: %w", err)
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			b.logger.Info("dispatch loop stopping")
			return err
		}

		updates, err := b.api.GetUpdates(tgbotapi.UpdateConfig{
			Offset:  offset,
			Timeout: b.pollTimeout,
		})
		if err != nil {
			return fmt.Errorf("getUpdates: %w", err)
		}

		for _, update := range updates {
			// Acknowledge before processing so a crash mid-batch does not
			// replay updates that already ran.
			offset = update.UpdateID + 1
			if err := b.handleUpdate(ctx, update); err != nil {
				return err
			}
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.ChannelPost != nil:
		metrics.UpdatesTotal.WithLabelValues("channel_post").Inc()
		b.leaveIfChannel(update.ChannelPost.Chat)
	case update.EditedChannelPost != nil:
		metrics.UpdatesTotal.WithLabelValues("channel_post").Inc()
		b.leaveIfChannel(update.EditedChannelPost.Chat)
	case update.MyChatMember != nil:
		metrics.UpdatesTotal.WithLabelValues("chat_member").Inc()
		chat := update.MyChatMember.Chat
		b.leaveIfChannel(&chat)
	case update.ChatMember != nil:
		metrics.UpdatesTotal.WithLabelValues("chat_member").Inc()
		chat := update.ChatMember.Chat
		b.leaveIfChannel(&chat)
	case update.Message != nil:
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
		return b.handleMessage(ctx, update.Message)
	case update.EditedMessage != nil:
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
		return b.handleMessage(ctx, update.EditedMessage)
	default:
		metrics.UpdatesTotal.WithLabelValues("other").Inc()
	}
	return nil
}

// leaveIfChannel says goodbye and leaves. Both results are discarded on
// purpose: the bot may already have been removed from the channel.
func (b *Bot) leaveIfChannel(chat *tgbotapi.Chat) {
	if chat == nil || !chat.IsChannel() {
		return
	}
	_, _ = b.api.Send(tgbotapi.NewMessage(chat.ID, farewellText))
	_, _ = b.api.Request(tgbotapi.LeaveChatConfig{ChatID: chat.ID})
	b.logger.Info("left channel", "chat_id", chat.ID)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	if !b.policy.Allowed(chatID) {
		metrics.RejectedChatsTotal.Inc()
		b.logger.Warn("chat not allow-listed", "chat_id", chatID)
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf(rejectionText, chatID))); err != nil {
			return fmt.Errorf("send rejection notice: %w", err)
		}
		return nil
	}

	_, _ = b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	if err := b.routeMessage(ctx, msg); err != nil {
		b.logger.Warn("message routing failed", "chat_id", chatID, "err", err)
		reply := tgbotapi.NewMessage(chatID, err.Error())
		reply.ReplyToMessageID = msg.MessageID
		if _, sendErr := b.api.Send(reply); sendErr != nil {
			return fmt.Errorf("send error notice: %w", sendErr)
		}
	}
	return nil
}
