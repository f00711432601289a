package bot

import (
	"context"
	"fmt"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"linkpeek/internal/media"
	"linkpeek/internal/relay"
)

// replySender delivers replies to one inbound message. It implements
// relay.Sender and download.Transport on top of the Bot API.
type replySender struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	replyTo int
}

func (r replySender) SendText(_ context.Context, text string) error {
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ReplyToMessageID = r.replyTo
	msg.DisableWebPagePreview = true
	_, err := r.api.Send(msg)
	return err
}

func (r replySender) SendCode(_ context.Context, header, language, code string) error {
	text := code
	offset := 0
	if header != "" {
		text = header + ":\n" + code
		offset = utf16Len(header) + len(":\n")
	}
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ReplyToMessageID = r.replyTo
	msg.DisableWebPagePreview = true
	// Entity offsets and lengths are counted in UTF-16 code units.
	msg.Entities = []tgbotapi.MessageEntity{{
		Type:     "pre",
		Offset:   offset,
		Length:   utf16Len(code),
		Language: language,
	}}
	_, err := r.api.Send(msg)
	return err
}

func (r replySender) SendPhoto(_ context.Context, fileURL, caption string) error {
	photo := tgbotapi.NewPhoto(r.chatID, tgbotapi.FileURL(fileURL))
	photo.ReplyToMessageID = r.replyTo
	photo.Caption = caption
	_, err := r.api.Send(photo)
	return err
}

func (r replySender) SendAudio(_ context.Context, a relay.Audio) error {
	audio := tgbotapi.NewAudio(r.chatID, tgbotapi.FileURL(a.URL))
	audio.ReplyToMessageID = r.replyTo
	audio.Duration = a.Duration
	audio.Performer = a.Performer
	audio.Title = a.Title
	audio.Caption = a.Caption
	_, err := r.api.Send(audio)
	return err
}

func (r replySender) NotifyUploading(_ context.Context) error {
	_, err := r.api.Request(tgbotapi.NewChatAction(r.chatID, tgbotapi.ChatUploadVideo))
	return err
}

func (r replySender) SendVideoFile(_ context.Context, path string, st media.Stats) error {
	video := tgbotapi.NewVideo(r.chatID, tgbotapi.FilePath(path))
	video.ReplyToMessageID = r.replyTo
	video.Duration = st.Duration
	video.SupportsStreaming = true
	if st.Width > 0 && st.Height > 0 {
		video.Caption = fmt.Sprintf("%dx%d", st.Width, st.Height)
	}
	_, err := r.api.Send(video)
	return err
}

func (r replySender) SendStatus(ctx context.Context, text string) (int, error) {
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ReplyToMessageID = r.replyTo
	sent, err := r.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (r replySender) EditStatus(_ context.Context, messageID int, text string) error {
	_, err := r.api.Request(tgbotapi.NewEditMessageText(r.chatID, messageID, text))
	return err
}

func (r replySender) DeleteStatus(_ context.Context, messageID int) error {
	_, err := r.api.Request(tgbotapi.NewDeleteMessage(r.chatID, messageID))
	return err
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
