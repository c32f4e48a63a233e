package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/collect-bot/internal/models"
	"github.com/xaenox/collect-bot/internal/rapa"
	"github.com/xaenox/collect-bot/internal/session"
	"github.com/xaenox/collect-bot/internal/storage"
	"github.com/xaenox/collect-bot/pkg/config"
)

// Telegram rejects messages longer than 4096 chars; reviews are cut a bit
// below that.
const messageLimit = 4000

type Bot struct {
	api      *tgbotapi.BotAPI
	store    storage.Storage
	triage   *rapa.Service
	reviewer *rapa.Reviewer
	sessions *session.Store
	logger   *zap.Logger

	channelID    int64
	channelName  string
	scheduleTime string
	fallbackTime string
}

func New(cfg config.TelegramConfig, store storage.Storage, triage *rapa.Service, reviewer *rapa.Reviewer, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		api:          api,
		store:        store,
		triage:       triage,
		reviewer:     reviewer,
		sessions:     session.NewStore(),
		logger:       logger,
		scheduleTime: cfg.PostScheduleTime,
		fallbackTime: cfg.FallbackTime,
	}

	if channel := strings.TrimSpace(cfg.ChannelID); channel != "" {
		if strings.HasPrefix(channel, "@") {
			b.channelName = channel
		} else {
			id, err := strconv.ParseInt(channel, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid channel_id %q: %w", channel, err)
			}
			b.channelID = id
		}
	}

	return b, nil
}

func (b *Bot) channelConfigured() bool {
	return b.channelID != 0 || b.channelName != ""
}

func (b *Bot) Start() error {
	if b.channelConfigured() {
		if err := b.startScheduler(); err != nil {
			return err
		}
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		go b.handleMessage(update.Message)
	}

	return nil
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	ctx := context.Background()

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	// Forwarded channel posts answer the /channelid flow.
	if message.ForwardFromChat != nil && message.ForwardFromChat.IsChannel() {
		b.handleForwardedFromChannel(message)
		return
	}

	if len(message.Photo) > 0 {
		b.handlePhoto(ctx, message)
		return
	}

	if message.Text != "" {
		b.handleText(ctx, message)
	}
}

func (b *Bot) userID(message *tgbotapi.Message) int64 {
	if message.From == nil {
		return 0
	}
	return message.From.ID
}

// handleText turns a plain message into a Raw note and immediately proposes
// a classification for it.
func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	userID := b.userID(message)

	note, err := b.triage.Ingest(ctx, rapa.IngestRequest{
		UserID:  userID,
		ChatID:  message.Chat.ID,
		Content: message.Text,
		Source:  "Telegram",
	})
	if err != nil {
		b.logger.Error("Failed to save raw note",
			zap.Error(err),
			zap.Int64("user_id", userID))
		b.sendReply(message, "⚠️ Couldn't save that. Please try again later.")
		return
	}

	b.sendReply(message, formatIngestReply(note))
}

func formatIngestReply(note *models.Note) string {
	text := fmt.Sprintf("Saved raw note #%d ✓", note.ID)
	if note.Stage == models.StageAssign {
		text += fmt.Sprintf("\nProposed: %s → %s", note.GTDType, note.ParaType)
	}
	if len(note.Tags) > 0 {
		text += "\nTags: #" + strings.Join(note.Tags, " #")
	}
	return text
}

// handlePhoto stores the photo either as a collect entry or, in stock mode,
// as a fallback photo.
func (b *Bot) handlePhoto(ctx context.Context, message *tgbotapi.Message) {
	userID := b.userID(message)

	// Largest size last in the Photo slice.
	photo := message.Photo[len(message.Photo)-1]

	if b.sessions.Get(userID) == session.ModeAddingStock {
		err := b.store.AddFallbackPhoto(ctx, &models.FallbackPhoto{
			UserID:      userID,
			PhotoFileID: photo.FileID,
		})
		if err != nil {
			b.logger.Error("Failed to add fallback photo", zap.Error(err), zap.Int64("user_id", userID))
			b.sendReply(message, "⚠️ Couldn't save the stock photo. Please try again later.")
			return
		}
		count, _ := b.store.CountUnusedFallback(ctx, userID)
		b.sendReply(message, fmt.Sprintf("Added to stock ✓ %d photo(s) in stock. Send more or /done to finish.", count))
		return
	}

	entry := &models.CollectEntry{
		UserID:      userID,
		ChatID:      message.Chat.ID,
		MessageID:   message.MessageID,
		PhotoFileID: photo.FileID,
		Comment:     message.Caption,
	}
	if err := b.store.SaveEntry(ctx, entry); err != nil {
		b.logger.Error("Failed to save entry", zap.Error(err), zap.Int64("user_id", userID))
		b.sendReply(message, "⚠️ Couldn't save it. Please try again later.")
		return
	}

	if !b.channelConfigured() {
		b.sendReply(message, "Got your day ✓")
		return
	}

	if b.scheduleTime != "" {
		b.sendReply(message, fmt.Sprintf("Got your day ✓ It goes to the channel at %s. Want it now — /postnow.", b.scheduleTime))
		return
	}

	// Immediate publish; the flag is only set once the send succeeded.
	if err := b.sendPhotoToChannel(photo.FileID, message.Caption); err != nil {
		b.logger.Error("Channel post failed", zap.Error(err), zap.Int64("entry_id", entry.ID))
		b.sendReply(message, "Saved it, but couldn't post to the channel.\nIs the bot an admin with the \"Post messages\" right? /testchannel to check.")
		return
	}
	if err := b.store.SetEntryPublished(ctx, entry.ID, true); err != nil {
		b.logger.Error("Failed to mark entry published", zap.Error(err), zap.Int64("entry_id", entry.ID))
	}
	b.sendReply(message, "Got your day and posted it to the channel ✓")
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendReply(message *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}
