package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/collect-bot/internal/rapa"
	"github.com/xaenox/collect-bot/internal/session"
	"github.com/xaenox/collect-bot/internal/storage"
)

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start", "help":
		b.handleStart(message)
	case "review":
		b.handleReview(ctx, message)
	case "addstock":
		b.handleAddStock(ctx, message)
	case "done":
		b.handleDone(ctx, message)
	case "stock":
		b.handleStock(ctx, message)
	case "mylist":
		b.handleMyList(ctx, message)
	case "cancel":
		b.handleCancel(ctx, message)
	case "postnow":
		b.handlePostNow(ctx, message)
	case "postat":
		b.handlePostAt(ctx, message)
	case "channelid":
		b.handleChannelID(message)
	case "testchannel":
		b.handleTestChannel(message)
	default:
		b.sendReply(message, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	scheduleHint := ""
	if b.scheduleTime != "" {
		scheduleHint = fmt.Sprintf("\nChannel posts are deferred until %s.", b.scheduleTime)
	}
	b.sendReply(message, `Hi. Send a photo with a caption and I'll keep it as a slice of your day.
Send a plain text message and it lands in the Raw inbox with a proposed classification.`+scheduleHint+`

/review daily|weekly|monthly — RAPA review
/postnow — publish queued photos now
/postat 18:30 — publish at the given time
/mylist — queued photos
/cancel [n] — cancel a queued photo
/addstock — add stock photos (posted when a day passes without one)
/done — leave stock mode
/stock — how many stock photos are left
/channelid — channel ID for the config`)
}

func (b *Bot) handleReview(ctx context.Context, message *tgbotapi.Message) {
	period := strings.ToLower(strings.TrimSpace(message.CommandArguments()))

	var (
		text string
		err  error
	)
	switch period {
	case "week", "weekly":
		text, err = b.reviewer.Weekly(ctx, b.userID(message))
	case "month", "monthly":
		text, err = b.reviewer.Monthly(ctx, b.userID(message))
	default:
		text, err = b.reviewer.Daily(ctx, b.userID(message))
	}
	if err != nil {
		b.logger.Error("Failed to build review",
			zap.Error(err),
			zap.Int64("user_id", b.userID(message)))
		b.sendReply(message, "⚠️ Couldn't build the review. Please try again later.")
		return
	}

	b.sendReply(message, rapa.Preview(text, messageLimit))
}

func (b *Bot) handleAddStock(ctx context.Context, message *tgbotapi.Message) {
	userID := b.userID(message)
	b.sessions.Set(userID, session.ModeAddingStock)
	count, _ := b.store.CountUnusedFallback(ctx, userID)
	b.sendReply(message, fmt.Sprintf("Stock mode is on. Every photo you send goes to the stock. Finish with /done.\nIn stock now: %d", count))
}

func (b *Bot) handleDone(ctx context.Context, message *tgbotapi.Message) {
	userID := b.userID(message)
	b.sessions.Reset(userID)
	count, _ := b.store.CountUnusedFallback(ctx, userID)
	b.sendReply(message, fmt.Sprintf("Done. %d photo(s) left in stock.", count))
}

func (b *Bot) handleStock(ctx context.Context, message *tgbotapi.Message) {
	count, err := b.store.CountUnusedFallback(ctx, b.userID(message))
	if err != nil {
		b.logger.Error("Failed to count stock", zap.Error(err))
		b.sendReply(message, "⚠️ Couldn't check the stock. Please try again later.")
		return
	}
	b.sendReply(message, fmt.Sprintf("In stock: %d. Top up with /addstock.", count))
}

func (b *Bot) handleMyList(ctx context.Context, message *tgbotapi.Message) {
	entries, err := b.store.UnpublishedEntriesForUser(ctx, b.userID(message))
	if err != nil {
		b.logger.Error("Failed to list entries", zap.Error(err))
		b.sendReply(message, "⚠️ Couldn't load the list. Please try again later.")
		return
	}
	if len(entries) == 0 {
		b.sendReply(message, "No queued photos.")
		return
	}

	lines := make([]string, 0, len(entries))
	for i, entry := range entries {
		line := fmt.Sprintf("%d. id=%d", i+1, entry.ID)
		if comment := strings.TrimSpace(entry.Comment); comment != "" {
			line += " — " + rapa.Preview(comment, 30)
		}
		lines = append(lines, line)
	}
	b.sendReply(message, "Queued photos:\n\n"+strings.Join(lines, "\n")+"\n\n/cancel N — cancel #N")
}

func (b *Bot) handleCancel(ctx context.Context, message *tgbotapi.Message) {
	userID := b.userID(message)

	entries, err := b.store.UnpublishedEntriesForUser(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to list entries", zap.Error(err))
		b.sendReply(message, "⚠️ Couldn't load the list. Please try again later.")
		return
	}
	if len(entries) == 0 {
		b.sendReply(message, "No queued photos to cancel.")
		return
	}

	args := strings.TrimSpace(message.CommandArguments())
	index := 0
	if args != "" {
		num, err := strconv.Atoi(args)
		if err != nil {
			b.sendReply(message, "Give me a number: /cancel 2")
			return
		}
		if num < 1 || num > len(entries) {
			b.sendReply(message, fmt.Sprintf("Pick a number between 1 and %d.", len(entries)))
			return
		}
		index = num - 1
	}

	err = b.store.CancelEntry(ctx, entries[index].ID, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		b.sendReply(message, "Couldn't cancel it.")
	case err != nil:
		b.logger.Error("Failed to cancel entry", zap.Error(err), zap.Int64("entry_id", entries[index].ID))
		b.sendReply(message, "Couldn't cancel it.")
	case args != "":
		b.sendReply(message, fmt.Sprintf("Cancelled photo #%d.", index+1))
	default:
		b.sendReply(message, "Cancelled the last photo.")
	}
}

func (b *Bot) handlePostNow(ctx context.Context, message *tgbotapi.Message) {
	if !b.channelConfigured() {
		b.sendReply(message, "channel_id is not configured")
		return
	}
	entries, err := b.store.UnpublishedEntries(ctx)
	if err != nil {
		b.logger.Error("Failed to list entries", zap.Error(err))
		b.sendReply(message, "⚠️ Couldn't load the queue. Please try again later.")
		return
	}
	if len(entries) == 0 {
		b.sendReply(message, "Nothing queued to publish.")
		return
	}
	b.sendReply(message, fmt.Sprintf("Publishing %d post(s)...", len(entries)))
	b.runScheduledPost()
	b.sendReply(message, "Done ✓")
}

func (b *Bot) handlePostAt(ctx context.Context, message *tgbotapi.Message) {
	if !b.channelConfigured() {
		b.sendReply(message, "channel_id is not configured")
		return
	}

	args := strings.TrimSpace(message.CommandArguments())
	hour, minute, err := parseClock(args)
	if err != nil {
		b.sendReply(message, "Format: /postat HH:MM (for example /postat 18:30)")
		return
	}

	entries, err := b.store.UnpublishedEntries(ctx)
	if err != nil {
		b.logger.Error("Failed to list entries", zap.Error(err))
		b.sendReply(message, "⚠️ Couldn't load the queue. Please try again later.")
		return
	}
	if len(entries) == 0 {
		b.sendReply(message, "Nothing queued.")
		return
	}

	b.schedulePostOnce(hour, minute)
	b.sendReply(message, fmt.Sprintf("Will publish %d post(s) at %s ✓", len(entries), args))
}

func (b *Bot) handleChannelID(message *tgbotapi.Message) {
	b.sendReply(message, "Forward me any post from your channel and I'll reply with its ID for the config.")
}

func (b *Bot) handleForwardedFromChannel(message *tgbotapi.Message) {
	chat := message.ForwardFromChat
	b.sendReply(message, fmt.Sprintf("Channel \"%s\" ID:\n\n%d\n\nPut it in the config:\nCHANNEL_ID=%d", chat.Title, chat.ID, chat.ID))
}

func (b *Bot) handleTestChannel(message *tgbotapi.Message) {
	if !b.channelConfigured() {
		b.sendReply(message, "channel_id is not configured")
		return
	}
	if err := b.sendTextToChannel("Test from Collect bot — if you can see this, channel posts work ✓"); err != nil {
		b.logger.Error("Test channel failed", zap.Error(err))
		b.sendReply(message, fmt.Sprintf("Channel post failed:\n%v", err))
		return
	}
	b.sendReply(message, "Message sent. Check the channel.")
}
