package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/xaenox/collect-bot/internal/storage"
)

func parseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	return hour, minute, nil
}

// startScheduler registers the daily publish and fallback cron jobs.
func (b *Bot) startScheduler() error {
	c := cron.New()

	if b.scheduleTime != "" {
		hour, minute, err := parseClock(b.scheduleTime)
		if err != nil {
			b.logger.Warn("Invalid post_schedule_time, deferred posting disabled", zap.Error(err))
		} else {
			if _, err := c.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), b.runScheduledPost); err != nil {
				return fmt.Errorf("failed to schedule posting: %w", err)
			}
			b.logger.Info("Scheduled post registered", zap.String("time", b.scheduleTime))
		}
	}

	fallbackTime := b.fallbackTime
	if fallbackTime == "" {
		fallbackTime = "23:00"
	}
	hour, minute, err := parseClock(fallbackTime)
	if err != nil {
		b.logger.Warn("Invalid fallback_time, using 23:00", zap.Error(err))
		hour, minute = 23, 0
	}
	if _, err := c.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), b.runFallbackCheck); err != nil {
		return fmt.Errorf("failed to schedule fallback check: %w", err)
	}
	b.logger.Info("Fallback check registered", zap.String("time", fallbackTime))

	c.Start()
	return nil
}

// schedulePostOnce runs a single publish at the next occurrence of HH:MM.
func (b *Bot) schedulePostOnce(hour, minute int) {
	now := time.Now()
	runAt := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !runAt.After(now) {
		runAt = runAt.AddDate(0, 0, 1)
	}
	time.AfterFunc(time.Until(runAt), b.runScheduledPost)
}

// runScheduledPost publishes every queued entry. The published flag is set
// before the send so concurrent bot instances don't post the same entry, and
// rolled back when the send fails.
func (b *Bot) runScheduledPost() {
	ctx := context.Background()

	entries, err := b.store.UnpublishedEntries(ctx)
	if err != nil {
		b.logger.Error("Scheduled post: failed to list entries", zap.Error(err))
		return
	}
	if len(entries) == 0 {
		b.logger.Info("Scheduled post: nothing to publish")
		return
	}

	for _, entry := range entries {
		if err := b.store.SetEntryPublished(ctx, entry.ID, true); err != nil {
			b.logger.Error("Scheduled post: failed to mark entry", zap.Error(err), zap.Int64("entry_id", entry.ID))
			continue
		}
		if err := b.sendPhotoToChannel(entry.PhotoFileID, entry.Comment); err != nil {
			b.logger.Error("Scheduled post failed", zap.Error(err), zap.Int64("entry_id", entry.ID))
			if err := b.store.SetEntryPublished(ctx, entry.ID, false); err != nil {
				b.logger.Error("Scheduled post: rollback failed", zap.Error(err), zap.Int64("entry_id", entry.ID))
			}
			continue
		}
		b.logger.Info("Scheduled post: published", zap.Int64("entry_id", entry.ID))
	}
}

// runFallbackCheck posts a stock photo when the owner sent nothing today.
// Same mark-before-send discipline as runScheduledPost.
func (b *Bot) runFallbackCheck() {
	ctx := context.Background()

	owner, err := b.store.OwnerUserID(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		b.logger.Info("Fallback check: no owner yet")
		return
	}
	if err != nil {
		b.logger.Error("Fallback check: failed to resolve owner", zap.Error(err))
		return
	}

	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := b.store.CountEntriesSince(ctx, owner, todayStart)
	if err != nil {
		b.logger.Error("Fallback check: failed to count entries", zap.Error(err))
		return
	}
	if count > 0 {
		b.logger.Info("Fallback check: owner posted today, skipping")
		return
	}

	photo, err := b.store.RandomUnusedFallback(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		b.sendMessage(owner, "No photo today and the stock is empty. Add some: /addstock")
		return
	}
	if err != nil {
		b.logger.Error("Fallback check: failed to pick stock photo", zap.Error(err))
		return
	}

	if err := b.store.SetFallbackUsed(ctx, photo.ID, true); err != nil {
		b.logger.Error("Fallback check: failed to mark photo used", zap.Error(err), zap.Int64("fallback_id", photo.ID))
		return
	}
	if err := b.sendPhotoToChannel(photo.PhotoFileID, ""); err != nil {
		b.logger.Error("Fallback post failed", zap.Error(err), zap.Int64("fallback_id", photo.ID))
		if err := b.store.SetFallbackUsed(ctx, photo.ID, false); err != nil {
			b.logger.Error("Fallback check: rollback failed", zap.Error(err), zap.Int64("fallback_id", photo.ID))
		}
		return
	}

	remaining, _ := b.store.CountUnusedFallback(ctx, photo.UserID)
	b.sendMessage(photo.UserID, fmt.Sprintf("No photo today — a stock photo went to the channel ✓ %d left in stock. Top up: /addstock", remaining))
	b.logger.Info("Fallback posted", zap.Int64("fallback_id", photo.ID), zap.Int("remaining", remaining))
}

func (b *Bot) sendPhotoToChannel(fileID, caption string) error {
	var msg tgbotapi.PhotoConfig
	if b.channelName != "" {
		msg = tgbotapi.NewPhotoToChannel(b.channelName, tgbotapi.FileID(fileID))
	} else {
		msg = tgbotapi.NewPhoto(b.channelID, tgbotapi.FileID(fileID))
	}
	msg.Caption = caption
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to post photo to channel: %w", err)
	}
	return nil
}

func (b *Bot) sendTextToChannel(text string) error {
	var msg tgbotapi.MessageConfig
	if b.channelName != "" {
		msg = tgbotapi.NewMessageToChannel(b.channelName, text)
	} else {
		msg = tgbotapi.NewMessage(b.channelID, text)
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to post to channel: %w", err)
	}
	return nil
}
