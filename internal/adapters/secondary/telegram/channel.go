// Package telegram implements the MessageChannel port over the Telegram
// Bot API.
package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/lorrc/field-dispatch-bot/internal/core/ports"
)

// Channel sends messages through a Telegram bot. All outgoing calls pass
// a shared rate limiter to stay under Telegram's global send limit.
type Channel struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ ports.MessageChannel = (*Channel)(nil)

// NewChannel wraps a bot API client. messagesPerSecond bounds the
// outgoing call rate; Telegram allows roughly 30 messages per second
// bot-wide.
func NewChannel(bot *tgbotapi.BotAPI, messagesPerSecond float64, logger *slog.Logger) *Channel {
	return &Channel{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(messagesPerSecond), 1),
		logger:  logger,
	}
}

// SendText sends a plain or HTML-formatted message to the chat.
func (c *Channel) SendText(ctx context.Context, chatID int64, text string, html bool) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if html {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	return c.send(ctx, msg)
}

// SendTextWithButtons sends a message carrying an inline keyboard. Each
// inner slice of rows becomes one keyboard row.
func (c *Channel) SendTextWithButtons(ctx context.Context, chatID int64, text string, html bool, rows [][]ports.Button) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if html {
		msg.ParseMode = tgbotapi.ModeHTML
	}

	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Payload.Encode()))
		}
		keyboard = append(keyboard, buttons)
	}
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)

	return c.send(ctx, msg)
}

// SendDocument uploads the file at path to the chat.
func (c *Channel) SendDocument(ctx context.Context, chatID int64, path string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	return c.send(ctx, doc)
}

// DeleteMessage removes a previously sent message.
func (c *Channel) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// ClearButtons strips the inline keyboard from a sent message, leaving
// the text in place.
func (c *Channel) ClearButtons(ctx context.Context, chatID int64, messageID int) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	markup := tgbotapi.NewInlineKeyboardMarkup([]tgbotapi.InlineKeyboardButton{})
	_, err := c.bot.Request(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, markup))
	return err
}

func (c *Channel) send(ctx context.Context, msg tgbotapi.Chattable) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := c.bot.Send(msg); err != nil {
		c.logger.Error("telegram send failed", "error", err)
		return err
	}
	return nil
}
