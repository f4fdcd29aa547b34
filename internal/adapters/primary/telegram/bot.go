// Package telegram drives the bot's update loop: it long-polls Telegram,
// translates updates into port messages and hands them to the dialog
// service.
package telegram

import (
	"context"
	"errors"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
	"github.com/lorrc/field-dispatch-bot/internal/core/ports"
)

const updateTimeoutSeconds = 30

// Bot consumes Telegram updates and routes them to the dialog service.
type Bot struct {
	api    *tgbotapi.BotAPI
	dialog ports.DialogService
	logger *slog.Logger
}

// NewBot creates the update router.
func NewBot(api *tgbotapi.BotAPI, dialog ports.DialogService, logger *slog.Logger) *Bot {
	return &Bot{api: api, dialog: dialog, logger: logger}
}

// Run registers the command menu and processes updates until ctx is
// cancelled. Handler errors are logged, never fatal: one broken update
// must not take the bot down.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.registerCommands(); err != nil {
		b.logger.Warn("failed to register command menu", "error", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeoutSeconds
	updates := b.api.GetUpdatesChan(cfg)

	b.logger.Info("telegram update loop started", "bot", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) registerCommands() error {
	commands := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "signup", Description: "Link this chat to a technician account"},
		tgbotapi.BotCommand{Command: "my_tasks", Description: "Show your open tickets"},
		tgbotapi.BotCommand{Command: "tasks", Description: "Send the open ticket report"},
		tgbotapi.BotCommand{Command: "cancel", Description: "Abort the current dialog"},
	)
	_, err := b.api.Request(commands)
	return err
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	in := toPortMessage(msg)

	var err error
	if msg.IsCommand() {
		err = b.dialog.HandleCommand(ctx, msg.Command(), in)
	} else {
		err = b.dialog.HandleText(ctx, in)
	}
	if err != nil {
		b.logger.Error("message handling failed",
			"chat_id", in.ChatID,
			"command", msg.Command(),
			"error", err,
		)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Answer first so the client stops its spinner even when handling
	// fails afterwards.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("callback answer failed", "error", err)
	}

	if query.Message == nil {
		return
	}

	payload, err := domain.ParseCallbackPayload(query.Data)
	if err != nil {
		b.logger.Warn("unparseable callback payload",
			"data", query.Data,
			"chat_id", query.Message.Chat.ID,
			"error", err,
		)
		return
	}

	in := ports.Message{
		ChatID:    query.Message.Chat.ID,
		ChatType:  query.Message.Chat.Type,
		MessageID: query.Message.MessageID,
		UserID:    query.From.ID,
		FirstName: query.From.FirstName,
		LastName:  query.From.LastName,
		Username:  query.From.UserName,
	}
	if err := b.dialog.HandleCallback(ctx, in, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		b.logger.Error("callback handling failed",
			"chat_id", in.ChatID,
			"kind", string(payload.Kind),
			"error", err,
		)
	}
}

func toPortMessage(msg *tgbotapi.Message) ports.Message {
	return ports.Message{
		ChatID:    msg.Chat.ID,
		ChatType:  msg.Chat.Type,
		MessageID: msg.MessageID,
		UserID:    msg.From.ID,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Username:  msg.From.UserName,
		Text:      msg.Text,
	}
}
