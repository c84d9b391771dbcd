package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fitcoach/pkg/logger"
)

// generationTimeout bounds one command, including a full plan generation.
const generationTimeout = 2 * time.Minute

type TelegramBot struct {
	bot      *tgbotapi.BotAPI
	commands *Commands
	logger   *logger.Logger
}

func NewTelegramBot(token string, svc Service, logger *logger.Logger) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	logger.Infow("Authorized on Telegram", "username", bot.Self.UserName)

	return &TelegramBot{
		bot:      bot,
		commands: NewCommands(svc, NewHistory(), logger),
		logger:   logger,
	}, nil
}

// Start removes any webhook and begins long polling for updates.
func (t *TelegramBot) Start(ctx context.Context) error {
	_, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := t.bot.GetUpdatesChan(updateConfig)

	t.logger.Infow("Started receiving Telegram updates")

	go t.handleUpdates(ctx, updates)
	return nil
}

func (t *TelegramBot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil || update.Message.From == nil {
			continue
		}
		go func(msg *tgbotapi.Message) {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Errorw("Recovered from panic while processing update", "error", r)
				}
			}()
			t.handleMessage(ctx, msg)
		}(update.Message)
	}
}

func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	in := Incoming{
		ChatID:     chatID,
		TelegramID: message.From.ID,
		Text:       message.Text,
	}
	if message.IsCommand() {
		in.Command = message.Command()
	}

	if in.Command == "workout" || in.Command == "meal" || in.Command == "" {
		if _, err := t.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
			t.logger.Warnw("Failed to send chat action", "chat_id", chatID, "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	reply := t.commands.Handle(ctx, in)
	for _, part := range splitMessage(reply, telegramLimit) {
		msg := tgbotapi.NewMessage(chatID, part)
		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Errorw("Failed to send message", "chat_id", chatID, "error", err)
			return
		}
	}
}

// Stop stops polling and gives in-flight handlers a moment to finish.
func (t *TelegramBot) Stop(ctx context.Context) error {
	t.bot.StopReceivingUpdates()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}
