// Package telegram delivers alert notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/iskwatch/internal/logger"
	"github.com/rewired-gh/iskwatch/internal/notify"
)

// Client is a notify.Platform backed by a Telegram bot and one chat.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// CommandFunc answers a bot command. args is the text after the command.
type CommandFunc func(args string) string

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return newClient(bot, chatIDInt, maxRetries, retryDelayBase), nil
}

func newClient(bot *tgbotapi.BotAPI, chatID int64, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// Permission maps bot reachability onto notification consent: an
// unreachable or revoked bot is denied, a chat the bot cannot see yet (the
// user never pressed /start) is default.
func (c *Client) Permission(ctx context.Context) notify.Permission {
	if ctx.Err() != nil {
		return notify.PermissionDefault
	}
	if _, err := c.bot.GetMe(); err != nil {
		logger.Debug("Telegram bot unreachable: %v", err)
		return notify.PermissionDenied
	}
	if _, err := c.bot.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: c.chatID}}); err != nil {
		logger.Debug("Telegram chat %d not accessible: %v", c.chatID, err)
		return notify.PermissionDefault
	}
	return notify.PermissionGranted
}

// RequestPermission sends a short greeting so the user can confirm the chat
// is wired, then reports the resulting state.
func (c *Client) RequestPermission(ctx context.Context) notify.Permission {
	perm := c.Permission(ctx)
	if perm != notify.PermissionGranted {
		return perm
	}
	if _, err := c.sendMarkdownV2(ctx, "🔔 *iskwatch* notifications enabled"); err != nil {
		logger.Warn("Failed to confirm Telegram notifications: %v", err)
		return notify.PermissionDefault
	}
	return perm
}

// Show sends one alert message and returns a handle that deletes it.
func (c *Client) Show(ctx context.Context, title, body string) (notify.Handle, error) {
	msg, err := c.sendMarkdownV2(ctx, formatAlert(title, body, time.Now()))
	if err != nil {
		return nil, err
	}
	return &messageHandle{client: c, messageID: msg.MessageID}, nil
}

type messageHandle struct {
	client    *Client
	messageID int
}

func (h *messageHandle) Close() error {
	if _, err := h.client.bot.Request(tgbotapi.NewDeleteMessage(h.client.chatID, h.messageID)); err != nil {
		return fmt.Errorf("failed to delete message %d: %w", h.messageID, err)
	}
	return nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context, commands map[string]CommandFunc) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message, commands)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message, commands map[string]CommandFunc) {
	if msg.Chat == nil || msg.Chat.ID != c.chatID {
		return
	}
	var text string
	switch name := msg.Command(); name {
	case "ping":
		text = "Pong"
	default:
		fn, ok := commands[name]
		if !ok {
			return
		}
		text = fn(msg.CommandArguments())
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	c.bot.Send(reply) //nolint:errcheck
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(ctx context.Context, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		sent, err := c.bot.Send(msg)
		if err == nil {
			return sent, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return tgbotapi.Message{}, ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}
	return tgbotapi.Message{}, fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// formatAlert formats one trigger into a Telegram MarkdownV2 message.
func formatAlert(title, body string, at time.Time) string {
	var b strings.Builder
	b.WriteString("🚨 *")
	b.WriteString(escapeMarkdownV2(title))
	b.WriteString("*\n\n")
	b.WriteString(escapeMarkdownV2(body))
	b.WriteString("\n\n📅 ")
	b.WriteString(escapeMarkdownV2(at.UTC().Format("2006-01-02 15:04:05")))
	b.WriteString(" EVE")
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
