// Package telegram delivers due reminders and the morning digest to a
// configured chat.
package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Client sends calendar messages to a single Telegram chat.
type Client struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewClient authorizes against the Bot API. An empty token or chat id
// yields an unconfigured client whose Send drops messages.
func NewClient(token string, chatID int64, logger *zap.Logger) (*Client, error) {
	c := &Client{chatID: chatID, logger: logger}
	if token == "" || chatID == 0 {
		return c, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger.Info("telegram authorized", zap.String("username", api.Self.UserName))

	c.api = api
	return c, nil
}

// IsConfigured reports whether messages will actually be delivered.
func (c *Client) IsConfigured() bool {
	return c.api != nil && c.chatID != 0
}

// Send delivers a plain-text message to the configured chat.
func (c *Client) Send(text string) error {
	if !c.IsConfigured() {
		c.logger.Debug("telegram not configured, dropping message")
		return nil
	}

	msg := tgbotapi.NewMessage(c.chatID, text)
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
