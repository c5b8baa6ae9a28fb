// Package telegram delivers prompts as ports.Messenger through the Bot API
// and turns webhook updates into domain events.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/staffgate/internal/logging"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/ports"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Client wraps a bot.Bot. Updates arrive through the webhook, so the
// client never polls.
type Client struct {
	token  string
	api    *bot.Bot
	logger *slog.Logger
}

var _ ports.Messenger = (*Client)(nil)

type options struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL points the client at another Bot API server.
func WithBaseURL(base string) Option {
	return func(o *options) {
		if base != "" {
			o.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(o *options) {
		if h != nil {
			o.http = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates a client for the bot identified by token. No request is
// made until the first call.
func New(token string, opts ...Option) (*Client, error) {
	o := options{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	api, err := bot.New(token,
		bot.WithServerURL(o.baseURL),
		bot.WithHTTPClient(0, o.http),
		bot.WithSkipGetMe(),
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", redact(err, token))
	}
	return &Client{token: token, api: api, logger: o.logger}, nil
}

// wrap labels err with the Bot API method and strips the token, which
// transport errors carry inside the request URL.
func (c *Client) wrap(method string, err error) error {
	if err == nil {
		c.logger.Debug("telegram call", "method", method)
		return nil
	}
	return fmt.Errorf("telegram %s: %w", method, redact(err, c.token))
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<token>"), err: err}
}

// SendMessage implements ports.Messenger.
func (c *Client) SendMessage(ctx context.Context, to domain.Identity, p domain.Prompt) (domain.MessageRef, error) {
	params := &bot.SendMessageParams{
		ChatID:    int64(to),
		Text:      p.Text,
		ParseMode: models.ParseModeHTML,
	}
	if m := replyMarkup(p.Markup); m != nil {
		params.ReplyMarkup = m
	}
	msg, err := c.api.SendMessage(ctx, params)
	if err != nil {
		return 0, c.wrap("sendMessage", err)
	}
	c.logger.Debug("telegram call", "method", "sendMessage")
	return domain.MessageRef(msg.ID), nil
}

// EditMessage implements ports.Messenger. Only inline keyboards can be
// attached to an edited message; other markups are dropped.
func (c *Client) EditMessage(ctx context.Context, to domain.Identity, ref domain.MessageRef, p domain.Prompt) error {
	params := &bot.EditMessageTextParams{
		ChatID:    int64(to),
		MessageID: int(ref),
		Text:      p.Text,
		ParseMode: models.ParseModeHTML,
	}
	if p.Markup != nil && p.Markup.Kind == domain.MarkupInline {
		params.ReplyMarkup = replyMarkup(p.Markup)
	}
	_, err := c.api.EditMessageText(ctx, params)
	return c.wrap("editMessageText", err)
}

// DeleteMessage implements ports.Messenger.
func (c *Client) DeleteMessage(ctx context.Context, to domain.Identity, ref domain.MessageRef) error {
	_, err := c.api.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: int64(to), MessageID: int(ref)})
	return c.wrap("deleteMessage", err)
}

// SendSticker implements ports.Messenger.
func (c *Client) SendSticker(ctx context.Context, to domain.Identity, sticker string) error {
	_, err := c.api.SendSticker(ctx, &bot.SendStickerParams{
		ChatID:  int64(to),
		Sticker: &models.InputFileString{Data: sticker},
	})
	return c.wrap("sendSticker", err)
}

// ForwardContact implements ports.Messenger.
func (c *Client) ForwardContact(ctx context.Context, to, from domain.Identity, ref domain.MessageRef) error {
	_, err := c.api.ForwardMessage(ctx, &bot.ForwardMessageParams{
		ChatID:         int64(to),
		FromChatID:     int64(from),
		MessageID:      int(ref),
		ProtectContent: true,
	})
	return c.wrap("forwardMessage", err)
}

// AnswerCallback acknowledges a button press so the client stops its spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	_, err := c.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callbackID})
	return c.wrap("answerCallbackQuery", err)
}

// SetWebhook registers url for updates. secret is echoed back by Telegram
// in the X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	_, err := c.api.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	return c.wrap("setWebhook", err)
}

func replyMarkup(m *domain.Markup) models.ReplyMarkup {
	if m == nil {
		return nil
	}
	switch m.Kind {
	case domain.MarkupInline:
		rows := make([][]models.InlineKeyboardButton, 0, len(m.Rows))
		for _, row := range m.Rows {
			buttons := make([]models.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, models.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data})
			}
			rows = append(rows, buttons)
		}
		return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
	case domain.MarkupContactRequest:
		return &models.ReplyKeyboardMarkup{
			Keyboard:       [][]models.KeyboardButton{{{Text: m.Label, RequestContact: true}}},
			ResizeKeyboard: true,
			IsPersistent:   true,
		}
	case domain.MarkupRemove:
		return &models.ReplyKeyboardRemove{RemoveKeyboard: true}
	default:
		return nil
	}
}
