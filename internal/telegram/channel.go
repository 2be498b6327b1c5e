// Package telegram delivers notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/telebot.v4"

	"github.com/whisper/battlewatch/internal/dispatch"
)

// Config holds the bot credentials and transport settings.
type Config struct {
	Token   string
	APIURL  string // empty selects the public Bot API
	Timeout time.Duration
}

// goneErrors are the Bot API replies after which a chat can never be
// reached again.
var goneErrors = []error{
	telebot.ErrBlockedByUser,
	telebot.ErrUserIsDeactivated,
	telebot.ErrChatNotFound,
	telebot.ErrKickedFromGroup,
	telebot.ErrKickedFromSuperGroup,
	telebot.ErrNotStartedByUser,
}

// Channel implements dispatch.Channel on top of a telebot.Bot. Handles are
// numeric chat ids.
type Channel struct {
	bot    *telebot.Bot
	logger *zap.Logger
}

// NewChannel creates an offline bot: no updates are polled and no getMe
// round trip is made at startup.
func NewChannel(cfg Config, logger *zap.Logger) (*Channel, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Token == "" {
		return nil, errors.New("telegram: token is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	bot, err := telebot.NewBot(telebot.Settings{
		URL:     cfg.APIURL,
		Token:   cfg.Token,
		Offline: true,
		Client:  &http.Client{Timeout: timeout},
		OnError: func(err error, _ telebot.Context) {
			logger.Warn("telebot error", zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}

	return &Channel{bot: bot, logger: logger.Named("telegram")}, nil
}

// Send delivers text to the chat identified by handle.
func (c *Channel) Send(ctx context.Context, handle, text string, opts dispatch.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	chatID, err := strconv.ParseInt(handle, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", handle, dispatch.ErrRecipientGone)
	}

	sendOpts := &telebot.SendOptions{DisableWebPagePreview: opts.SuppressLinkPreview}
	if opts.RichFormatting {
		sendOpts.ParseMode = telebot.ModeHTML
	}

	if _, err := c.bot.Send(telebot.ChatID(chatID), text, sendOpts); err != nil {
		return mapError(err)
	}
	return nil
}

// mapError tags Bot API errors that mean the chat is gone so the
// dispatcher can classify them without inspecting text.
func mapError(err error) error {
	for _, gone := range goneErrors {
		if errors.Is(err, gone) {
			return fmt.Errorf("telegram: %w: %w", dispatch.ErrRecipientGone, err)
		}
	}
	return fmt.Errorf("telegram: %w", err)
}
