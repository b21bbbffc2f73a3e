// Package telegram is habitbot's send-only Telegram adapter.
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"habitbot/pkg/logx"
)

type Config struct {
	Token string

	// RatePerSec caps outgoing messages. Zero means 1/s.
	RatePerSec int

	// PollTimeout for the underlying long poller. Zero means 10s.
	PollTimeout time.Duration
}

// Adapter wraps telebot for reminder delivery. Sends go through a rate
// limiter so a burst of simultaneous firings stays inside Telegram's limits.
type Adapter struct {
	bot     *tele.Bot
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &Adapter{
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}, nil
}

// SendText implements dispatch.Sender.
func (a *Adapter) SendText(ctx context.Context, chatID int64, text string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := a.bot.Send(tele.ChatID(chatID), text, &tele.SendOptions{DisableWebPagePreview: true})
	if err != nil {
		a.log.Warn("telegram send failed", logx.Int64("chat_id", chatID), logx.Err(err))
		return err
	}
	a.log.Debug("telegram message sent", logx.Int64("chat_id", chatID))
	return nil
}

func (a *Adapter) Stop() {
	a.bot.Stop()
}
