package notifier

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v4"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
)

// TelegramTransport — доставка через Telegram Bot API.
// Использует тот же *telebot.Bot, что и интерактивный бот подписок.

type TelegramTransport struct {
	bot     *telebot.Bot
	limiter *rate.Limiter
	timeout time.Duration
}

// NewTelegramTransport — ratePerSecond ограничивает исходящие сообщения,
// Bot API режет ботов примерно на 30 сообщениях в секунду.
func NewTelegramTransport(bot *telebot.Bot, ratePerSecond float64, timeout time.Duration) *TelegramTransport {
	if ratePerSecond <= 0 {
		ratePerSecond = 25
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TelegramTransport{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		timeout: timeout,
	}
}

func (t *TelegramTransport) Platform() domain.Platform {
	return domain.PlatformTelegram
}

func (t *TelegramTransport) Send(ctx context.Context, recipientID string, text string) error {
	chatID, err := strconv.ParseInt(recipientID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram recipient %q: %w", recipientID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if _, err := t.bot.Send(&telebot.Chat{ID: chatID}, text); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}
