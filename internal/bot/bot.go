package bot

import (
	"context"
	"log/slog"
	"sync"

	"gopkg.in/telebot.v4"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
)

// Интерактивный бот подписок: /start показывает клавиатуру городов,
// пользователь отмечает нужные и подтверждает. Ядро видит только итоговый
// вызов SetCities — сам диалог и его состояние живут здесь.

// Subscriptions — операции над подписками, которые нужны диалогу.
type Subscriptions interface {
	Register(ctx context.Context, key domain.SubscriberKey) error
	SetCities(ctx context.Context, key domain.SubscriberKey, cityIDs []int) error
	Cities(ctx context.Context, key domain.SubscriberKey) ([]int, error)
}

// Bot — обёртка над telebot с состоянием диалогов выбора городов.
type Bot struct {
	bot    *telebot.Bot
	subs   Subscriptions
	logger *slog.Logger

	// Выбор городов в незавершённых диалогах, по chat_id.
	// Это состояние UI: ядро сервиса к нему не прикасается.
	mu       sync.Mutex
	sessions map[int64]map[int]bool
}

// New строит бота поверх уже созданного *telebot.Bot (тот же инстанс
// использует и канал доставки уведомлений).
func New(b *telebot.Bot, subs Subscriptions, logger *slog.Logger) *Bot {
	bot := &Bot{
		bot:      b,
		subs:     subs,
		logger:   logger,
		sessions: make(map[int64]map[int]bool),
	}

	// маршруты команд
	b.Handle("/start", bot.handleStart)
	b.Handle("/cancel", bot.handleCancel)
	b.Handle(&btnToggleCity, bot.handleToggleCity)
	b.Handle(&btnSave, bot.handleSave)

	return bot
}

// Start запускает long polling; остановка — через Stop при shutdown приложения.
func (b *Bot) Start() {
	b.logger.Info("subscription bot started")
	b.bot.Start()
	b.logger.Info("subscription bot stopped")
}

func (b *Bot) Stop() {
	b.bot.Stop()
}
