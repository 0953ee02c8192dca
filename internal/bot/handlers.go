package bot

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/telebot.v4"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/cities"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
)

var (
	btnToggleCity = telebot.InlineButton{Unique: "toggle_city"}
	btnSave       = telebot.InlineButton{Unique: "save_cities"}
)

// handleStart — регистрирует пользователя и открывает диалог выбора городов.
// Повторный /start показывает текущие подписки как уже отмеченные.
func (b *Bot) handleStart(c telebot.Context) error {
	chatID := c.Chat().ID
	key := subscriberKey(chatID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.subs.Register(ctx, key); err != nil {
		b.logger.Error("bot: register failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		return c.Send(msgInternalError)
	}

	selected := make(map[int]bool)
	if current, err := b.subs.Cities(ctx, key); err == nil {
		for _, id := range current {
			selected[id] = true
		}
	}

	b.mu.Lock()
	b.sessions[chatID] = selected
	b.mu.Unlock()

	if err := c.Send(msgWelcome); err != nil {
		return err
	}
	return c.Send(msgChooseCities, b.buildCityKeyboard(selected))
}

// handleToggleCity — переключает город в текущем выборе и перерисовывает клавиатуру.
func (b *Bot) handleToggleCity(c telebot.Context) error {
	chatID := c.Chat().ID

	cityID, err := strconv.Atoi(strings.TrimSpace(c.Data()))
	if err != nil || !cities.IsKnown(cityID) {
		return c.Respond(&telebot.CallbackResponse{Text: msgUnknownCity})
	}

	b.mu.Lock()
	selected, ok := b.sessions[chatID]
	if !ok {
		selected = make(map[int]bool)
		b.sessions[chatID] = selected
	}
	selected[cityID] = !selected[cityID]
	snapshot := copySelection(selected)
	b.mu.Unlock()

	if err := c.Edit(msgChooseCities, b.buildCityKeyboard(snapshot)); err != nil {
		b.logger.Warn("bot: keyboard edit failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
	return c.Respond(&telebot.CallbackResponse{})
}

// handleSave — сохраняет выбор (полная замена набора городов) и закрывает диалог.
func (b *Bot) handleSave(c telebot.Context) error {
	chatID := c.Chat().ID

	b.mu.Lock()
	selected := copySelection(b.sessions[chatID])
	b.mu.Unlock()

	cityIDs := make([]int, 0, len(selected))
	for id, on := range selected {
		if on {
			cityIDs = append(cityIDs, id)
		}
	}
	if len(cityIDs) == 0 {
		return c.Respond(&telebot.CallbackResponse{Text: msgNoCitiesChosen})
	}
	sort.Ints(cityIDs)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.subs.SetCities(ctx, subscriberKey(chatID), cityIDs); err != nil {
		b.logger.Error("bot: set cities failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		return c.Respond(&telebot.CallbackResponse{Text: msgInternalError})
	}

	b.mu.Lock()
	delete(b.sessions, chatID)
	b.mu.Unlock()

	names := make([]string, 0, len(cityIDs))
	for _, id := range cityIDs {
		names = append(names, cities.Name(id))
	}
	if err := c.Edit(msgSaved + strings.Join(names, ", ")); err != nil {
		return err
	}
	return c.Respond(&telebot.CallbackResponse{})
}

// handleCancel — сбрасывает незавершённый диалог, подписки не трогает.
func (b *Bot) handleCancel(c telebot.Context) error {
	chatID := c.Chat().ID

	b.mu.Lock()
	delete(b.sessions, chatID)
	b.mu.Unlock()

	return c.Send(msgCancelled)
}

// buildCityKeyboard — клавиатура городов в порядке отображения,
// выбранные отмечены галочкой, внизу кнопка подтверждения.
func (b *Bot) buildCityKeyboard(selected map[int]bool) *telebot.ReplyMarkup {
	var rows [][]telebot.InlineButton
	for _, city := range cities.All() {
		label := city.Name
		if selected[city.ID] {
			label = "✅ " + label
		}
		rows = append(rows, []telebot.InlineButton{{
			Unique: btnToggleCity.Unique,
			Text:   label,
			Data:   strconv.Itoa(city.ID),
		}})
	}
	rows = append(rows, []telebot.InlineButton{{
		Unique: btnSave.Unique,
		Text:   msgSaveButton,
	}})
	return &telebot.ReplyMarkup{InlineKeyboard: rows}
}

func subscriberKey(chatID int64) domain.SubscriberKey {
	return domain.SubscriberKey{
		Platform:   domain.PlatformTelegram,
		ExternalID: strconv.FormatInt(chatID, 10),
	}
}

func copySelection(src map[int]bool) map[int]bool {
	out := make(map[int]bool, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
