package domain

import (
	"fmt"
	"time"
)

// Slot - один экзаменационный слот: дата + город.
// Дата хранится строкой YYYY-MM-DD — так её отдаёт API и так она лежит в БД.
type Slot struct {
	Date   string `json:"date"`    // YYYY-MM-DD
	CityID int    `json:"city_id"` // идентификатор города из NITE API
}

func (s Slot) String() string {
	return fmt.Sprintf("%s/%d", s.Date, s.CityID)
}

// Less - порядок (date, city_id), чтобы обработка и логи были воспроизводимы.
func (s Slot) Less(other Slot) bool {
	if s.Date != other.Date {
		return s.Date < other.Date
	}
	return s.CityID < other.CityID
}

// Snapshot - множество слотов, наблюдаемое в одном цикле опроса.
// Создаётся заново каждый цикл, не мутируется после сборки.
type Snapshot map[Slot]struct{}

func NewSnapshot(slots ...Slot) Snapshot {
	snap := make(Snapshot, len(slots))
	for _, s := range slots {
		snap[s] = struct{}{}
	}
	return snap
}

func (s Snapshot) Contains(slot Slot) bool {
	_, ok := s[slot]
	return ok
}

func (s Snapshot) Add(slot Slot) {
	s[slot] = struct{}{}
}

func (s Snapshot) Len() int { return len(s) }

// EventKind - тип перехода слота.
type EventKind string

const (
	EventCreated EventKind = "CREATED"
	EventDeleted EventKind = "DELETED"
)

// ChangeEvent - обнаруженный переход одного слота.
// Живёт один цикл; в БД попадает только через журнал событий.
type ChangeEvent struct {
	Slot       Slot      `json:"slot"`
	Kind       EventKind `json:"kind"`
	DetectedAt time.Time `json:"detected_at"`
}

// Platform - канал доставки уведомлений.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformWhatsApp Platform = "whatsapp"
)

// SubscriberKey - идентификатор получателя в разрезе платформы.
type SubscriberKey struct {
	Platform   Platform `json:"platform"`
	ExternalID string   `json:"external_id"`
}
