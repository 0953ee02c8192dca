package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/cities"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
)

// Сервис подписок: единственная мутация, от которой зависит ядро, —
// полная замена набора городов получателя.

type SubscriberStore interface {
	Register(ctx context.Context, key domain.SubscriberKey) error
	SetCities(ctx context.Context, key domain.SubscriberKey, cityIDs []int) error
	GetCities(ctx context.Context, key domain.SubscriberKey) ([]int, error)
}

type Service struct {
	store  SubscriberStore
	logger *slog.Logger
}

func NewService(store SubscriberStore, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Register регистрирует получателя при первом контакте с ботом.
func (s *Service) Register(ctx context.Context, key domain.SubscriberKey) error {
	if err := s.store.Register(ctx, key); err != nil {
		return fmt.Errorf("register subscriber: %w", err)
	}
	s.logger.Debug("subscriber registered",
		slog.String("platform", string(key.Platform)),
		slog.String("external_id", key.ExternalID),
	)
	return nil
}

// SetCities - полная замена (не слияние) набора городов получателя.
// Неизвестные города отбрасываются до записи.
func (s *Service) SetCities(ctx context.Context, key domain.SubscriberKey, cityIDs []int) error {
	valid := make([]int, 0, len(cityIDs))
	for _, id := range cityIDs {
		if !cities.IsKnown(id) {
			s.logger.Warn("ignoring unknown city in subscription",
				slog.Int("city_id", id),
				slog.String("external_id", key.ExternalID),
			)
			continue
		}
		valid = append(valid, id)
	}

	if err := s.store.SetCities(ctx, key, valid); err != nil {
		return fmt.Errorf("set cities: %w", err)
	}
	s.logger.Info("subscriber cities updated",
		slog.String("platform", string(key.Platform)),
		slog.String("external_id", key.ExternalID),
		slog.Int("cities", len(valid)),
	)
	return nil
}

// Cities - текущий набор городов получателя.
func (s *Service) Cities(ctx context.Context, key domain.SubscriberKey) ([]int, error) {
	return s.store.GetCities(ctx, key)
}
