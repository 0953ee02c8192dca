package checker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/metrics"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/service/diff"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/service/dispatch"
)

//go:generate mockgen -source=checker.go -destination=mocks/mocks.go -package=mocks

// Один цикл проверки: fetch → diff → dispatch → commit.
// Порядок принципиален: сначала рассылка, потом фиксация слота в базе.
// Упали между ними — слот обнаружится заново в следующем цикле и уведомление
// уйдёт повторно; потерять его молча нельзя.

// SnapshotProvider — внешний источник текущего набора слотов.
// Ошибка означает "снапшота нет", пустой снапшот — "источник подтвердил,
// что слотов нет". Смешивать эти два случая нельзя: пустой снапшот при
// сбое сети выглядел бы как массовое удаление слотов.
type SnapshotProvider interface {
	FetchSnapshot(ctx context.Context) (domain.Snapshot, error)
}

// BaselineStore — персистентное последнее подтверждённое состояние.
type BaselineStore interface {
	Current(ctx context.Context) (domain.Snapshot, error)
	Commit(ctx context.Context, slot domain.Slot, kind domain.EventKind, at time.Time) error
}

// EventDispatcher — рассылка уведомления об одном событии.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.ChangeEvent) dispatch.Stats
}

// EventPublisher — необязательная публикация событий во внешнюю шину.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// Clock — абстракция времени, чтобы тесты были детерминированны.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type Service struct {
	provider   SnapshotProvider
	store      BaselineStore
	dispatcher EventDispatcher
	publisher  EventPublisher // может быть nil
	metrics    *metrics.Metrics
	clock      Clock
	logger     *slog.Logger
}

func NewService(provider SnapshotProvider, store BaselineStore, dispatcher EventDispatcher, publisher EventPublisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		provider:   provider,
		store:      store,
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    m,
		clock:      realClock{},
		logger:     logger,
	}
}

// NewServiceWithClock - конструктор для тестов с фиксированными "часами".
func NewServiceWithClock(provider SnapshotProvider, store BaselineStore, dispatcher EventDispatcher, publisher EventPublisher, m *metrics.Metrics, clk Clock, logger *slog.Logger) *Service {
	svc := NewService(provider, store, dispatcher, publisher, m, logger)
	svc.clock = clk
	return svc
}

// RunCycle — один полный проход. Возвращает ошибку только если цикл не
// состоялся целиком (сбой источника или чтения базы); частичные сбои
// отправки/фиксации отдельных слотов логируются и не прерывают проход.
func (s *Service) RunCycle(ctx context.Context) error {
	started := s.clock.Now()

	snapshot, err := s.provider.FetchSnapshot(ctx)
	if err != nil {
		s.metrics.CyclesTotal.WithLabelValues("fetch_failed").Inc()
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	baseline, err := s.store.Current(ctx)
	if err != nil {
		s.metrics.CyclesTotal.WithLabelValues("store_failed").Inc()
		return fmt.Errorf("load baseline: %w", err)
	}

	added, removed := diff.Diff(snapshot, baseline)
	s.logger.Debug("cycle diff computed",
		slog.Int("snapshot", snapshot.Len()),
		slog.Int("baseline", baseline.Len()),
		slog.Int("added", len(added)),
		slog.Int("removed", len(removed)),
	)

	for _, slot := range added {
		event := domain.ChangeEvent{Slot: slot, Kind: domain.EventCreated, DetectedAt: s.clock.Now()}

		// Сначала рассылка (успех или исчерпанный сбой), потом commit.
		stats := s.dispatcher.Dispatch(ctx, event)
		s.logger.Info("new slot detected",
			slog.String("slot", slot.String()),
			slog.Int("sent", stats.Sent),
			slog.Int("failed", stats.Failed),
		)

		s.commit(ctx, event)
	}

	for _, slot := range removed {
		// Удаления фиксируются молча — уведомлений о снятых слотах нет.
		event := domain.ChangeEvent{Slot: slot, Kind: domain.EventDeleted, DetectedAt: s.clock.Now()}
		s.logger.Info("slot removed", slog.String("slot", slot.String()))
		s.commit(ctx, event)
	}

	s.metrics.CyclesTotal.WithLabelValues("ok").Inc()
	s.metrics.CycleDuration.Observe(s.clock.Now().Sub(started).Seconds())
	return nil
}

// commit - фиксация одного перехода; сбой логируется и не валит цикл,
// слот просто переобнаружится в следующем проходе.
func (s *Service) commit(ctx context.Context, event domain.ChangeEvent) {
	if err := s.store.Commit(ctx, event.Slot, event.Kind, event.DetectedAt); err != nil {
		s.logger.Error("commit failed",
			slog.String("slot", event.Slot.String()),
			slog.String("kind", string(event.Kind)),
			slog.String("error", err.Error()),
		)
		return
	}
	s.metrics.SlotEventsTotal.WithLabelValues(string(event.Kind)).Inc()

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("event publish failed",
				slog.String("slot", event.Slot.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}
