package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/cities"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/metrics"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/notifier"
)

// Диспетчер рассылки: одно событие о новом слоте раскладывается на
// независимые единицы работы (получатель, канал). Сбой одной единицы
// логируется и не трогает остальные — ни в этом событии, ни в цикле.

// SubscriberDirectory — чтение подписчиков города в разрезе платформы.
type SubscriberDirectory interface {
	ListByCity(ctx context.Context, cityID int, platform domain.Platform) ([]string, error)
}

// Stats — итог рассылки одного события.
type Stats struct {
	Recipients int
	Sent       int
	Failed     int
}

type Dispatcher struct {
	directory SubscriberDirectory
	registry  *notifier.Registry
	metrics   *metrics.Metrics
	logger    *slog.Logger
	workers   int
}

func NewDispatcher(directory SubscriberDirectory, registry *notifier.Registry, m *metrics.Metrics, logger *slog.Logger, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 8
	}
	return &Dispatcher{
		directory: directory,
		registry:  registry,
		metrics:   m,
		logger:    logger,
		workers:   workers,
	}
}

// Dispatch — разослать событие о появившемся слоте всем подписчикам его
// города по всем каналам. Отправки идут параллельно, но не больше workers
// одновременно. Ошибки не возвращаются наружу: доставка "отправили один раз,
// сбои в лог", повторов между циклами нет.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.ChangeEvent) Stats {
	text := FormatCreatedMessage(event.Slot)

	var stats Stats
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	results := make(chan bool)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ok := range results {
			stats.Recipients++
			if ok {
				stats.Sent++
			} else {
				stats.Failed++
			}
		}
	}()

	for _, transport := range d.registry.All() {
		platform := transport.Platform()

		recipients, err := d.directory.ListByCity(ctx, event.Slot.CityID, platform)
		if err != nil {
			// Недоступный справочник — беда этой платформы, не всей рассылки.
			d.logger.Error("failed to list subscribers",
				slog.String("platform", string(platform)),
				slog.Int("city_id", event.Slot.CityID),
				slog.String("error", err.Error()),
			)
			continue
		}

		for _, recipientID := range recipients {
			g.Go(func() error {
				err := transport.Send(gctx, recipientID, text)
				if err != nil {
					d.logger.Error("send failed",
						slog.String("platform", string(platform)),
						slog.String("recipient", recipientID),
						slog.String("slot", event.Slot.String()),
						slog.String("error", err.Error()),
					)
					d.metrics.NotificationsSent.WithLabelValues(string(platform), "failed").Inc()
				} else {
					d.logger.Debug("send ok",
						slog.String("platform", string(platform)),
						slog.String("recipient", recipientID),
						slog.String("slot", event.Slot.String()),
					)
					d.metrics.NotificationsSent.WithLabelValues(string(platform), "ok").Inc()
				}
				results <- err == nil
				return nil
			})
		}
	}

	_ = g.Wait()
	close(results)
	<-done

	d.logger.Info("dispatch completed",
		slog.String("slot", event.Slot.String()),
		slog.Int("recipients", stats.Recipients),
		slog.Int("sent", stats.Sent),
		slog.Int("failed", stats.Failed),
	)
	return stats
}

// FormatCreatedMessage — текст уведомления о новом слоте.
func FormatCreatedMessage(slot domain.Slot) string {
	return fmt.Sprintf("📢 נוסף מבחן חדש ב-%s, בתאריך %s", cities.Name(slot.CityID), slot.Date)
}
