package scheduler

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Планировщик цикла проверки. Два состояния: ждём и проверяем.
// Циклы никогда не перекрываются — следующий начинается только после
// полного завершения предыдущего. Пауза между циклами случайная в
// [intervalMin, intervalMax], чтобы опрос источника не был строгим таймером;
// сбойный цикл ждёт столько же, сколько успешный, и не уходит в частые
// повторы, которые могли бы перегрузить источник.

type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

type Scheduler struct {
	runner      CycleRunner
	intervalMin time.Duration
	intervalMax time.Duration
	logger      *slog.Logger
}

func NewScheduler(runner CycleRunner, intervalMin, intervalMax time.Duration, logger *slog.Logger) *Scheduler {
	if intervalMin <= 0 {
		intervalMin = 2 * time.Minute
	}
	if intervalMax < intervalMin {
		intervalMax = intervalMin
	}
	return &Scheduler{
		runner:      runner,
		intervalMin: intervalMin,
		intervalMax: intervalMax,
		logger:      logger,
	}
}

// Start — блокирующий цикл до отмены контекста. Первый проход сразу,
// дальше — со случайной паузой.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("checker scheduler started",
		slog.Duration("interval_min", s.intervalMin),
		slog.Duration("interval_max", s.intervalMax),
	)

	for {
		s.runOnce(ctx)

		wait := s.nextWait()
		s.logger.Debug("waiting for next cycle", slog.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("checker scheduler stopped")
			return
		case <-timer.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// Начатый цикл доводится до конца даже при остановке приложения:
	// начатые отправки и фиксации не обрываются на полпути, конец цикла
	// ограничен собственными таймаутами fetch и отправок.
	cycleCtx := context.WithoutCancel(ctx)
	started := time.Now()
	if err := s.runner.RunCycle(cycleCtx); err != nil {
		// Цикл пропущен целиком; источник живёт своей жизнью, просто ждём дальше.
		s.logger.Warn("cycle skipped", slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("cycle completed", slog.Duration("duration", time.Since(started)))
}

func (s *Scheduler) nextWait() time.Duration {
	spread := s.intervalMax - s.intervalMin
	if spread <= 0 {
		return s.intervalMin
	}
	return s.intervalMin + rand.N(spread)
}
