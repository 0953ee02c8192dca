package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BaselineRepo — репозиторий текущего состояния слотов (exam_slots)
// и журнала событий (exam_events).
type BaselineRepo struct {
	db *pgxpool.Pool
}

func NewBaselineRepo(db *pgxpool.Pool) *BaselineRepo {
	return &BaselineRepo{db: db}
}

// Current - все слоты, которые мы считаем существующими на данный момент.
func (r *BaselineRepo) Current(ctx context.Context) (domain.Snapshot, error) {
	const query = `SELECT exam_date, city_id FROM exam_slots`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := make(domain.Snapshot)
	for rows.Next() {
		var slot domain.Slot
		if err := rows.Scan(&slot.Date, &slot.CityID); err != nil {
			return nil, err
		}
		snap.Add(slot)
	}
	return snap, rows.Err()
}

// Commit - фиксирует один переход слота: для CREATED вставляет слот и пишет
// событие в журнал, для DELETED удаляет слот и пишет событие. Оба действия
// в одной транзакции — переход отдельного слота атомарен.
// Повторный Commit того же перехода — безопасный no-op (в том числе без
// дублирующей записи в журнале), потому что цикл может повториться после сбоя.
func (r *BaselineRepo) Commit(ctx context.Context, slot domain.Slot, kind domain.EventKind, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var changed bool
	switch kind {
	case domain.EventCreated:
		tag, err := tx.Exec(ctx,
			`INSERT INTO exam_slots (exam_date, city_id, first_seen)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (exam_date, city_id) DO NOTHING`,
			slot.Date, slot.CityID, at)
		if err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
		changed = tag.RowsAffected() > 0
	case domain.EventDeleted:
		tag, err := tx.Exec(ctx,
			`DELETE FROM exam_slots WHERE exam_date = $1 AND city_id = $2`,
			slot.Date, slot.CityID)
		if err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
		changed = tag.RowsAffected() > 0
	default:
		return fmt.Errorf("unknown event kind: %q", kind)
	}

	// Журнал пополняется только при реальном изменении состояния.
	if changed {
		if _, err := tx.Exec(ctx,
			`INSERT INTO exam_events (exam_date, city_id, event_type, event_timestamp)
			 VALUES ($1, $2, $3, $4)`,
			slot.Date, slot.CityID, string(kind), at); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// RecentEvents - последние записи журнала, новые первыми.
func (r *BaselineRepo) RecentEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	const query = `
		SELECT exam_date, city_id, event_type, event_timestamp
		FROM exam_events
		ORDER BY id DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ChangeEvent
	for rows.Next() {
		var (
			event domain.ChangeEvent
			kind  string
		)
		if err := rows.Scan(&event.Slot.Date, &event.Slot.CityID, &kind, &event.DetectedAt); err != nil {
			return nil, err
		}
		event.Kind = domain.EventKind(kind)
		out = append(out, event)
	}
	return out, rows.Err()
}
