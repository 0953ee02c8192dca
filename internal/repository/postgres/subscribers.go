package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriberRepo — справочник получателей и их городов.
// Города лежат в связующей таблице subscriber_cities: добавление нового
// города — это данные, а не миграция схемы.
type SubscriberRepo struct {
	db *pgxpool.Pool
}

func NewSubscriberRepo(db *pgxpool.Pool) *SubscriberRepo {
	return &SubscriberRepo{db: db}
}

// Register регистрирует получателя при первом обращении.
// Повторная регистрация — no-op.
func (r *SubscriberRepo) Register(ctx context.Context, key domain.SubscriberKey) error {
	const query = `
		INSERT INTO subscribers (platform, external_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (platform, external_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, string(key.Platform), key.ExternalID, time.Now().UTC())
	return err
}

// SetCities - полная замена набора городов получателя (не слияние).
func (r *SubscriberRepo) SetCities(ctx context.Context, key domain.SubscriberKey, cityIDs []int) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO subscribers (platform, external_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (platform, external_id) DO NOTHING`,
		string(key.Platform), key.ExternalID, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert subscriber: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM subscriber_cities WHERE platform = $1 AND external_id = $2`,
		string(key.Platform), key.ExternalID); err != nil {
		return fmt.Errorf("clear cities: %w", err)
	}

	for _, cityID := range cityIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO subscriber_cities (platform, external_id, city_id)
			 VALUES ($1, $2, $3)
			 ON CONFLICT DO NOTHING`,
			string(key.Platform), key.ExternalID, cityID); err != nil {
			return fmt.Errorf("insert city %d: %w", cityID, err)
		}
	}

	return tx.Commit(ctx)
}

// ListByCity - получатели указанной платформы, подписанные на город.
// Порядок не гарантируется.
func (r *SubscriberRepo) ListByCity(ctx context.Context, cityID int, platform domain.Platform) ([]string, error) {
	const query = `
		SELECT external_id
		FROM subscriber_cities
		WHERE city_id = $1 AND platform = $2
	`
	rows, err := r.db.Query(ctx, query, cityID, string(platform))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetCities - текущий набор городов получателя (для повторного /start в боте).
func (r *SubscriberRepo) GetCities(ctx context.Context, key domain.SubscriberKey) ([]int, error) {
	const query = `
		SELECT city_id
		FROM subscriber_cities
		WHERE platform = $1 AND external_id = $2
	`
	rows, err := r.db.Query(ctx, query, string(key.Platform), key.ExternalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
