//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	initScript, err := filepath.Abs("../../../migrations/init.sql")
	s.Require().NoError(err)

	container, err := tcpostgres.Run(s.ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("test_db"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.WithInitScripts(initScript),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	pool, err := pgxpool.New(s.ctx, connStr)
	s.Require().NoError(err)
	s.pool = pool
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.pool.Exec(s.ctx, "DELETE FROM subscriber_cities")
	_, _ = s.pool.Exec(s.ctx, "DELETE FROM subscribers")
	_, _ = s.pool.Exec(s.ctx, "DELETE FROM exam_events")
	_, _ = s.pool.Exec(s.ctx, "DELETE FROM exam_slots")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) slotCount(slot domain.Slot) int {
	var count int
	err := s.pool.QueryRow(s.ctx,
		"SELECT COUNT(*) FROM exam_slots WHERE exam_date = $1 AND city_id = $2",
		slot.Date, slot.CityID).Scan(&count)
	s.Require().NoError(err)
	return count
}

func (s *PostgresIntegrationSuite) eventCount(slot domain.Slot, kind domain.EventKind) int {
	var count int
	err := s.pool.QueryRow(s.ctx,
		"SELECT COUNT(*) FROM exam_events WHERE exam_date = $1 AND city_id = $2 AND event_type = $3",
		slot.Date, slot.CityID, string(kind)).Scan(&count)
	s.Require().NoError(err)
	return count
}

func (s *PostgresIntegrationSuite) TestBaselineRepo_CommitCreated() {
	repo := NewBaselineRepo(s.pool)
	slot := domain.Slot{Date: "2025-11-04", CityID: 3}
	now := time.Now().UTC().Truncate(time.Microsecond)

	s.NoError(repo.Commit(s.ctx, slot, domain.EventCreated, now))

	s.Equal(1, s.slotCount(slot))
	s.Equal(1, s.eventCount(slot, domain.EventCreated))

	snap, err := repo.Current(s.ctx)
	s.NoError(err)
	s.True(snap.Contains(slot))
}

// Повторная фиксация того же CREATED — no-op: одна строка состояния,
// одна запись в журнале, first_seen не перезаписывается.
func (s *PostgresIntegrationSuite) TestBaselineRepo_RecommitCreatedIsNoop() {
	repo := NewBaselineRepo(s.pool)
	slot := domain.Slot{Date: "2025-11-04", CityID: 3}
	first := time.Now().UTC().Truncate(time.Microsecond)
	later := first.Add(time.Hour)

	s.NoError(repo.Commit(s.ctx, slot, domain.EventCreated, first))
	s.NoError(repo.Commit(s.ctx, slot, domain.EventCreated, later))

	s.Equal(1, s.slotCount(slot))
	s.Equal(1, s.eventCount(slot, domain.EventCreated))

	var firstSeen time.Time
	err := s.pool.QueryRow(s.ctx,
		"SELECT first_seen FROM exam_slots WHERE exam_date = $1 AND city_id = $2",
		slot.Date, slot.CityID).Scan(&firstSeen)
	s.NoError(err)
	s.WithinDuration(first, firstSeen, time.Second)
}

func (s *PostgresIntegrationSuite) TestBaselineRepo_CommitDeleted() {
	repo := NewBaselineRepo(s.pool)
	slot := domain.Slot{Date: "2025-11-04", CityID: 3}
	now := time.Now().UTC().Truncate(time.Microsecond)

	s.NoError(repo.Commit(s.ctx, slot, domain.EventCreated, now))
	s.NoError(repo.Commit(s.ctx, slot, domain.EventDeleted, now.Add(time.Minute)))

	s.Equal(0, s.slotCount(slot))
	s.Equal(1, s.eventCount(slot, domain.EventCreated))
	s.Equal(1, s.eventCount(slot, domain.EventDeleted))

	snap, err := repo.Current(s.ctx)
	s.NoError(err)
	s.False(snap.Contains(slot))
}

// Фиксация DELETED для отсутствующего слота — no-op без записи в журнале.
func (s *PostgresIntegrationSuite) TestBaselineRepo_DeleteAbsentAppendsNoEvent() {
	repo := NewBaselineRepo(s.pool)
	slot := domain.Slot{Date: "2025-11-04", CityID: 3}
	now := time.Now().UTC().Truncate(time.Microsecond)

	s.NoError(repo.Commit(s.ctx, slot, domain.EventDeleted, now))
	s.Equal(0, s.eventCount(slot, domain.EventDeleted))

	// И после реального жизненного цикла повторное удаление журнал не трогает.
	s.NoError(repo.Commit(s.ctx, slot, domain.EventCreated, now))
	s.NoError(repo.Commit(s.ctx, slot, domain.EventDeleted, now.Add(time.Minute)))
	s.NoError(repo.Commit(s.ctx, slot, domain.EventDeleted, now.Add(2*time.Minute)))
	s.Equal(1, s.eventCount(slot, domain.EventDeleted))
}

func (s *PostgresIntegrationSuite) TestBaselineRepo_RecentEventsNewestFirst() {
	repo := NewBaselineRepo(s.pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := domain.Slot{Date: "2025-11-04", CityID: 3}
	second := domain.Slot{Date: "2025-11-05", CityID: 2}

	s.NoError(repo.Commit(s.ctx, first, domain.EventCreated, now))
	s.NoError(repo.Commit(s.ctx, second, domain.EventCreated, now.Add(time.Minute)))
	s.NoError(repo.Commit(s.ctx, first, domain.EventDeleted, now.Add(2*time.Minute)))

	events, err := repo.RecentEvents(s.ctx, 2)
	s.NoError(err)
	s.Require().Len(events, 2)
	s.Equal(domain.EventDeleted, events[0].Kind)
	s.Equal(first, events[0].Slot)
	s.Equal(domain.EventCreated, events[1].Kind)
	s.Equal(second, events[1].Slot)
}

func (s *PostgresIntegrationSuite) TestSubscriberRepo_SetCitiesFullReplace() {
	repo := NewSubscriberRepo(s.pool)
	key := domain.SubscriberKey{Platform: domain.PlatformTelegram, ExternalID: "100500"}

	s.NoError(repo.SetCities(s.ctx, key, []int{1, 2}))
	s.NoError(repo.SetCities(s.ctx, key, []int{3}))

	cities, err := repo.GetCities(s.ctx, key)
	s.NoError(err)
	s.Equal([]int{3}, cities)
}

func (s *PostgresIntegrationSuite) TestSubscriberRepo_ListByCityFiltersPlatform() {
	repo := NewSubscriberRepo(s.pool)
	tg := domain.SubscriberKey{Platform: domain.PlatformTelegram, ExternalID: "100500"}
	wa := domain.SubscriberKey{Platform: domain.PlatformWhatsApp, ExternalID: "wa-1"}

	s.NoError(repo.SetCities(s.ctx, tg, []int{3}))
	s.NoError(repo.SetCities(s.ctx, wa, []int{3}))

	got, err := repo.ListByCity(s.ctx, 3, domain.PlatformTelegram)
	s.NoError(err)
	s.Equal([]string{"100500"}, got)

	got, err = repo.ListByCity(s.ctx, 3, domain.PlatformWhatsApp)
	s.NoError(err)
	s.Equal([]string{"wa-1"}, got)
}
