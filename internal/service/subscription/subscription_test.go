package subscription_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/service/subscription"
)

type fakeStore struct {
	registered []domain.SubscriberKey
	cities     map[domain.SubscriberKey][]int
	err        error
}

func newFakeStore() *fakeStore {
	return &fakeStore{cities: make(map[domain.SubscriberKey][]int)}
}

func (f *fakeStore) Register(_ context.Context, key domain.SubscriberKey) error {
	if f.err != nil {
		return f.err
	}
	f.registered = append(f.registered, key)
	return nil
}

func (f *fakeStore) SetCities(_ context.Context, key domain.SubscriberKey, cityIDs []int) error {
	if f.err != nil {
		return f.err
	}
	f.cities[key] = cityIDs
	return nil
}

func (f *fakeStore) GetCities(_ context.Context, key domain.SubscriberKey) ([]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cities[key], nil
}

func testKey() domain.SubscriberKey {
	return domain.SubscriberKey{Platform: domain.PlatformTelegram, ExternalID: "100500"}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := subscription.NewService(store, slog.Default())

	require.NoError(t, svc.Register(context.Background(), testKey()))
	require.Len(t, store.registered, 1)
	assert.Equal(t, testKey(), store.registered[0])
}

// SetCities заменяет набор целиком, а не дополняет его.
func TestSetCities_FullReplace(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := subscription.NewService(store, slog.Default())
	ctx := context.Background()

	require.NoError(t, svc.SetCities(ctx, testKey(), []int{1, 2}))
	require.NoError(t, svc.SetCities(ctx, testKey(), []int{3}))

	got, err := svc.Cities(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, []int{3}, got)
}

func TestSetCities_DropsUnknownCities(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := subscription.NewService(store, slog.Default())

	require.NoError(t, svc.SetCities(context.Background(), testKey(), []int{2, 99, 5}))
	assert.Equal(t, []int{2, 5}, store.cities[testKey()])
}

func TestSetCities_EmptySetAllowed(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := subscription.NewService(store, slog.Default())

	require.NoError(t, svc.SetCities(context.Background(), testKey(), nil))
	got, ok := store.cities[testKey()]
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestSetCities_StoreError(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.err = errors.New("db down")
	svc := subscription.NewService(store, slog.Default())

	err := svc.SetCities(context.Background(), testKey(), []int{1})
	require.Error(t, err)
	assert.ErrorContains(t, err, "set cities")
}
