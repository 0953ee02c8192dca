package niteapi_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/config"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/infra/niteapi"
)

// testServer поднимает имитацию NITE: главная страница выдаёт cookie,
// API отвечает только при предъявлении этой cookie.
func testServer(t *testing.T, apiHandler http.HandlerFunc) (*httptest.Server, config.NiteConfig) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/net-registration/all-days", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
			http.Error(w, "no session", http.StatusForbidden)
			return
		}
		apiHandler(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, config.NiteConfig{
		MainURL:   srv.URL,
		APIURL:    srv.URL + "/net-registration/all-days",
		ExamID:    3,
		Timeout:   2 * time.Second,
		UserAgent: "test-agent",
	}
}

func TestFetchSnapshot_ParsesSlots(t *testing.T) {
	t.Parallel()

	var gotQuery, gotAccept string
	_, cfg := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("networkExamId")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"2025-11-04": [3], "2025-11-05": [2, 5]}`))
	})

	client := niteapi.NewClient(cfg, slog.Default())
	snap, err := client.FetchSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "3", gotQuery)
	assert.Contains(t, gotAccept, "application/json")

	assert.Equal(t, 3, snap.Len())
	assert.True(t, snap.Contains(domain.Slot{Date: "2025-11-04", CityID: 3}))
	assert.True(t, snap.Contains(domain.Slot{Date: "2025-11-05", CityID: 2}))
	assert.True(t, snap.Contains(domain.Slot{Date: "2025-11-05", CityID: 5}))
}

// Пустой объект — валидный снапшот "слотов нет", а не ошибка.
func TestFetchSnapshot_EmptyIsValid(t *testing.T) {
	t.Parallel()

	_, cfg := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	client := niteapi.NewClient(cfg, slog.Default())
	snap, err := client.FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Len())
}

func TestFetchSnapshot_HTTPErrorIsError(t *testing.T) {
	t.Parallel()

	_, cfg := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	client := niteapi.NewClient(cfg, slog.Default())
	snap, err := client.FetchSnapshot(context.Background())
	require.Error(t, err)
	assert.Nil(t, snap)
}

func TestFetchSnapshot_BadJSONIsError(t *testing.T) {
	t.Parallel()

	_, cfg := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>definitely not json</html>`))
	})

	client := niteapi.NewClient(cfg, slog.Default())
	_, err := client.FetchSnapshot(context.Background())
	require.Error(t, err)
}

// Слоты с нечитаемой датой отбрасываются, остальные остаются.
func TestFetchSnapshot_SkipsUnparseableDates(t *testing.T) {
	t.Parallel()

	_, cfg := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"2025-11-04": [3], "not-a-date": [2]}`))
	})

	client := niteapi.NewClient(cfg, slog.Default())
	snap, err := client.FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())
	assert.True(t, snap.Contains(domain.Slot{Date: "2025-11-04", CityID: 3}))
}

// Недоступная главная страница (нет сессии) — ошибка всего запроса.
func TestFetchSnapshot_MainPageFailureIsError(t *testing.T) {
	t.Parallel()

	srv, cfg := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	srv.Close()

	client := niteapi.NewClient(cfg, slog.Default())
	_, err := client.FetchSnapshot(context.Background())
	require.Error(t, err)
}
