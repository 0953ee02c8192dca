package httptransport

import (
	"context"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/cities"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
)

// Read-only API для оператора: текущее состояние слотов, журнал событий,
// здоровье и метрики. На состояние сервиса эти ручки не влияют.

// BaselineReader — чтение состояния и журнала.
type BaselineReader interface {
	Current(ctx context.Context) (domain.Snapshot, error)
	RecentEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error)
}

// APISlot — DTO слота для ответа API.
type APISlot struct {
	Date     string `json:"date"`
	CityID   int    `json:"city_id"`
	CityName string `json:"city_name"`
}

// APIEvent — DTO записи журнала.
type APIEvent struct {
	Date       string    `json:"date"`
	CityID     int       `json:"city_id"`
	CityName   string    `json:"city_name"`
	Kind       string    `json:"kind"`
	DetectedAt time.Time `json:"detected_at"`
}

// StatusHandler — HTTP-handler состояния сервиса.
type StatusHandler struct {
	logger   *slog.Logger
	reader   BaselineReader
	registry *prometheus.Registry
	timeout  time.Duration
}

func NewStatusHandler(logger *slog.Logger, reader BaselineReader, registry *prometheus.Registry, timeout time.Duration) *StatusHandler {
	if logger == nil {
		log.Fatal("nil logger")
	}
	if reader == nil {
		log.Fatal("nil baseline reader")
	}
	if timeout <= 0 {
		timeout = time.Second * 3
	}
	return &StatusHandler{
		logger:   logger,
		reader:   reader,
		registry: registry,
		timeout:  timeout,
	}
}

func (h *StatusHandler) RegisterRoutes(r interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}) {
	r.GET("/healthz", h.Health)
	r.GET("/api/slots", h.GetSlots)
	r.GET("/api/events", h.GetEvents)
	if h.registry != nil {
		r.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})))
	}
}

func (h *StatusHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// GetSlots - текущий baseline, отсортированный по (date, city_id).
func (h *StatusHandler) GetSlots(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	snap, err := h.reader.Current(ctx)
	if err != nil {
		h.logger.Error("failed to load baseline",
			slog.String("op", "GetSlots"),
			slog.String("error", err.Error()),
		)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "internal_server_error",
		})
	}

	out := make([]APISlot, 0, snap.Len())
	for slot := range snap {
		out = append(out, APISlot{
			Date:     slot.Date,
			CityID:   slot.CityID,
			CityName: cities.Name(slot.CityID),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].CityID < out[j].CityID
	})

	return c.JSON(http.StatusOK, out)
}

// GetEvents - последние записи журнала; limit по умолчанию 50, максимум 500.
func (h *StatusHandler) GetEvents(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "bad_limit",
			})
		}
		limit = parsed
	}
	if limit > 500 {
		limit = 500
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	events, err := h.reader.RecentEvents(ctx, limit)
	if err != nil {
		h.logger.Error("failed to load events",
			slog.String("op", "GetEvents"),
			slog.String("error", err.Error()),
		)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "internal_server_error",
		})
	}

	out := make([]APIEvent, 0, len(events))
	for _, event := range events {
		out = append(out, APIEvent{
			Date:       event.Slot.Date,
			CityID:     event.Slot.CityID,
			CityName:   cities.Name(event.Slot.CityID),
			Kind:       string(event.Kind),
			DetectedAt: event.DetectedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}
