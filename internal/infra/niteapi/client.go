package niteapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/config"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
)

// Клиент NITE API. Сайт отдаёт данные только "браузеру": сначала нужно зайти
// на главную за сессионными cookies, и только потом дёргать сам API с
// правильными заголовками. Любая ошибка (сеть, статус, парсинг) возвращается
// ошибкой — пустой снапшот означает "источник подтвердил, что слотов нет".

const dateLayout = "2006-01-02"

type Client struct {
	cfg    config.NiteConfig
	logger *slog.Logger
}

func NewClient(cfg config.NiteConfig, logger *slog.Logger) *Client {
	return &Client{cfg: cfg, logger: logger}
}

// FetchSnapshot — получает полный текущий набор слотов.
// Ответ API: JSON-объект {"2025-11-04": [3], "2025-11-05": [2, 5], ...}.
func (c *Client) FetchSnapshot(ctx context.Context) (domain.Snapshot, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	httpClient := &http.Client{
		Timeout: c.cfg.Timeout,
		Jar:     jar,
	}

	// Шаг 1 — главная страница, чтобы получить cookies сессии.
	if err := c.visitMainPage(ctx, httpClient); err != nil {
		return nil, err
	}

	// Шаг 2 — сам API с заголовками, без которых запрос отбрасывается.
	u, err := url.Parse(c.cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api URL: %w", err)
	}
	q := u.Query()
	q.Set("networkExamId", strconv.Itoa(c.cfg.ExamID))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", c.cfg.MainURL)
	req.Header.Set("Referer", c.cfg.MainURL+"/")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed: %s", resp.Status)
	}

	var data map[string][]int
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	snap := make(domain.Snapshot, len(data))
	for date, cityIDs := range data {
		if _, err := time.Parse(dateLayout, date); err != nil {
			c.logger.Warn("skipping slot with unparseable date", "date", date)
			continue
		}
		for _, cityID := range cityIDs {
			snap.Add(domain.Slot{Date: date, CityID: cityID})
		}
	}
	return snap, nil
}

func (c *Client) visitMainPage(ctx context.Context, httpClient *http.Client) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.MainURL, nil)
	if err != nil {
		return fmt.Errorf("creating session request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session request failed: %s", resp.Status)
	}
	return nil
}
