package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/config"
	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
)

// WhatsAppTransport — доставка через HTTP API провайдера WhatsApp.
// Канал регистрируется только когда в конфигурации задан base_url и токен.

type WhatsAppTransport struct {
	cfg        config.WhatsAppConfig
	httpClient *http.Client
}

type whatsappMessage struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func NewWhatsAppTransport(cfg config.WhatsAppConfig) *WhatsAppTransport {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WhatsAppTransport{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (t *WhatsAppTransport) Platform() domain.Platform {
	return domain.PlatformWhatsApp
}

func (t *WhatsAppTransport) Send(ctx context.Context, recipientID string, text string) error {
	body, err := json.Marshal(whatsappMessage{To: recipientID, Text: text})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.Token)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Тело ответа провайдера полезно в логе, но ограничиваем объём.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("whatsapp send to %s: %s: %s", recipientID, resp.Status, snippet)
	}
	return nil
}
