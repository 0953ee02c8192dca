package notifier

import (
	"context"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
)

// Transport — единственная способность канала доставки: отправить текст
// получателю. Новая платформа — это новая реализация Transport, ядро
// при этом не меняется.
type Transport interface {
	Platform() domain.Platform
	Send(ctx context.Context, recipientID string, text string) error
}

// Registry — зарегистрированные каналы доставки.
type Registry struct {
	transports []Transport
}

func NewRegistry(transports ...Transport) *Registry {
	return &Registry{transports: transports}
}

func (r *Registry) Add(t Transport) {
	r.transports = append(r.transports, t)
}

// All - каналы в порядке регистрации.
func (r *Registry) All() []Transport {
	return r.transports
}

func (r *Registry) Len() int { return len(r.transports) }
