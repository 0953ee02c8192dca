package diff

import (
	"sort"

	"github.com/NastyaGoryachaya/exam-slot-notifier/internal/domain"
)

// Чистая функция сравнения снапшотов. Никакого состояния и I/O:
// один и тот же вход всегда даёт один и тот же выход, поэтому цикл
// можно безопасно повторять после сбоя.

// Diff - added = snapshot − baseline, removed = baseline − snapshot.
// Оба списка отсортированы по (date, city_id), чтобы обработка и логи
// были воспроизводимы.
func Diff(snapshot, baseline domain.Snapshot) (added, removed []domain.Slot) {
	for slot := range snapshot {
		if !baseline.Contains(slot) {
			added = append(added, slot)
		}
	}
	for slot := range baseline {
		if !snapshot.Contains(slot) {
			removed = append(removed, slot)
		}
	}

	sortSlots(added)
	sortSlots(removed)
	return added, removed
}

func sortSlots(slots []domain.Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Less(slots[j]) })
}
