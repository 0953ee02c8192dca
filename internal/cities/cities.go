package cities

import (
	"fmt"
	"sort"
)

// Справочник городов NITE. Идентификаторы — как их отдаёт API
// (1, 2, 3, 5 — без четвёрки, так исторически сложилось на стороне NITE).

type City struct {
	ID           int
	Name         string
	DisplayOrder int
}

var cities = map[int]City{
	1: {ID: 1, Name: "חיפה", DisplayOrder: 4},
	2: {ID: 2, Name: "תל אביב", DisplayOrder: 1},
	3: {ID: 3, Name: "ירושלים", DisplayOrder: 3},
	5: {ID: 5, Name: "באר שבע", DisplayOrder: 2},
}

// Name - человекочитаемое имя города по его id.
// Для неизвестного id возвращает заглушку с самим id.
func Name(id int) string {
	if c, ok := cities[id]; ok {
		return c.Name
	}
	return fmt.Sprintf("עיר לא ידועה (%d)", id)
}

// IsKnown - входит ли id в справочник.
func IsKnown(id int) bool {
	_, ok := cities[id]
	return ok
}

// All - все города, отсортированные по порядку отображения (для клавиатуры бота).
func All() []City {
	out := make([]City, 0, len(cities))
	for _, c := range cities {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out
}
