// Package events реализует шину событий страницы: вход и выход покупателя, загрузка оверлея.
package events

import "sync"

// Имена событий страницы.
const (
	CustomerLogin  = "customer-login"
	CustomerLogout = "customer-logout"
	OverlayLoaded  = "account-overlay-loaded"
)

// Event описывает событие страницы. Detail несёт данные конкретного события.
type Event struct {
	Name   string
	Detail any
}

// Handler обрабатывает событие.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus реализует синхронную публикацию и подписку.
// Обработчики вызываются в порядке подписки без удержания блокировки шины,
// поэтому из обработчика можно публиковать события и отписываться.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscription
}

// NewBus создаёт пустую шину.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe подписывает обработчик на событие и возвращает функцию отписки.
func (b *Bus) Subscribe(name string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subs := b.subs[name]
			for i, s := range subs {
				if s.id == id {
					b.subs[name] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
			if len(b.subs[name]) == 0 {
				delete(b.subs, name)
			}
		})
	}
}

// Publish доставляет событие всем подписчикам и возвращает их количество.
func (b *Bus) Publish(e Event) int {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[e.Name]...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(e)
	}
	return len(subs)
}
