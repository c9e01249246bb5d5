package widget

import "time"

// Timer отменяет отложенный вызов.
type Timer interface {
	Stop() bool
}

// Clock абстрагирует время для кеша и таймера скрытия выпадающего меню.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
