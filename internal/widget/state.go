package widget

import "github.com/google/uuid"

// State описывает состояние загрузки содержимого.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// machine реализует автомат загрузки без привязки к DOM.
// token идентифицирует текущий запрос: ответ с другим токеном устарел и отбрасывается.
type machine struct {
	loading     bool
	initialized bool
	failed      bool
	token       string
}

func (m *machine) State() State {
	switch {
	case m.loading:
		return Loading
	case m.initialized:
		return Loaded
	case m.failed:
		return Error
	default:
		return Idle
	}
}

// begin переводит автомат в Loading и возвращает токен запроса.
// Повторный вызов во время загрузки отклоняется.
func (m *machine) begin() (string, bool) {
	if m.loading {
		return "", false
	}
	m.loading = true
	m.token = uuid.NewString()
	return m.token, true
}

// finish снимает флаг загрузки при любом исходе.
// Возвращает false, если ответ устарел и его нужно отбросить.
func (m *machine) finish(token string, ok bool) bool {
	m.loading = false
	if token == "" || token != m.token {
		return false
	}
	m.token = ""
	m.initialized = ok
	m.failed = !ok
	return true
}

// markLoaded фиксирует отрисовку из кеша без сетевого запроса.
func (m *machine) markLoaded() {
	m.initialized = true
	m.failed = false
}

// invalidate возвращает автомат в Idle. Ответ запроса, начатого до вызова, станет устаревшим.
func (m *machine) invalidate() {
	m.initialized = false
	m.failed = false
	m.token = ""
}
