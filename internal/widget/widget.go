// Package widget реализует оверлей меню аккаунта: ленивую загрузку содержимого по наведению
// или клику, кеширование ответа на время cacheTimeout и отрисовку в область контента страницы.
//
// Обработчики событий никогда не блокируются на сети: запросы выполняются в отдельных горутинах,
// состояние виджета защищено мьютексом, а события страницы публикуются после его освобождения.
package widget

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/account-overlay/internal/dom"
	"github.com/mmeshcher/account-overlay/internal/events"
	"github.com/mmeshcher/account-overlay/internal/model"
	"github.com/mmeshcher/account-overlay/internal/render"
)

// CSS-классы и атрибуты, которыми виджет помечает разметку.
const (
	ClassLoaded  = "account-overlay-loaded"
	ClassError   = "account-overlay-error"
	ClassShow    = "show"
	AttrExpanded = "aria-expanded"
)

// Fetcher выполняет запросы виджета к витрине.
type Fetcher interface {
	FetchConfig(ctx context.Context, path string) (model.RemoteConfig, error)
	FetchOverlay(ctx context.Context, path string) (model.OverlayPayload, error)
}

// Notifier публикует события страницы и подписывает на них.
type Notifier interface {
	Subscribe(name string, h events.Handler) (unsubscribe func())
	Publish(e events.Event) int
}

// PluginInitializer повторно инициализирует плагины страницы после вставки новой разметки.
type PluginInitializer interface {
	InitializePlugins()
}

// Option настраивает виджет при создании.
type Option func(*Widget)

// WithOptions задаёт параметры вызывающего кода поверх значений по умолчанию.
func WithOptions(o Options) Option {
	return func(w *Widget) {
		w.cfg = NewConfig(o)
	}
}

// WithClock подменяет источник времени.
func WithClock(c Clock) Option {
	return func(w *Widget) {
		w.clock = c
	}
}

// WithLogger задаёт логгер для восстановленных ошибок.
func WithLogger(l *zap.Logger) Option {
	return func(w *Widget) {
		w.logger = l
	}
}

// WithPlugins задаёт инициализатор плагинов страницы.
func WithPlugins(p PluginInitializer) Option {
	return func(w *Widget) {
		w.plugins = p
	}
}

// Widget управляет оверлеем меню аккаунта на одной странице.
type Widget struct {
	doc     dom.Querier
	fetcher Fetcher
	bus     Notifier
	clock   Clock
	logger  *zap.Logger
	plugins PluginInitializer

	ctx    context.Context
	cancel context.CancelFunc

	initOnce sync.Once
	ready    chan struct{}
	wg       sync.WaitGroup

	mu          sync.Mutex
	cfg         Config
	cache       *Cache
	st          machine
	registered  bool
	closed      bool
	trigger     dom.Element
	content     dom.Element
	dropdown    dom.Element
	name        dom.Element
	hideTimer   Timer
	hideSeq     uint64
	unsubscribe []func()
}

// New создаёт виджет. До вызова Init или Register он не реагирует на события страницы.
func New(doc dom.Querier, fetcher Fetcher, bus Notifier, opts ...Option) *Widget {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Widget{
		doc:     doc,
		fetcher: fetcher,
		bus:     bus,
		clock:   realClock{},
		logger:  zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
		ready:   make(chan struct{}),
		cfg:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.cache = NewCache(w.clock)

	return w
}

// Init асинхронно загружает удалённую конфигурацию и затем регистрирует обработчики событий.
// Ошибка загрузки конфигурации не прерывает инициализацию: остаются текущие значения.
// Запрос конфигурации отменяется как по ctx, так и при Close.
func (w *Widget) Init(ctx context.Context) {
	w.initOnce.Do(func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			close(w.ready)
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()

		go func() {
			defer w.wg.Done()
			defer close(w.ready)

			cfgCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			stop := context.AfterFunc(w.ctx, cancel)
			defer stop()

			w.loadConfig(cfgCtx)
			w.Register()
		}()
	})
}

// Ready закрывается, когда Init завершил загрузку конфигурации и регистрацию.
func (w *Widget) Ready() <-chan struct{} {
	return w.ready
}

func (w *Widget) loadConfig(ctx context.Context) {
	w.mu.Lock()
	path := w.cfg.ConfigURL
	w.mu.Unlock()

	remote, err := w.fetcher.FetchConfig(ctx, path)
	if err != nil {
		if w.ctx.Err() != nil {
			return
		}
		w.logger.Error("account overlay: config loading failed, using defaults", zap.Error(err), zap.String("url", path))
		return
	}

	w.mu.Lock()
	w.cfg = Merge(w.cfg, remote)
	w.mu.Unlock()
}

// Register находит элементы страницы и подписывается на события согласно конфигурации.
// Если триггер или область контента не найдены, виджет остаётся неактивным.
func (w *Widget) Register() {
	w.mu.Lock()
	if w.registered || w.closed {
		w.mu.Unlock()
		return
	}
	cfg := w.cfg

	trigger, ok := w.doc.QuerySelector(cfg.TriggerSelector)
	if !ok {
		w.mu.Unlock()
		return
	}
	content, ok := w.doc.QuerySelector(cfg.ContentSelector)
	if !ok {
		w.mu.Unlock()
		return
	}

	w.registered = true
	w.trigger = trigger
	w.content = content
	w.dropdown, _ = trigger.NextElementSibling()
	w.name, _ = trigger.QuerySelector(cfg.NameSelector)
	dropdown := w.dropdown
	w.mu.Unlock()

	if cfg.LoadOnHover {
		trigger.AddEventListener("mouseenter", w.OnTriggerHover)
		trigger.AddEventListener("mouseleave", w.OnMouseLeave)

		if dropdown != nil {
			dropdown.AddEventListener("mouseenter", w.OnDropdownEnter)
			dropdown.AddEventListener("mouseleave", w.OnDropdownLeave)
		}
	}

	if cfg.LoadOnClick {
		trigger.AddEventListener("click", w.OnTriggerClick)
	}

	clearCache := func(events.Event) { w.ClearCache() }
	unsubLogin := w.bus.Subscribe(events.CustomerLogin, clearCache)
	unsubLogout := w.bus.Subscribe(events.CustomerLogout, clearCache)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		unsubLogin()
		unsubLogout()
		return
	}
	w.unsubscribe = append(w.unsubscribe, unsubLogin, unsubLogout)
	w.mu.Unlock()
}

// OnTriggerHover открывает выпадающее меню и загружает содержимое, если оно ещё не загружено.
func (w *Widget) OnTriggerHover() {
	w.ShowDropdown()
	w.load(w.ctx)
}

// OnTriggerClick загружает содержимое, если оно ещё не загружено.
func (w *Widget) OnTriggerClick() {
	w.load(w.ctx)
}

// OnMouseLeave откладывает скрытие выпадающего меню на HideDelay.
func (w *Widget) OnMouseLeave() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.cancelHideLocked()
	w.hideSeq++
	seq := w.hideSeq
	w.hideTimer = w.clock.AfterFunc(w.cfg.HideDelay, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.hideSeq == seq {
			w.hideLocked()
		}
	})
}

// OnDropdownEnter отменяет отложенное скрытие.
func (w *Widget) OnDropdownEnter() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelHideLocked()
}

// OnDropdownLeave скрывает выпадающее меню сразу.
func (w *Widget) OnDropdownLeave() {
	w.HideDropdown()
}

// ShowDropdown показывает выпадающее меню и отменяет отложенное скрытие.
func (w *Widget) ShowDropdown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cancelHideLocked()
	if w.dropdown != nil {
		w.dropdown.AddClass(ClassShow)
		w.trigger.SetAttribute(AttrExpanded, "true")
	}
}

// HideDropdown скрывает выпадающее меню.
func (w *Widget) HideDropdown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hideLocked()
}

func (w *Widget) hideLocked() {
	if w.dropdown != nil {
		w.dropdown.RemoveClass(ClassShow)
		w.trigger.SetAttribute(AttrExpanded, "false")
	}
	w.cancelHideLocked()
}

func (w *Widget) cancelHideLocked() {
	if w.hideTimer != nil {
		w.hideTimer.Stop()
		w.hideTimer = nil
	}
	w.hideSeq++
}

// Load запускает загрузку содержимого, если виджет зарегистрирован, не загружается
// и не держит актуальное содержимое. Вызов не ждёт завершения запроса.
func (w *Widget) Load(ctx context.Context) {
	w.load(ctx)
}

func (w *Widget) load(ctx context.Context) {
	w.mu.Lock()

	if w.closed || w.content == nil || w.st.loading {
		w.mu.Unlock()
		return
	}
	if w.st.initialized && !w.staleLocked() {
		w.mu.Unlock()
		return
	}

	if data, ok := w.cachedLocked(); ok {
		w.st.markLoaded()
		rendered := w.renderLocked(data)
		w.mu.Unlock()
		if rendered {
			w.afterRender()
		}
		return
	}

	token, ok := w.st.begin()
	if !ok {
		w.mu.Unlock()
		return
	}
	path := w.cfg.OverlayURL
	w.wg.Add(1)
	w.mu.Unlock()

	go w.fetch(ctx, path, token)
}

func (w *Widget) fetch(ctx context.Context, path, token string) {
	defer w.wg.Done()

	payload, err := w.fetcher.FetchOverlay(ctx, path)

	w.mu.Lock()
	if !w.st.finish(token, err == nil) {
		w.mu.Unlock()
		w.logger.Debug("account overlay: discarding stale response", zap.String("url", path))
		return
	}

	if err != nil {
		w.renderErrorLocked()
		w.mu.Unlock()
		w.logger.Error("account overlay: failed to load content", zap.Error(err), zap.String("url", path))
		return
	}

	if w.cfg.EnableCaching {
		w.cache.Set(cacheKey, payload)
	}
	rendered := w.renderLocked(payload)
	w.mu.Unlock()

	if rendered {
		w.afterRender()
	}
}

// staleLocked сообщает, что загруженное содержимое нужно запросить заново.
func (w *Widget) staleLocked() bool {
	if !w.cfg.EnableCaching {
		return true
	}
	_, ok := w.cache.Get(cacheKey, w.cfg.CacheTimeout)
	return !ok
}

func (w *Widget) cachedLocked() (model.OverlayPayload, bool) {
	if !w.cfg.EnableCaching {
		return model.OverlayPayload{}, false
	}
	return w.cache.Get(cacheKey, w.cfg.CacheTimeout)
}

func (w *Widget) renderLocked(data model.OverlayPayload) bool {
	markup, err := render.Overlay(data)
	if err == nil {
		err = w.content.SetInnerHTML(markup)
	}
	if err != nil {
		w.logger.Error("account overlay: failed to render content", zap.Error(err))
		w.st.invalidate()
		w.st.failed = true
		w.renderErrorLocked()
		return false
	}

	w.content.RemoveClass(ClassError)
	w.content.AddClass(ClassLoaded)

	if w.name != nil {
		if data.IsLoggedIn {
			w.name.SetTextContent(data.CustomerName)
		} else {
			w.name.SetTextContent("")
		}
	}
	return true
}

func (w *Widget) renderErrorLocked() {
	markup, err := render.Error(w.cfg.LoginURL)
	if err == nil {
		err = w.content.SetInnerHTML(markup)
	}
	if err != nil {
		w.logger.Error("account overlay: failed to render error", zap.Error(err))
	}
	w.content.RemoveClass(ClassLoaded)
	w.content.AddClass(ClassError)
}

// afterRender уведомляет страницу о новой разметке. Вызывается без блокировки виджета,
// поэтому подписчики могут обращаться к нему.
func (w *Widget) afterRender() {
	if w.plugins != nil {
		w.plugins.InitializePlugins()
	}
	w.bus.Publish(events.Event{Name: events.OverlayLoaded, Detail: w.content})
}

// ClearCache удаляет кешированное содержимое и возвращает виджет в Idle.
// Ответ запроса, выполняющегося в момент вызова, будет отброшен.
func (w *Widget) ClearCache() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cache.Clear()
	w.st.invalidate()

	if w.content != nil {
		w.content.RemoveClass(ClassLoaded)
	}
	if w.name != nil {
		w.name.SetTextContent("")
	}
}

// State возвращает текущее состояние загрузки.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st.State()
}

// IsInitialized сообщает, что содержимое успешно отрисовано и не сброшено.
func (w *Widget) IsInitialized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st.initialized
}

// Config возвращает действующую конфигурацию.
func (w *Widget) Config() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Wait ждёт завершения запущенных запросов.
func (w *Widget) Wait() {
	w.wg.Wait()
}

// Close отписывает виджет от событий страницы, отменяет отложенное скрытие
// и ждёт завершения запущенных запросов.
func (w *Widget) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.wg.Wait()
		return
	}
	w.closed = true
	w.cancelHideLocked()
	unsubscribe := w.unsubscribe
	w.unsubscribe = nil
	w.mu.Unlock()

	for _, u := range unsubscribe {
		u()
	}
	w.cancel()
	w.wg.Wait()
}
