package watch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sitio/sitio/internal/logger"
)

// DefaultDebounce время, в течение которого события собираются в одну пачку
const DefaultDebounce = 500 * time.Millisecond

// FileEvent представляет событие файловой системы
type FileEvent struct {
	Path      string
	Operation string // create, modify, delete, rename
	IsDir     bool
	Time      time.Time
}

// EventHandler обрабатывает пачку событий, накопленных за время debounce
type EventHandler func(events []FileEvent)

// Watcher наблюдает за исходниками сайта
type Watcher struct {
	root     string
	ignore   []string // абсолютные пути, события внутри которых пропускаются
	debounce time.Duration
	watcher  *fsnotify.Watcher
	handlers []EventHandler

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}

	// Debouncing - группировка событий
	pendingEvents map[string]*FileEvent
	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher создает наблюдатель за root. Пути из ignore (например каталог
// сборки) не отслеживаются.
func NewWatcher(root string, ignore []string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}

	var absIgnore []string
	for _, p := range ignore {
		if !filepath.IsAbs(p) {
			p = filepath.Join(absRoot, p)
		}
		absIgnore = append(absIgnore, filepath.Clean(p))
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		root:          absRoot,
		ignore:        absIgnore,
		debounce:      debounce,
		watcher:       fsWatcher,
		stopChan:      make(chan struct{}),
		pendingEvents: make(map[string]*FileEvent),
	}, nil
}

// AddHandler добавляет обработчик событий
func (w *Watcher) AddHandler(handler EventHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Start запускает наблюдение
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.eventLoop()

	logger.InfoLog.Printf("File watcher started on %s", w.root)
	return nil
}

// Stop останавливает наблюдение
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	err := w.watcher.Close()

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceMu.Unlock()

	logger.InfoLog.Println("File watcher stopped")
	return err
}

func (w *Watcher) ignored(path string) bool {
	for _, p := range w.ignore {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addRecursive добавляет директорию и все поддиректории
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Продолжаем при ошибках доступа
		}
		if !d.IsDir() {
			return nil
		}

		// Пропускаем скрытые директории и каталог сборки
		if path != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules" || w.ignored(path)) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			logger.ErrorLog.Printf("Watcher: failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.ErrorLog.Printf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	var op string
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		op = "create"
	case event.Op&fsnotify.Write == fsnotify.Write:
		op = "modify"
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		op = "delete"
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		op = "rename"
	default:
		return
	}

	name := filepath.Clean(event.Name)
	if w.ignored(name) || strings.HasPrefix(filepath.Base(name), ".") {
		return
	}

	isDir := false
	if info, err := os.Stat(name); err == nil {
		isDir = info.IsDir()

		// Если создана новая директория, добавляем её в watcher
		if isDir && op == "create" {
			if err := w.addRecursive(name); err != nil {
				logger.ErrorLog.Printf("Watcher: failed to add new directory %s: %v", name, err)
			}
		}
	}

	w.debounceMu.Lock()
	w.pendingEvents[name] = &FileEvent{
		Path:      name,
		Operation: op,
		IsDir:     isDir,
		Time:      time.Now(),
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.processPendingEvents)
	w.debounceMu.Unlock()
}

func (w *Watcher) processPendingEvents() {
	w.debounceMu.Lock()
	pending := w.pendingEvents
	w.pendingEvents = make(map[string]*FileEvent)
	w.debounceMu.Unlock()

	if len(pending) == 0 {
		return
	}

	events := make([]FileEvent, 0, len(pending))
	for _, e := range pending {
		logger.InfoLog.Printf("Watcher: %s %s (dir=%v)", e.Operation, e.Path, e.IsDir)
		events = append(events, *e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	w.mu.RLock()
	handlers := w.handlers
	w.mu.RUnlock()

	for _, handler := range handlers {
		handler(events)
	}
}

// IsRunning возвращает состояние наблюдателя
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// WatchedPaths возвращает список наблюдаемых путей
func (w *Watcher) WatchedPaths() []string {
	return w.watcher.WatchList()
}
