package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-chi/chi/v5"

	"github.com/sitio/sitio/internal/cache"
	"github.com/sitio/sitio/internal/config"
	"github.com/sitio/sitio/internal/contact"
	"github.com/sitio/sitio/internal/gallery"
	"github.com/sitio/sitio/internal/logger"
	"github.com/sitio/sitio/internal/media"
	"github.com/sitio/sitio/internal/worker"
)

// Handlers содержит все HTTP-обработчики
type Handlers struct {
	cfg        *config.Config
	root       string // каталог, из которого отдаются файлы сайта
	workerPool *worker.Pool
	limiter    *cache.Limiter
	notifier   contact.Notifier
	pages      *cache.Cache[scannedPage]

	// Из исходников отдается только то, что попадает в сборку (site.files и site.dirs).
	// Каталог сборки отдается целиком.
	manifestOnly bool
	logsDir      string
}

type scannedPage struct {
	modTime time.Time
	page    *gallery.Page
}

// NewHandlers создает новый экземпляр обработчиков
func NewHandlers(
	cfg *config.Config,
	root string,
	workerPool *worker.Pool,
	limiter *cache.Limiter,
	notifier contact.Notifier,
) *Handlers {
	absRoot, _ := filepath.Abs(root)
	absOut, _ := filepath.Abs(cfg.Site.OutDir)
	var logsDir string
	if cfg.Logs.Path != "" {
		logsDir, _ = filepath.Abs(cfg.Logs.Path)
	}

	return &Handlers{
		cfg:        cfg,
		root:       root,
		workerPool: workerPool,
		limiter:    limiter,
		notifier:   notifier,
		pages: cache.New[scannedPage](cache.Config{
			DefaultExpiration: 10 * time.Minute,
			CleanupInterval:   5 * time.Minute,
			MaxItems:          100,
		}),
		manifestOnly: absRoot != absOut,
		logsDir:      logsDir,
	}
}

// Close останавливает фоновую очистку кэша страниц
func (h *Handlers) Close() {
	h.pages.Stop()
}

// Health сообщает, что сервер жив
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// === Контакты ===

// Contact принимает заявку с формы контактов
func (h *Handlers) Contact(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !h.limiter.Allow(ip) {
		h.jsonMessage(w, http.StatusTooManyRequests, contact.MsgTooManyTries)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.Contact.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			// Слишком большое тело: разрываем соединение без ответа
			logger.ErrorLog.Printf("Contact body from %s exceeds %d bytes, dropping connection", ip, tooLarge.Limit)
			h.dropConnection(w)
			return
		}
		h.jsonMessage(w, http.StatusBadRequest, contact.MsgInvalidJSON)
		return
	}

	sub, err := contact.Parse(body)
	if err != nil {
		if errors.Is(err, contact.ErrMissingFields) {
			h.jsonMessage(w, http.StatusBadRequest, contact.MsgMissingFields)
			return
		}
		logger.ErrorLog.Printf("Error parsing contact JSON: %v", err)
		h.jsonMessage(w, http.StatusBadRequest, contact.MsgInvalidJSON)
		return
	}
	sub.RemoteAddr = ip

	if h.notifier != nil {
		if err := h.notifier.Notify(sub); err != nil {
			logger.ErrorLog.Printf("Failed to queue contact %s: %v", sub.ID, err)
		}
	}

	h.jsonMessage(w, http.StatusOK, contact.MsgReceived)
}

func (h *Handlers) dropConnection(w http.ResponseWriter) {
	conn, _, err := http.NewResponseController(w).Hijack()
	if err != nil {
		h.jsonMessage(w, http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge))
		return
	}
	conn.Close()
}

// === Галерея ===

type itemView struct {
	gallery.MediaItem
	Candidates []string `json:"candidates"`
	Thumb      string   `json:"thumb"`
	MIME       string   `json:"mime,omitempty"`
}

type entryView struct {
	Type      gallery.EntryType `json:"type"`
	Title     string            `json:"title"`
	Source    string            `json:"source,omitempty"`
	Clickable bool              `json:"clickable"`
	Items     []itemView        `json:"items"`
	Thumbs    []gallery.Thumb   `json:"thumbs"`
}

// GalleryPage возвращает записи галереи HTML страницы сайта
func (h *Handlers) GalleryPage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "page")
	if !strings.HasSuffix(name, ".html") {
		name += ".html"
	}
	if name != path.Base(name) || !h.servable(name) {
		h.NotFound(w, r)
		return
	}

	page, err := h.scanPage(filepath.Join(h.root, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			h.NotFound(w, r)
			return
		}
		logger.ErrorLog.Printf("Failed to scan %s: %v", name, err)
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	entries := make([]entryView, 0, len(page.Entries))
	for _, e := range page.Entries {
		view := entryView{
			Type:      e.Type,
			Title:     e.Title,
			Source:    e.Source,
			Clickable: e.Clickable,
			Items:     make([]itemView, 0, len(e.Group)),
			Thumbs:    e.Group.StripThumbs(0, h.cfg.Site.FallbackThumb, h.fileExists),
		}
		for _, it := range e.Group {
			view.Items = append(view.Items, itemView{
				MediaItem:  it,
				Candidates: it.Candidates(),
				Thumb:      it.PreviewURL(h.fileExists),
				MIME:       media.SourceMIME(it.Kind, it.NormalizedURL),
			})
		}
		entries = append(entries, view)
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"page":    name,
		"entries": entries,
	})
}

// fileExists проверяет, что в каталоге сайта есть файл rel (путь из разметки)
func (h *Handlers) fileExists(rel string) bool {
	if unescaped, err := url.PathUnescape(rel); err == nil {
		rel = unescaped
	}
	info, err := os.Stat(filepath.Join(h.root, filepath.FromSlash(path.Clean("/"+rel))))
	return err == nil && info.Mode().IsRegular()
}

// scanPage разбирает страницу, пока она не изменилась на диске - берет из кэша
func (h *Handlers) scanPage(file string) (*gallery.Page, error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, err
	}
	if cached, ok := h.pages.Get(file); ok && cached.modTime.Equal(info.ModTime()) {
		return cached.page, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	page, err := gallery.ScanPage(f)
	if err != nil {
		return nil, err
	}
	h.pages.Set(file, scannedPage{modTime: info.ModTime(), page: page})
	return page, nil
}

// === Мониторинг ===

// QueueStats возвращает статистику очереди задач
func (h *Handlers) QueueStats(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, h.workerPool.Stats())
}

// === Статика ===

// Static отдает файлы сайта. Для каталогов отдается index.html,
// листинг каталогов не показывается.
func (h *Handlers) Static(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.NotFound(w, r)
		return
	}

	name := filepath.Join(h.root, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	info, err := os.Stat(name)
	if err == nil && info.IsDir() {
		name = filepath.Join(name, "index.html")
		info, err = os.Stat(name)
	}
	if err != nil || info.IsDir() {
		h.NotFound(w, r)
		return
	}
	if rel, err := filepath.Rel(h.root, name); err != nil || !h.servable(filepath.ToSlash(rel)) {
		h.NotFound(w, r)
		return
	}

	f, err := os.Open(name)
	if err != nil {
		h.NotFound(w, r)
		return
	}
	defer f.Close()

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// servable решает, можно ли отдавать файл rel (путь через / относительно root).
// Скрытые файлы и логи не отдаются никогда.
func (h *Handlers) servable(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return false
		}
	}
	if h.logsDir != "" {
		if abs, err := filepath.Abs(filepath.Join(h.root, filepath.FromSlash(rel))); err == nil {
			if r, err := filepath.Rel(h.logsDir, abs); err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) {
				return false
			}
		}
	}
	if !h.manifestOnly {
		return true
	}

	for _, pattern := range h.cfg.Site.Files {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	for _, dir := range h.cfg.Site.Dirs {
		dir = strings.Trim(path.Clean(filepath.ToSlash(dir)), "/")
		if strings.HasPrefix(rel, dir+"/") {
			return true
		}
	}
	return false
}

// NotFound отвечает 404 text/plain
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("Not found"))
}

// === Вспомогательные функции ===

func (h *Handlers) jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		logger.ErrorLog.Printf("Failed to encode response: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(payload)
}

func (h *Handlers) jsonMessage(w http.ResponseWriter, code int, message string) {
	h.jsonResponse(w, code, map[string]string{"message": message})
}

func (h *Handlers) jsonError(w http.ResponseWriter, message string, code int) {
	h.jsonResponse(w, code, map[string]string{"error": message})
}

// clientIP адрес клиента без порта (RealIP уже подставил X-Forwarded-For)
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
