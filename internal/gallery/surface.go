package gallery

import (
	"sync"

	"github.com/sitio/sitio/internal/media"
)

// Surface то, на чем просмотрщик отображает состояние (модальное окно)
type Surface interface {
	// Teardown останавливает текущее медиа и отсоединяет его источники
	Teardown()
	SetTitle(title string)
	RenderThumbs(thumbs []Thumb)
	RenderMedia(item MediaItem, url string)
	RenderError(item MediaItem, message string)
	SetHidden(hidden bool)
	SetScrollLocked(locked bool)
	Focus(control string)
	ActiveElement() string
}

// Сообщения, показываемые вместо медиа, которое не удалось загрузить
const (
	MsgImageFailed = "No se pudo cargar la imagen."
	MsgVideoFailed = "No se pudo cargar el video."
	MsgAudioFailed = "No se pudo cargar el audio."
)

// ErrorMessage возвращает текст заглушки для типа медиа
func ErrorMessage(kind media.Kind) string {
	switch kind {
	case media.KindVideo:
		return MsgVideoFailed
	case media.KindAudio:
		return MsgAudioFailed
	default:
		return MsgImageFailed
	}
}

// Rendered содержимое области медиа
type Rendered struct {
	Item  MediaItem `json:"item"`
	URL   string    `json:"url,omitempty"`
	MIME  string    `json:"mime,omitempty"`
	Error string    `json:"error,omitempty"`
}

// MemorySurface хранит отображаемое состояние в памяти
type MemorySurface struct {
	mu           sync.Mutex
	hidden       bool
	scrollLocked bool
	title        string
	thumbs       []Thumb
	media        *Rendered
	focused      string
	teardowns    int
	history      []Rendered
}

// NewMemorySurface создает скрытую поверхность с фокусом на focused
func NewMemorySurface(focused string) *MemorySurface {
	return &MemorySurface{hidden: true, focused: focused}
}

func (s *MemorySurface) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media = nil
	s.teardowns++
}

func (s *MemorySurface) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
}

func (s *MemorySurface) RenderThumbs(thumbs []Thumb) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thumbs = append([]Thumb(nil), thumbs...)
}

func (s *MemorySurface) RenderMedia(item MediaItem, url string) {
	s.render(Rendered{Item: item, URL: url, MIME: media.SourceMIME(item.Kind, url)})
}

func (s *MemorySurface) RenderError(item MediaItem, message string) {
	s.render(Rendered{Item: item, Error: message})
}

func (s *MemorySurface) render(r Rendered) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media = &r
	s.history = append(s.history, r)
}

func (s *MemorySurface) SetHidden(hidden bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden = hidden
}

func (s *MemorySurface) SetScrollLocked(locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollLocked = locked
}

func (s *MemorySurface) Focus(control string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = control
}

func (s *MemorySurface) ActiveElement() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// Media текущее содержимое области медиа, nil если пусто
func (s *MemorySurface) Media() *Rendered {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.media == nil {
		return nil
	}
	r := *s.media
	return &r
}

// History все отрисовки с момента создания
func (s *MemorySurface) History() []Rendered {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Rendered(nil), s.history...)
}

func (s *MemorySurface) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

func (s *MemorySurface) Thumbs() []Thumb {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Thumb(nil), s.thumbs...)
}

func (s *MemorySurface) Hidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hidden
}

func (s *MemorySurface) ScrollLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollLocked
}

func (s *MemorySurface) Teardowns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.teardowns
}
