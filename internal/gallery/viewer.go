package gallery

import (
	"context"
	"errors"
	"sync"

	"github.com/sitio/sitio/internal/logger"
)

var (
	// ErrEmptyGroup группа без элементов не открывает просмотрщик
	ErrEmptyGroup = errors.New("empty media group")
	// ErrInvalidIndex индекс вне группы
	ErrInvalidIndex = errors.New("index out of range")
)

// Клавиши, которые обрабатывает открытый просмотрщик
const (
	KeyEscape     = "Escape"
	KeyArrowRight = "ArrowRight"
	KeyArrowLeft  = "ArrowLeft"
	KeyTab        = "Tab"
)

// Key нажатие клавиши
type Key struct {
	Name  string
	Shift bool
}

// ViewerState снимок состояния просмотрщика.
// Пока просмотрщик открыт, 0 <= CurrentIndex < len(ActiveGroup); закрыт - CurrentIndex == -1.
type ViewerState struct {
	ActiveGroup  MediaGroup `json:"active_group"`
	CurrentIndex int        `json:"current_index"`
}

// IsOpen сообщает, открыт ли просмотрщик
func (s ViewerState) IsOpen() bool {
	return s.CurrentIndex >= 0
}

// Viewer модальный просмотрщик галереи. Единственный писатель состояния;
// все методы безопасны для конкурентного вызова.
type Viewer struct {
	surface       Surface
	resolver      *Resolver
	fallbackThumb string

	mu         sync.Mutex
	group      MediaGroup
	index      int
	generation uint64
	prevFocus  string

	pending sync.WaitGroup
}

// NewViewer создает закрытый просмотрщик
func NewViewer(surface Surface, resolver *Resolver, fallbackThumb string) *Viewer {
	return &Viewer{
		surface:       surface,
		resolver:      resolver,
		fallbackThumb: fallbackThumb,
		index:         -1,
	}
}

// Open показывает элемент index группы. Загрузка медиа идет асинхронно,
// результат устаревшего открытия отбрасывается.
func (v *Viewer) Open(group MediaGroup, index int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.openLocked(group, index)
}

// Next переходит к следующему элементу по кругу. false, если просмотрщик закрыт.
func (v *Viewer) Next() bool {
	return v.step(1)
}

// Prev переходит к предыдущему элементу по кругу. false, если просмотрщик закрыт.
func (v *Viewer) Prev() bool {
	return v.step(-1)
}

// JumpTo открывает i-й элемент активной группы (клик по миниатюре)
func (v *Viewer) JumpTo(i int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.index < 0 {
		return ErrEmptyGroup
	}
	return v.openLocked(v.group, i)
}

// Close закрывает просмотрщик и возвращает фокус туда, где он был до открытия
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.index < 0 {
		return
	}

	v.surface.Teardown()
	v.surface.SetHidden(true)
	v.surface.SetScrollLocked(false)
	v.generation++
	v.group = nil
	v.index = -1
	if v.prevFocus != "" {
		v.surface.Focus(v.prevFocus)
	}
	v.prevFocus = ""
}

// State возвращает снимок состояния
func (v *Viewer) State() ViewerState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ViewerState{
		ActiveGroup:  append(MediaGroup(nil), v.group...),
		CurrentIndex: v.index,
	}
}

// Wait ждет завершения всех запущенных загрузок
func (v *Viewer) Wait() {
	v.pending.Wait()
}

// HandleKey обрабатывает клавишу. Закрытый просмотрщик клавиши игнорирует.
func (v *Viewer) HandleKey(k Key) bool {
	v.mu.Lock()
	open, n := v.index >= 0, len(v.group)
	v.mu.Unlock()
	if !open {
		return false
	}

	switch k.Name {
	case KeyEscape:
		v.Close()
		return true
	case KeyArrowRight:
		return v.Next()
	case KeyArrowLeft:
		return v.Prev()
	case KeyTab:
		trap := NewFocusTrap(n)
		v.surface.Focus(trap.Move(v.surface.ActiveElement(), k.Shift))
		return true
	default:
		return false
	}
}

func (v *Viewer) step(delta int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.index < 0 || len(v.group) == 0 {
		return false
	}
	n := len(v.group)
	return v.openLocked(v.group, (v.index+delta+n)%n) == nil
}

func (v *Viewer) openLocked(group MediaGroup, index int) error {
	if len(group) == 0 {
		return ErrEmptyGroup
	}
	if index < 0 || index >= len(group) {
		return ErrInvalidIndex
	}

	if v.index < 0 {
		v.prevFocus = v.surface.ActiveElement()
	}

	v.surface.Teardown()
	v.generation++
	v.group = group
	v.index = index

	item := group[index]
	v.surface.SetTitle(item.Title)
	v.surface.SetHidden(false)
	v.surface.SetScrollLocked(true)
	v.surface.RenderThumbs(group.Thumbs(index, v.fallbackThumb))
	v.surface.Focus(ControlClose)

	gen := v.generation
	v.pending.Add(1)
	v.resolver.ResolveAsync(context.Background(), item, func(res Result) {
		defer v.pending.Done()
		v.deliver(gen, item, res)
	})
	return nil
}

// deliver отрисовывает итог загрузки, если открытие все еще актуально
func (v *Viewer) deliver(gen uint64, item MediaItem, res Result) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		return
	}

	if res.Err != nil {
		logger.ErrorLog.Printf("Failed to load %s %q: %v", item.Kind, item.SourceURL, res.Err)
		v.surface.RenderError(item, ErrorMessage(item.Kind))
		return
	}
	v.surface.RenderMedia(item, res.URL)
}
