package gallery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sitio/sitio/internal/media"
)

var (
	// ErrNoCandidates у элемента нет ни одного URL для проверки
	ErrNoCandidates = errors.New("no candidate urls")
	// ErrExhausted ни один кандидат не загрузился
	ErrExhausted = errors.New("all candidates failed")
	// ErrHeadUnsupported сервер не поддерживает HEAD
	ErrHeadUnsupported = errors.New("head request not supported")
)

// Prober проверяет, загружается ли медиа по URL
type Prober interface {
	// ProbeImage возвращает nil, если по URL декодируется изображение
	ProbeImage(ctx context.Context, url string) error
	// ProbeHead делает HEAD запрос. err != nil означает, что сам механизм
	// проверки не сработал, ok - что ответ 2xx.
	ProbeHead(ctx context.Context, url string) (ok bool, err error)
	// ProbeMetadata возвращает nil, если по URL читаются метаданные видео или аудио
	ProbeMetadata(ctx context.Context, url string) error
}

// Result итог поиска рабочего URL
type Result struct {
	URL string
	Err error
}

// Resolver последовательно перебирает кандидатов элемента
type Resolver struct {
	prober  Prober
	timeout time.Duration // на одну проверку, 0 - без ограничения
}

// NewResolver создает резолвер. timeout ограничивает одну проверку, 0 - без ограничения.
func NewResolver(prober Prober, timeout time.Duration) *Resolver {
	return &Resolver{prober: prober, timeout: timeout}
}

// Resolve возвращает первый кандидат, который загрузился. Одновременно
// выполняется не больше одной проверки.
func (r *Resolver) Resolve(ctx context.Context, item MediaItem) Result {
	candidates := item.Candidates()
	if len(candidates) == 0 {
		return Result{Err: ErrNoCandidates}
	}

	for _, url := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{Err: err}
		}
		if r.probe(ctx, item.Kind, url) {
			return Result{URL: url}
		}
	}
	return Result{Err: fmt.Errorf("%w: %d tried", ErrExhausted, len(candidates))}
}

// ResolveAsync выполняет Resolve в отдельной горутине и передает итог в done.
// done вызывается ровно один раз.
func (r *Resolver) ResolveAsync(ctx context.Context, item MediaItem, done func(Result)) {
	go func() {
		var res Result
		defer func() {
			if v := recover(); v != nil {
				res = Result{Err: fmt.Errorf("probe panicked: %v", v)}
			}
			done(res)
		}()
		res = r.Resolve(ctx, item)
	}()
}

func (r *Resolver) probe(ctx context.Context, kind media.Kind, url string) bool {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	switch kind {
	case media.KindVideo, media.KindAudio:
		ok, err := r.prober.ProbeHead(ctx, url)
		if err == nil {
			return ok
		}
		// HEAD недоступен, пробуем прочитать метаданные
		return r.prober.ProbeMetadata(ctx, url) == nil
	case media.KindImage:
		return r.prober.ProbeImage(ctx, url) == nil
	default:
		return false
	}
}
