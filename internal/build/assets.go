package build

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sitio/sitio/internal/media"
	"github.com/sitio/sitio/internal/worker"
)

// AssetService генерирует производные файлы (превью, постеры, минифицированные
// CSS/JS) на пуле воркеров
type AssetService struct {
	pool     *worker.Pool
	thumbGen *media.Thumbnailer
	runner   CommandRunner
	npx      string

	// Отслеживание задач в процессе
	mu         sync.Mutex
	processing map[string]bool // тип + результат -> в очереди

	thumbnails atomic.Int64
	posters    atomic.Int64
	minified   atomic.Int64
}

// NewAssetService создает сервис и регистрирует обработчики в пуле
func NewAssetService(pool *worker.Pool, thumbGen *media.Thumbnailer, runner CommandRunner, npx string) *AssetService {
	svc := &AssetService{
		pool:       pool,
		thumbGen:   thumbGen,
		runner:     runner,
		npx:        npx,
		processing: make(map[string]bool),
	}

	pool.RegisterHandler(worker.TaskThumbnail, svc.handleThumbnail)
	pool.RegisterHandler(worker.TaskPoster, svc.handlePoster)
	pool.RegisterHandler(worker.TaskMinify, svc.handleMinify)

	return svc
}

// QueueThumbnail добавляет задачу на превью изображения
func (s *AssetService) QueueThumbnail(src, dst string) bool {
	return s.queue(worker.TaskThumbnail, src, dst)
}

// QueuePoster добавляет задачу на извлечение кадра из видео
func (s *AssetService) QueuePoster(src, dst string) bool {
	return s.queue(worker.TaskPoster, src, dst)
}

// QueueMinify добавляет задачу на минификацию .css или .js
func (s *AssetService) QueueMinify(src, dst string) bool {
	return s.queue(worker.TaskMinify, src, dst)
}

func (s *AssetService) queue(taskType worker.TaskType, src, dst string) bool {
	key := string(taskType) + ":" + dst

	s.mu.Lock()
	if s.processing[key] {
		s.mu.Unlock()
		return false // Уже в очереди
	}
	s.processing[key] = true
	s.mu.Unlock()

	if !s.pool.SubmitBlocking(worker.NewTask(taskType, src, dst, nil)) {
		s.done(key)
		return false
	}
	return true
}

func (s *AssetService) done(key string) {
	s.mu.Lock()
	delete(s.processing, key)
	s.mu.Unlock()
}

func (s *AssetService) handleThumbnail(ctx context.Context, task *worker.Task) error {
	defer s.done(string(task.Type) + ":" + task.Dst)

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.thumbGen.Thumbnail(task.Src, task.Dst); err != nil {
		return fmt.Errorf("thumbnail %s: %w", task.Src, err)
	}
	s.thumbnails.Add(1)
	return nil
}

func (s *AssetService) handlePoster(ctx context.Context, task *worker.Task) error {
	defer s.done(string(task.Type) + ":" + task.Dst)

	if err := s.thumbGen.PosterFrame(ctx, task.Src, task.Dst); err != nil {
		return fmt.Errorf("poster %s: %w", task.Src, err)
	}
	s.posters.Add(1)
	return nil
}

func (s *AssetService) handleMinify(ctx context.Context, task *worker.Task) error {
	defer s.done(string(task.Type) + ":" + task.Dst)

	var args []string
	switch media.Ext(task.Src) {
	case "css":
		args = []string{"cleancss", "-o", task.Dst, task.Src}
	case "js":
		args = []string{"uglify-js", task.Src, "-o", task.Dst, "-c", "-m"}
	default:
		return fmt.Errorf("cannot minify %s", task.Src)
	}

	if out, err := s.runner.Run(ctx, s.npx, args...); err != nil {
		return fmt.Errorf("minify %s: %w (%s)", task.Src, err, out)
	}
	s.minified.Add(1)
	return nil
}

// Counts возвращает число успешно созданных превью, постеров и минифицированных файлов
func (s *AssetService) Counts() (thumbnails, posters, minified int) {
	return int(s.thumbnails.Load()), int(s.posters.Load()), int(s.minified.Load())
}
