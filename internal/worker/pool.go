package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sitio/sitio/internal/logger"
)

// TaskType определяет тип задачи
type TaskType string

const (
	TaskMinify        TaskType = "minify"
	TaskThumbnail     TaskType = "thumbnail"
	TaskPoster        TaskType = "poster"
	TaskNotifyContact TaskType = "notify_contact"
)

// Task представляет задачу для обработки
type Task struct {
	ID        string
	Type      TaskType
	Src       string // исходный файл (для задач сборки)
	Dst       string // файл результата
	Payload   any    // произвольные данные задачи
	CreatedAt time.Time
}

// NewTask создает задачу с уникальным ID
func NewTask(taskType TaskType, src, dst string, payload any) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Type:      taskType,
		Src:       src,
		Dst:       dst,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// TaskResult содержит результат выполнения задачи
type TaskResult struct {
	TaskID   string
	Type     TaskType
	Success  bool
	Error    error
	Duration time.Duration
}

// Handler обрабатывает задачи определенного типа
type Handler func(ctx context.Context, task *Task) error

// Pool управляет пулом воркеров
type Pool struct {
	numWorkers  int
	taskTimeout time.Duration
	taskQueue   chan *Task
	resultQueue chan *TaskResult
	handlers    map[TaskType]Handler
	wg          sync.WaitGroup
	resultsDone chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex

	submitMu  sync.RWMutex
	closed    bool
	startOnce sync.Once
	closeOnce sync.Once

	// Статистика
	stats Stats
}

// Stats содержит статистику пула
type Stats struct {
	TotalTasks     int64 `json:"total_tasks"`
	CompletedTasks int64 `json:"completed_tasks"`
	FailedTasks    int64 `json:"failed_tasks"`
	QueuedTasks    int64 `json:"queued_tasks"`
	ActiveWorkers  int64 `json:"active_workers"`
}

// NewPool создает новый пул воркеров
func NewPool(numWorkers int, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = 1000
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		numWorkers:  numWorkers,
		taskTimeout: 5 * time.Minute,
		taskQueue:   make(chan *Task, queueSize),
		resultQueue: make(chan *TaskResult, queueSize),
		handlers:    make(map[TaskType]Handler),
		resultsDone: make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// RegisterHandler регистрирует обработчик для типа задачи
func (p *Pool) RegisterHandler(taskType TaskType, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[taskType] = handler
}

// Start запускает воркеры
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		logger.InfoLog.Printf("Starting worker pool with %d workers", p.numWorkers)

		for i := 0; i < p.numWorkers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}

		go p.processResults()
	})
}

// Close перестает принимать задачи и ждет выполнения уже поставленных
func (p *Pool) Close() {
	p.shutdown(false)
}

// Stop отменяет выполняющиеся задачи и останавливает пул, не дожидаясь очереди
func (p *Pool) Stop() {
	p.shutdown(true)
}

func (p *Pool) shutdown(cancel bool) {
	p.closeOnce.Do(func() {
		p.Start()

		p.submitMu.Lock()
		p.closed = true
		close(p.taskQueue)
		p.submitMu.Unlock()

		if cancel {
			p.cancel()
		}
		p.wg.Wait()
		close(p.resultQueue)
		<-p.resultsDone
		p.cancel()
		logger.InfoLog.Println("Worker pool stopped")
	})
}

// Submit добавляет задачу в очередь без ожидания
func (p *Pool) Submit(task *Task) bool {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()
	if p.closed {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.taskQueue <- task:
		atomic.AddInt64(&p.stats.TotalTasks, 1)
		atomic.AddInt64(&p.stats.QueuedTasks, 1)
		return true
	default:
		// Очередь переполнена
		logger.ErrorLog.Printf("Task queue full, dropping task %s (%s)", task.ID, task.Type)
		return false
	}
}

// SubmitBlocking добавляет задачу, ожидая места в очереди
func (p *Pool) SubmitBlocking(task *Task) bool {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()
	if p.closed {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.taskQueue <- task:
		atomic.AddInt64(&p.stats.TotalTasks, 1)
		atomic.AddInt64(&p.stats.QueuedTasks, 1)
		return true
	}
}

// Stats возвращает статистику пула
func (p *Pool) Stats() Stats {
	return Stats{
		TotalTasks:     atomic.LoadInt64(&p.stats.TotalTasks),
		CompletedTasks: atomic.LoadInt64(&p.stats.CompletedTasks),
		FailedTasks:    atomic.LoadInt64(&p.stats.FailedTasks),
		QueuedTasks:    atomic.LoadInt64(&p.stats.QueuedTasks),
		ActiveWorkers:  atomic.LoadInt64(&p.stats.ActiveWorkers),
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			p.processTask(id, task)
		}
	}
}

func (p *Pool) processTask(workerID int, task *Task) {
	atomic.AddInt64(&p.stats.ActiveWorkers, 1)
	atomic.AddInt64(&p.stats.QueuedTasks, -1)
	defer atomic.AddInt64(&p.stats.ActiveWorkers, -1)

	start := time.Now()

	p.mu.RLock()
	handler, ok := p.handlers[task.Type]
	p.mu.RUnlock()

	var err error
	if !ok {
		err = fmt.Errorf("worker %d: no handler for task type %s", workerID, task.Type)
	} else {
		err = p.run(handler, task)
	}

	result := &TaskResult{
		TaskID:   task.ID,
		Type:     task.Type,
		Success:  err == nil,
		Error:    err,
		Duration: time.Since(start),
	}

	if result.Success {
		atomic.AddInt64(&p.stats.CompletedTasks, 1)
	} else {
		atomic.AddInt64(&p.stats.FailedTasks, 1)
	}

	select {
	case p.resultQueue <- result:
	default:
		// Result queue full, log and continue
		if err != nil {
			logger.ErrorLog.Printf("Task %s failed: %v", task.ID, err)
		}
	}
}

func (p *Pool) run(handler Handler, task *Task) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("task %s panicked: %v", task.ID, v)
		}
	}()

	ctx, cancel := context.WithTimeout(p.ctx, p.taskTimeout)
	defer cancel()
	return handler(ctx, task)
}

func (p *Pool) processResults() {
	defer close(p.resultsDone)
	for result := range p.resultQueue {
		if !result.Success && result.Error != nil {
			logger.ErrorLog.Printf("Task %s (%s) failed: %v (took %v)", result.TaskID, result.Type, result.Error, result.Duration)
		}
	}
}
