package worker

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sitio/sitio/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	m.Run()
}

func TestPool_CloseDrainsQueue(t *testing.T) {
	p := NewPool(2, 100)

	var done int64
	p.RegisterHandler(TaskMinify, func(_ context.Context, task *Task) error {
		atomic.AddInt64(&done, 1)
		return nil
	})
	p.Start()

	for i := 0; i < 50; i++ {
		assert.True(t, p.Submit(NewTask(TaskMinify, "a.js", "a.min.js", nil)))
	}
	p.Close()

	assert.Equal(t, int64(50), atomic.LoadInt64(&done))
	stats := p.Stats()
	assert.Equal(t, int64(50), stats.TotalTasks)
	assert.Equal(t, int64(50), stats.CompletedTasks)
	assert.Equal(t, int64(0), stats.QueuedTasks)
}

func TestPool_FailuresAndPanicsAreCounted(t *testing.T) {
	p := NewPool(1, 10)
	p.RegisterHandler(TaskPoster, func(context.Context, *Task) error {
		return errors.New("ffmpeg not found")
	})
	p.RegisterHandler(TaskThumbnail, func(context.Context, *Task) error {
		panic("boom")
	})
	p.Start()

	p.Submit(NewTask(TaskPoster, "v.mp4", "v.jpg", nil))
	p.Submit(NewTask(TaskThumbnail, "a.jpg", "t.jpg", nil))
	p.Submit(NewTask(TaskNotifyContact, "", "", nil)) // без обработчика
	p.Close()

	stats := p.Stats()
	assert.Equal(t, int64(3), stats.FailedTasks)
	assert.Equal(t, int64(0), stats.CompletedTasks)
}

func TestPool_SubmitAfterCloseIsRejected(t *testing.T) {
	p := NewPool(1, 1)
	p.Start()
	p.Close()

	assert.False(t, p.Submit(NewTask(TaskMinify, "", "", nil)))
	assert.False(t, p.SubmitBlocking(NewTask(TaskMinify, "", "", nil)))

	// повторное закрытие безопасно
	p.Stop()
}

func TestNewTask_UniqueIDs(t *testing.T) {
	a := NewTask(TaskMinify, "", "", nil)
	b := NewTask(TaskMinify, "", "", nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEmpty(t, a.ID)
}
