package contact

import (
	"context"
	"fmt"

	"github.com/microcosm-cc/bluemonday"

	"github.com/sitio/sitio/internal/logger"
	"github.com/sitio/sitio/internal/worker"
)

// Notifier получает принятые заявки
type Notifier interface {
	Notify(s *Submission) error
}

// PoolNotifier ставит уведомление о заявке в очередь пула воркеров
type PoolNotifier struct {
	pool   *worker.Pool
	policy *bluemonday.Policy
}

// NewPoolNotifier создает уведомитель и регистрирует обработчик в пуле
func NewPoolNotifier(pool *worker.Pool) *PoolNotifier {
	n := &PoolNotifier{
		pool:   pool,
		policy: bluemonday.StrictPolicy(),
	}
	pool.RegisterHandler(worker.TaskNotifyContact, n.handle)
	return n
}

// Notify ставит задачу в очередь без ожидания
func (n *PoolNotifier) Notify(s *Submission) error {
	if !n.pool.Submit(worker.NewTask(worker.TaskNotifyContact, "", "", s)) {
		return fmt.Errorf("notification queue rejected submission %s", s.ID)
	}
	return nil
}

// Sanitize убирает из полей заявки HTML разметку
func (n *PoolNotifier) Sanitize(s *Submission) Submission {
	clean := *s
	clean.Name = n.policy.Sanitize(s.Name)
	clean.Email = n.policy.Sanitize(s.Email)
	clean.Service = n.policy.Sanitize(s.Service)
	clean.Message = n.policy.Sanitize(s.Message)
	return clean
}

func (n *PoolNotifier) handle(_ context.Context, task *worker.Task) error {
	s, ok := task.Payload.(*Submission)
	if !ok {
		return fmt.Errorf("unexpected payload %T", task.Payload)
	}

	clean := n.Sanitize(s)
	logger.InfoLog.Printf("Contact received: id=%s name=%q email=%q service=%q message=%q",
		clean.ID, clean.Name, clean.Email, clean.Service, clean.Message)
	return nil
}
