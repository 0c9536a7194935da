package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/gtdkit/tasker/tasksvc"
)

// Service is the authenticated task API. Every method checks the
// credentials before touching the owner's tasks.
type Service interface {
	AddTask(ctx context.Context, c tasksvc.Credentials, f tasksvc.Fields) (tasksvc.Task, error)
	EditTask(ctx context.Context, c tasksvc.Credentials, taskID string, p tasksvc.Patch) (tasksvc.Task, error)
	RemoveTask(ctx context.Context, c tasksvc.Credentials, taskID string) error
	Tasks(ctx context.Context, c tasksvc.Credentials) ([]tasksvc.Task, error)
	Task(ctx context.Context, c tasksvc.Credentials, taskID string) (tasksvc.Task, error)
	FilterTasks(ctx context.Context, c tasksvc.Credentials, priority, completed string) ([]tasksvc.Task, error)
}

// New wires the task store behind the credential check. authenticate is the
// user service's authenticate endpoint.
func New(t tasksvc.TaskRepository, authenticate endpoint.Endpoint, logger log.Logger) Service {
	return NewWithClock(t, authenticate, logger, time.Now)
}

func NewWithClock(t tasksvc.TaskRepository, authenticate endpoint.Endpoint, logger log.Logger, now func() time.Time) Service {
	var svc Service
	{
		svc = basicService{tasks: t, now: now}
		svc = AuthMiddleware(authenticate)(svc)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	tasks tasksvc.TaskRepository
	now   func() time.Time
}

func (s basicService) AddTask(_ context.Context, c tasksvc.Credentials, f tasksvc.Fields) (tasksvc.Task, error) {
	if c.Username == "" {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}
	f, err := tasksvc.Validate(f, s.now())
	if err != nil {
		return tasksvc.Task{}, err
	}
	return s.tasks.Create(c.Username, f)
}

func (s basicService) EditTask(_ context.Context, c tasksvc.Credentials, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	if c.Username == "" || taskID == "" {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}
	now := s.now()
	return s.tasks.Update(c.Username, taskID, func(t *tasksvc.Task) error {
		if err := tasksvc.ValidatePatch(*t, p, now); err != nil {
			return err
		}
		p.Apply(t)
		return nil
	})
}

func (s basicService) RemoveTask(_ context.Context, c tasksvc.Credentials, taskID string) error {
	if c.Username == "" || taskID == "" {
		return tasksvc.ErrInvalidArgument
	}
	return s.tasks.Delete(c.Username, taskID)
}

func (s basicService) Tasks(_ context.Context, c tasksvc.Credentials) ([]tasksvc.Task, error) {
	if c.Username == "" {
		return nil, tasksvc.ErrInvalidArgument
	}
	return s.tasks.FindAll(c.Username)
}

func (s basicService) Task(_ context.Context, c tasksvc.Credentials, taskID string) (tasksvc.Task, error) {
	if c.Username == "" || taskID == "" {
		return tasksvc.Task{}, tasksvc.ErrInvalidArgument
	}
	return s.tasks.Find(c.Username, taskID)
}

func (s basicService) FilterTasks(_ context.Context, c tasksvc.Credentials, priority, completed string) ([]tasksvc.Task, error) {
	if c.Username == "" {
		return nil, tasksvc.ErrInvalidArgument
	}
	tasks, err := s.tasks.FindAll(c.Username)
	if err != nil {
		return nil, err
	}
	return tasksvc.Filter(tasks, priority, completed), nil
}
