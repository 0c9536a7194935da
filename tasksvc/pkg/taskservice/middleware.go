package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/gtdkit/tasker/tasksvc"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/userendpoint"
)

type Middleware func(Service) Service

func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) AddTask(ctx context.Context, c tasksvc.Credentials, f tasksvc.Fields) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "AddTask",
			"username", c.Username,
			"task_id", t.ID,
			"name", f.Name,
			"priority", f.Priority,
			"due_date", f.DueDate,
			"err", err,
		)
	}()
	return mw.next.AddTask(ctx, c, f)
}

func (mw loggingMiddleware) EditTask(ctx context.Context, c tasksvc.Credentials, taskID string, p tasksvc.Patch) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "EditTask",
			"username", c.Username,
			"task_id", taskID,
			"completed", t.Completed,
			"err", err,
		)
	}()
	return mw.next.EditTask(ctx, c, taskID, p)
}

func (mw loggingMiddleware) RemoveTask(ctx context.Context, c tasksvc.Credentials, taskID string) (err error) {
	defer func() {
		mw.logger.Log(
			"method", "RemoveTask",
			"username", c.Username,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.RemoveTask(ctx, c, taskID)
}

func (mw loggingMiddleware) Tasks(ctx context.Context, c tasksvc.Credentials) (t []tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Tasks",
			"username", c.Username,
			"count", len(t),
			"err", err,
		)
	}()
	return mw.next.Tasks(ctx, c)
}

func (mw loggingMiddleware) Task(ctx context.Context, c tasksvc.Credentials, taskID string) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Task",
			"username", c.Username,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.Task(ctx, c, taskID)
}

func (mw loggingMiddleware) FilterTasks(ctx context.Context, c tasksvc.Credentials, priority, completed string) (t []tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "FilterTasks",
			"username", c.Username,
			"priority", priority,
			"completed", completed,
			"count", len(t),
			"err", err,
		)
	}()
	return mw.next.FilterTasks(ctx, c, priority, completed)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{counter, latency, next}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) observe(method string, begin time.Time) {
	mw.requestCount.With("method", method).Add(1)
	mw.requestLatency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (mw instrumentingMiddleware) AddTask(ctx context.Context, c tasksvc.Credentials, f tasksvc.Fields) (tasksvc.Task, error) {
	defer mw.observe("add_task", time.Now())
	return mw.next.AddTask(ctx, c, f)
}

func (mw instrumentingMiddleware) EditTask(ctx context.Context, c tasksvc.Credentials, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	defer mw.observe("edit_task", time.Now())
	return mw.next.EditTask(ctx, c, taskID, p)
}

func (mw instrumentingMiddleware) RemoveTask(ctx context.Context, c tasksvc.Credentials, taskID string) error {
	defer mw.observe("remove_task", time.Now())
	return mw.next.RemoveTask(ctx, c, taskID)
}

func (mw instrumentingMiddleware) Tasks(ctx context.Context, c tasksvc.Credentials) ([]tasksvc.Task, error) {
	defer mw.observe("tasks", time.Now())
	return mw.next.Tasks(ctx, c)
}

func (mw instrumentingMiddleware) Task(ctx context.Context, c tasksvc.Credentials, taskID string) (tasksvc.Task, error) {
	defer mw.observe("task", time.Now())
	return mw.next.Task(ctx, c, taskID)
}

func (mw instrumentingMiddleware) FilterTasks(ctx context.Context, c tasksvc.Credentials, priority, completed string) ([]tasksvc.Task, error) {
	defer mw.observe("filter_tasks", time.Now())
	return mw.next.FilterTasks(ctx, c, priority, completed)
}

// AuthMiddleware rejects every call whose credentials the authenticate
// endpoint does not accept. The wrapped service is not called on failure.
func AuthMiddleware(authenticate endpoint.Endpoint) Middleware {
	return func(next Service) Service {
		return authMiddleware{next, authenticate}
	}
}

type authMiddleware struct {
	next         Service
	authenticate endpoint.Endpoint
}

func (mw authMiddleware) AddTask(ctx context.Context, c tasksvc.Credentials, f tasksvc.Fields) (tasksvc.Task, error) {
	if err := mw.validate(ctx, c); err != nil {
		return tasksvc.Task{}, err
	}
	return mw.next.AddTask(ctx, c, f)
}

func (mw authMiddleware) EditTask(ctx context.Context, c tasksvc.Credentials, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	if err := mw.validate(ctx, c); err != nil {
		return tasksvc.Task{}, err
	}
	return mw.next.EditTask(ctx, c, taskID, p)
}

func (mw authMiddleware) RemoveTask(ctx context.Context, c tasksvc.Credentials, taskID string) error {
	if err := mw.validate(ctx, c); err != nil {
		return err
	}
	return mw.next.RemoveTask(ctx, c, taskID)
}

func (mw authMiddleware) Tasks(ctx context.Context, c tasksvc.Credentials) ([]tasksvc.Task, error) {
	if err := mw.validate(ctx, c); err != nil {
		return nil, err
	}
	return mw.next.Tasks(ctx, c)
}

func (mw authMiddleware) Task(ctx context.Context, c tasksvc.Credentials, taskID string) (tasksvc.Task, error) {
	if err := mw.validate(ctx, c); err != nil {
		return tasksvc.Task{}, err
	}
	return mw.next.Task(ctx, c, taskID)
}

func (mw authMiddleware) FilterTasks(ctx context.Context, c tasksvc.Credentials, priority, completed string) ([]tasksvc.Task, error) {
	if err := mw.validate(ctx, c); err != nil {
		return nil, err
	}
	return mw.next.FilterTasks(ctx, c, priority, completed)
}

func (mw authMiddleware) validate(ctx context.Context, c tasksvc.Credentials) error {
	response, err := mw.authenticate(ctx, userendpoint.AuthenticateRequest{Username: c.Username, Password: c.Password})
	if err != nil {
		return err
	}

	resp := response.(userendpoint.AuthenticateResponse)
	if resp.Err != nil {
		return resp.Err
	}
	if !resp.V {
		return tasksvc.ErrAuthFailure
	}
	return nil
}
