package taskendpoint

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/gtdkit/tasker/tasksvc"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/taskservice"
)

type Set struct {
	AddTaskEndpoint     endpoint.Endpoint
	EditTaskEndpoint    endpoint.Endpoint
	RemoveTaskEndpoint  endpoint.Endpoint
	TasksEndpoint       endpoint.Endpoint
	TaskEndpoint        endpoint.Endpoint
	FilterTasksEndpoint endpoint.Endpoint
}

func New(svc taskservice.Service, logger log.Logger) Set {
	var addTaskEndpoint endpoint.Endpoint
	{
		addTaskEndpoint = MakeAddTaskEndpoint(svc)
		addTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "AddTask"))(addTaskEndpoint)
	}
	var editTaskEndpoint endpoint.Endpoint
	{
		editTaskEndpoint = MakeEditTaskEndpoint(svc)
		editTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "EditTask"))(editTaskEndpoint)
	}
	var removeTaskEndpoint endpoint.Endpoint
	{
		removeTaskEndpoint = MakeRemoveTaskEndpoint(svc)
		removeTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "RemoveTask"))(removeTaskEndpoint)
	}
	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = MakeTasksEndpoint(svc)
		tasksEndpoint = LoggingMiddleware(log.With(logger, "method", "Tasks"))(tasksEndpoint)
	}
	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = MakeTaskEndpoint(svc)
		taskEndpoint = LoggingMiddleware(log.With(logger, "method", "Task"))(taskEndpoint)
	}
	var filterTasksEndpoint endpoint.Endpoint
	{
		filterTasksEndpoint = MakeFilterTasksEndpoint(svc)
		filterTasksEndpoint = LoggingMiddleware(log.With(logger, "method", "FilterTasks"))(filterTasksEndpoint)
	}

	return Set{
		AddTaskEndpoint:     addTaskEndpoint,
		EditTaskEndpoint:    editTaskEndpoint,
		RemoveTaskEndpoint:  removeTaskEndpoint,
		TasksEndpoint:       tasksEndpoint,
		TaskEndpoint:        taskEndpoint,
		FilterTasksEndpoint: filterTasksEndpoint,
	}
}

func (s Set) AddTask(ctx context.Context, c tasksvc.Credentials, f tasksvc.Fields) (tasksvc.Task, error) {
	resp, err := s.AddTaskEndpoint(ctx, AddTaskRequest{Credentials: c, Fields: f})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(AddTaskResponse)
	return response.Task, response.Err
}

func (s Set) EditTask(ctx context.Context, c tasksvc.Credentials, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	resp, err := s.EditTaskEndpoint(ctx, EditTaskRequest{Credentials: c, TaskID: taskID, Patch: p})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(EditTaskResponse)
	return response.Task, response.Err
}

func (s Set) RemoveTask(ctx context.Context, c tasksvc.Credentials, taskID string) error {
	resp, err := s.RemoveTaskEndpoint(ctx, RemoveTaskRequest{Credentials: c, TaskID: taskID})
	if err != nil {
		return err
	}
	response := resp.(RemoveTaskResponse)
	return response.Err
}

func (s Set) Tasks(ctx context.Context, c tasksvc.Credentials) ([]tasksvc.Task, error) {
	resp, err := s.TasksEndpoint(ctx, TasksRequest{Credentials: c})
	if err != nil {
		return nil, err
	}
	response := resp.(TasksResponse)
	return response.Tasks, response.Err
}

func (s Set) Task(ctx context.Context, c tasksvc.Credentials, taskID string) (tasksvc.Task, error) {
	resp, err := s.TaskEndpoint(ctx, TaskRequest{Credentials: c, TaskID: taskID})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(TaskResponse)
	return response.Task, response.Err
}

func (s Set) FilterTasks(ctx context.Context, c tasksvc.Credentials, priority, completed string) ([]tasksvc.Task, error) {
	resp, err := s.FilterTasksEndpoint(ctx, FilterTasksRequest{Credentials: c, Priority: priority, Completed: completed})
	if err != nil {
		return nil, err
	}
	response := resp.(TasksResponse)
	return response.Tasks, response.Err
}

func MakeAddTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(AddTaskRequest)
		t, err := s.AddTask(ctx, req.Credentials, req.Fields)
		return AddTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeEditTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(EditTaskRequest)
		t, err := s.EditTask(ctx, req.Credentials, req.TaskID, req.Patch)
		return EditTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeRemoveTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(RemoveTaskRequest)
		err = s.RemoveTask(ctx, req.Credentials, req.TaskID)
		return RemoveTaskResponse{Result: err == nil, Err: err}, nil
	}
}

func MakeTasksEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(TasksRequest)
		t, err := s.Tasks(ctx, req.Credentials)
		return TasksResponse{Tasks: t, Err: err}, nil
	}
}

func MakeTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(TaskRequest)
		t, err := s.Task(ctx, req.Credentials, req.TaskID)
		return TaskResponse{Task: t, Err: err}, nil
	}
}

func MakeFilterTasksEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(FilterTasksRequest)
		t, err := s.FilterTasks(ctx, req.Credentials, req.Priority, req.Completed)
		return TasksResponse{Tasks: t, Err: err}, nil
	}
}

var (
	_ endpoint.Failer = AddTaskResponse{}
	_ endpoint.Failer = EditTaskResponse{}
	_ endpoint.Failer = RemoveTaskResponse{}
	_ endpoint.Failer = TasksResponse{}
	_ endpoint.Failer = TaskResponse{}
)

// Credentials are carried by every request but never serialized into
// request bodies; transports move them out of band.
type AddTaskRequest struct {
	Credentials tasksvc.Credentials `json:"-"`
	tasksvc.Fields
}

type AddTaskResponse struct {
	Task tasksvc.Task `json:"task"`
	Err  error        `json:"-"`
}

func (r AddTaskResponse) Failed() error { return r.Err }

type EditTaskRequest struct {
	Credentials tasksvc.Credentials `json:"-"`
	TaskID      string              `json:"-"`
	tasksvc.Patch
}

type EditTaskResponse struct {
	Task tasksvc.Task `json:"task"`
	Err  error        `json:"-"`
}

func (r EditTaskResponse) Failed() error { return r.Err }

type RemoveTaskRequest struct {
	Credentials tasksvc.Credentials
	TaskID      string
}

type RemoveTaskResponse struct {
	Result bool  `json:"result"`
	Err    error `json:"-"`
}

func (r RemoveTaskResponse) Failed() error { return r.Err }

type TasksRequest struct {
	Credentials tasksvc.Credentials
}

type TasksResponse struct {
	Tasks []tasksvc.Task `json:"tasks"`
	Err   error          `json:"-"`
}

func (r TasksResponse) Failed() error { return r.Err }

type TaskRequest struct {
	Credentials tasksvc.Credentials
	TaskID      string
}

type TaskResponse struct {
	Task tasksvc.Task `json:"task"`
	Err  error        `json:"-"`
}

func (r TaskResponse) Failed() error { return r.Err }

type FilterTasksRequest struct {
	Credentials tasksvc.Credentials
	Priority    string
	Completed   string
}
