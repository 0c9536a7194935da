package tasktransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	"github.com/ichigozero/gtdkit/tasker/storage"
	"github.com/ichigozero/gtdkit/tasker/tasksvc"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/taskendpoint"
)

// ActionRequest is the body of POST /task. Exactly one action flag is
// expected; the first set flag in declaration order wins.
type ActionRequest struct {
	UserDetails tasksvc.Credentials `json:"user_details"`

	AddTask     Truthy `json:"add_task,omitempty"`
	EditTask    Truthy `json:"edit_task,omitempty"`
	RemoveTask  Truthy `json:"remove_task,omitempty"`
	GetTasks    Truthy `json:"get_tasks,omitempty"`
	FilterTasks Truthy `json:"filter_tasks,omitempty"`

	TaskID             string         `json:"task_id,omitempty"`
	TaskDetails        tasksvc.Fields `json:"task_details"`
	UpdatedTaskDetails tasksvc.Patch  `json:"updated_task_details"`
	Priority           string         `json:"priority,omitempty"`
	Completed          string         `json:"completed,omitempty"`
}

// Truthy decodes any JSON value by its truthiness: false, null, 0, "",
// [] and {} are false, everything else is true.
type Truthy bool

func (t *Truthy) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case nil:
		*t = false
	case bool:
		*t = Truthy(v)
	case float64:
		*t = v != 0
	case string:
		*t = v != ""
	case []interface{}:
		*t = len(v) > 0
	case map[string]interface{}:
		*t = len(v) > 0
	}
	return nil
}

// ActionResponse is always sent with status 200; Status tells success from
// failure.
type ActionResponse struct {
	Status       string         `json:"status"`
	Notification string         `json:"notification,omitempty"`
	Task         *tasksvc.Task  `json:"task,omitempty"`
	Tasks        []tasksvc.Task `json:"tasks,omitempty"`
}

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

var errInvalidRequest = errors.New("invalid request")

// MakeActionEndpoint dispatches an ActionRequest to the matching endpoint of
// the set and folds its outcome into an ActionResponse.
func MakeActionEndpoint(endpoints taskendpoint.Set) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(ActionRequest)
		c := req.UserDetails

		switch {
		case bool(req.AddTask):
			resp, err := endpoints.AddTaskEndpoint(ctx, taskendpoint.AddTaskRequest{Credentials: c, Fields: req.TaskDetails})
			if err != nil {
				return nil, err
			}
			r := resp.(taskendpoint.AddTaskResponse)
			if r.Err != nil {
				return failure(r.Err), nil
			}
			return ActionResponse{Status: statusSuccess, Notification: "Task added successfully.", Task: &r.Task}, nil

		case bool(req.EditTask):
			resp, err := endpoints.EditTaskEndpoint(ctx, taskendpoint.EditTaskRequest{Credentials: c, TaskID: req.TaskID, Patch: req.UpdatedTaskDetails})
			if err != nil {
				return nil, err
			}
			r := resp.(taskendpoint.EditTaskResponse)
			if r.Err != nil {
				return failure(r.Err), nil
			}
			return ActionResponse{Status: statusSuccess, Notification: "Task updated successfully.", Task: &r.Task}, nil

		case bool(req.RemoveTask):
			resp, err := endpoints.RemoveTaskEndpoint(ctx, taskendpoint.RemoveTaskRequest{Credentials: c, TaskID: req.TaskID})
			if err != nil {
				return nil, err
			}
			r := resp.(taskendpoint.RemoveTaskResponse)
			if r.Err != nil {
				return failure(r.Err), nil
			}
			return ActionResponse{Status: statusSuccess, Notification: "Task removed successfully."}, nil

		case bool(req.GetTasks):
			resp, err := endpoints.TasksEndpoint(ctx, taskendpoint.TasksRequest{Credentials: c})
			if err != nil {
				return nil, err
			}
			return tasksResult(resp.(taskendpoint.TasksResponse)), nil

		case bool(req.FilterTasks):
			resp, err := endpoints.FilterTasksEndpoint(ctx, taskendpoint.FilterTasksRequest{Credentials: c, Priority: req.Priority, Completed: req.Completed})
			if err != nil {
				return nil, err
			}
			return tasksResult(resp.(taskendpoint.TasksResponse)), nil
		}

		return failure(errInvalidRequest), nil
	}
}

func tasksResult(r taskendpoint.TasksResponse) ActionResponse {
	if r.Err != nil {
		return failure(r.Err)
	}
	tasks := r.Tasks
	if tasks == nil {
		tasks = []tasksvc.Task{}
	}
	return ActionResponse{Status: statusSuccess, Tasks: tasks}
}

func failure(err error) ActionResponse {
	return ActionResponse{Status: statusFailure, Notification: notification(err)}
}

func notification(err error) string {
	var verr *tasksvc.ValidationError
	switch {
	case errors.As(err, &verr):
		switch verr.Check {
		case tasksvc.CheckRequired:
			return "All fields are required."
		case tasksvc.CheckPriority:
			return "Invalid priority."
		case tasksvc.CheckDateFormat:
			return "Invalid date format."
		case tasksvc.CheckDatePast:
			return "Due date cannot be in the past."
		}
	case errors.Is(err, tasksvc.ErrAuthFailure):
		return "Invalid credentials."
	case errors.Is(err, tasksvc.ErrTaskNotFound):
		return "Task not found."
	case errors.Is(err, storage.ErrStorageFailure):
		return "An error occurred while saving changes."
	}
	return "Invalid request."
}

func decodeHTTPActionRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidRequest
	}
	return req, nil
}

func encodeHTTPActionResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}

// actionErrorEncoder keeps the protocol's always-200 contract for requests
// that never reached an endpoint.
func actionErrorEncoder(ctx context.Context, err error, w http.ResponseWriter) {
	encodeHTTPActionResponse(ctx, w, failure(err))
}
