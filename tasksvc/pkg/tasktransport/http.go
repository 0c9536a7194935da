package tasktransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/gtdkit/tasker/storage"
	"github.com/ichigozero/gtdkit/tasker/tasksvc"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/taskservice"
	"github.com/ichigozero/gtdkit/tasker/usersvc"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// NewHTTPHandler serves the task endpoints. REST routes take credentials as
// HTTP Basic auth; POST /task speaks the action-keyed protocol.
func NewHTTPHandler(endpoints taskendpoint.Set, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	}

	addTaskHandler := httptransport.NewServer(
		endpoints.AddTaskEndpoint,
		decodeHTTPAddTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)
	tasksHandler := httptransport.NewServer(
		endpoints.TasksEndpoint,
		decodeHTTPTasksRequest,
		encodeHTTPGenericResponse,
		options...,
	)
	filterTasksHandler := httptransport.NewServer(
		endpoints.FilterTasksEndpoint,
		decodeHTTPFilterTasksRequest,
		encodeHTTPGenericResponse,
		options...,
	)
	taskHandler := httptransport.NewServer(
		endpoints.TaskEndpoint,
		decodeHTTPTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)
	editTaskHandler := httptransport.NewServer(
		endpoints.EditTaskEndpoint,
		decodeHTTPEditTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)
	removeTaskHandler := httptransport.NewServer(
		endpoints.RemoveTaskEndpoint,
		decodeHTTPRemoveTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)
	actionHandler := httptransport.NewServer(
		MakeActionEndpoint(endpoints),
		decodeHTTPActionRequest,
		encodeHTTPActionResponse,
		httptransport.ServerErrorEncoder(actionErrorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	)

	r := mux.NewRouter()
	r.Methods("POST").Path("/tasks").Handler(addTaskHandler)
	r.Methods("GET").Path("/tasks").MatcherFunc(hasQuery).Handler(filterTasksHandler)
	r.Methods("GET").Path("/tasks").Handler(tasksHandler)
	r.Methods("GET").Path("/tasks/{task_id}").Handler(taskHandler)
	r.Methods("PATCH").Path("/tasks/{task_id}").Handler(editTaskHandler)
	r.Methods("DELETE").Path("/tasks/{task_id}").Handler(removeTaskHandler)
	r.Methods("POST").Path("/task").Handler(actionHandler)

	return r
}

func hasQuery(r *http.Request, _ *mux.RouteMatch) bool {
	return r.URL.RawQuery != ""
}

// NewHTTPClient returns a Service backed by a remote task HTTP handler.
// instance may carry a path prefix, e.g. "localhost:8080/task/v1".
func NewHTTPClient(instance string, logger log.Logger) (taskservice.Service, error) {
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(time.Second), 100))

	var options []httptransport.ClientOption

	wrap := func(name string, e endpoint.Endpoint) endpoint.Endpoint {
		e = limiter(e)
		e = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
		}))(e)
		return e
	}

	var addTaskEndpoint endpoint.Endpoint
	{
		addTaskEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/tasks"),
			encodeHTTPAddTaskRequest,
			decodeHTTPAddTaskResponse,
			options...,
		).Endpoint()
		addTaskEndpoint = wrap("AddTask", addTaskEndpoint)
	}
	var editTaskEndpoint endpoint.Endpoint
	{
		editTaskEndpoint = httptransport.NewClient(
			"PATCH",
			copyURL(u, "/tasks"),
			encodeHTTPEditTaskRequest,
			decodeHTTPEditTaskResponse,
			options...,
		).Endpoint()
		editTaskEndpoint = wrap("EditTask", editTaskEndpoint)
	}
	var removeTaskEndpoint endpoint.Endpoint
	{
		removeTaskEndpoint = httptransport.NewClient(
			"DELETE",
			copyURL(u, "/tasks"),
			encodeHTTPRemoveTaskRequest,
			decodeHTTPRemoveTaskResponse,
			options...,
		).Endpoint()
		removeTaskEndpoint = wrap("RemoveTask", removeTaskEndpoint)
	}
	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/tasks"),
			encodeHTTPTasksRequest,
			decodeHTTPTasksResponse,
			options...,
		).Endpoint()
		tasksEndpoint = wrap("Tasks", tasksEndpoint)
	}
	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/tasks"),
			encodeHTTPTaskRequest,
			decodeHTTPTaskResponse,
			options...,
		).Endpoint()
		taskEndpoint = wrap("Task", taskEndpoint)
	}
	var filterTasksEndpoint endpoint.Endpoint
	{
		filterTasksEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/tasks"),
			encodeHTTPFilterTasksRequest,
			decodeHTTPTasksResponse,
			options...,
		).Endpoint()
		filterTasksEndpoint = wrap("FilterTasks", filterTasksEndpoint)
	}

	return taskendpoint.Set{
		AddTaskEndpoint:     addTaskEndpoint,
		EditTaskEndpoint:    editTaskEndpoint,
		RemoveTaskEndpoint:  removeTaskEndpoint,
		TasksEndpoint:       tasksEndpoint,
		TaskEndpoint:        taskEndpoint,
		FilterTasksEndpoint: filterTasksEndpoint,
	}, nil
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = strings.TrimRight(base.Path, "/") + path
	return &next
}

const (
	kindValidation     = "validation"
	kindInvalidInput   = "invalid_input"
	kindAuthFailure    = "auth_failure"
	kindNotFound       = "not_found"
	kindAlreadyExists  = "already_exists"
	kindStorageFailure = "storage_failure"
)

func errorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	e := errorWrapper{Error: err.Error(), Kind: err2kind(err)}
	var verr *tasksvc.ValidationError
	if errors.As(err, &verr) {
		e.Check = string(verr.Check)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err2code(err))
	json.NewEncoder(w).Encode(e)
}

type errorWrapper struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Check string `json:"check,omitempty"`
}

func err2kind(err error) string {
	switch {
	case errors.Is(err, tasksvc.ErrValidation):
		return kindValidation
	case errors.Is(err, tasksvc.ErrInvalidArgument), errors.Is(err, usersvc.ErrInvalidArgument):
		return kindInvalidInput
	case errors.Is(err, tasksvc.ErrAuthFailure):
		return kindAuthFailure
	case errors.Is(err, tasksvc.ErrTaskNotFound):
		return kindNotFound
	case errors.Is(err, usersvc.ErrAlreadyExists):
		return kindAlreadyExists
	case errors.Is(err, storage.ErrStorageFailure):
		return kindStorageFailure
	}
	return ""
}

func err2code(err error) int {
	switch err2kind(err) {
	case kindValidation, kindInvalidInput:
		return http.StatusBadRequest
	case kindAuthFailure:
		return http.StatusUnauthorized
	case kindNotFound:
		return http.StatusNotFound
	case kindAlreadyExists:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// kind2err turns a decoded error body back into the error the server saw,
// so callers can keep using errors.Is and errors.As.
func kind2err(e errorWrapper) error {
	switch e.Kind {
	case kindValidation:
		return &tasksvc.ValidationError{Check: tasksvc.Check(e.Check)}
	case kindInvalidInput:
		return tasksvc.ErrInvalidArgument
	case kindAuthFailure:
		return tasksvc.ErrAuthFailure
	case kindNotFound:
		return tasksvc.ErrTaskNotFound
	case kindAlreadyExists:
		return usersvc.ErrAlreadyExists
	case kindStorageFailure:
		return storage.ErrStorageFailure
	}
	return errors.New(e.Error)
}

func decodeHTTPError(r *http.Response) error {
	var w errorWrapper
	if err := json.NewDecoder(r.Body).Decode(&w); err != nil || w.Error == "" {
		return errors.New(r.Status)
	}
	return kind2err(w)
}

func credentials(r *http.Request) (tasksvc.Credentials, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return tasksvc.Credentials{}, tasksvc.ErrAuthFailure
	}
	return tasksvc.Credentials{Username: username, Password: password}, nil
}

func taskID(r *http.Request) (string, error) {
	id, ok := mux.Vars(r)["task_id"]
	if !ok {
		return "", ErrBadRouting
	}
	return id, nil
}

// ErrBadRouting is returned when an expected path variable is missing.
// It always indicates programmer error.
var ErrBadRouting = errors.New("inconsistent mapping between route and handler (programmer error)")

func decodeHTTPAddTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	c, err := credentials(r)
	if err != nil {
		return nil, err
	}

	var req taskendpoint.AddTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, tasksvc.ErrInvalidArgument
	}
	req.Credentials = c

	return req, nil
}

func decodeHTTPTasksRequest(_ context.Context, r *http.Request) (interface{}, error) {
	c, err := credentials(r)
	if err != nil {
		return nil, err
	}
	return taskendpoint.TasksRequest{Credentials: c}, nil
}

func decodeHTTPFilterTasksRequest(_ context.Context, r *http.Request) (interface{}, error) {
	c, err := credentials(r)
	if err != nil {
		return nil, err
	}

	q := r.URL.Query()
	return taskendpoint.FilterTasksRequest{
		Credentials: c,
		Priority:    q.Get("priority"),
		Completed:   q.Get("completed"),
	}, nil
}

func decodeHTTPTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	c, err := credentials(r)
	if err != nil {
		return nil, err
	}
	id, err := taskID(r)
	if err != nil {
		return nil, err
	}
	return taskendpoint.TaskRequest{Credentials: c, TaskID: id}, nil
}

func decodeHTTPEditTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	c, err := credentials(r)
	if err != nil {
		return nil, err
	}
	id, err := taskID(r)
	if err != nil {
		return nil, err
	}

	var req taskendpoint.EditTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, tasksvc.ErrInvalidArgument
	}
	req.Credentials = c
	req.TaskID = id

	return req, nil
}

func decodeHTTPRemoveTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	c, err := credentials(r)
	if err != nil {
		return nil, err
	}
	id, err := taskID(r)
	if err != nil {
		return nil, err
	}
	return taskendpoint.RemoveTaskRequest{Credentials: c, TaskID: id}, nil
}

func encodeHTTPAddTaskRequest(ctx context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.AddTaskRequest)
	r.SetBasicAuth(req.Credentials.Username, req.Credentials.Password)
	return encodeHTTPGenericRequest(ctx, r, req)
}

func encodeHTTPEditTaskRequest(ctx context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.EditTaskRequest)
	r.SetBasicAuth(req.Credentials.Username, req.Credentials.Password)
	setTaskPath(r, req.TaskID)
	return encodeHTTPGenericRequest(ctx, r, req)
}

func encodeHTTPRemoveTaskRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.RemoveTaskRequest)
	r.SetBasicAuth(req.Credentials.Username, req.Credentials.Password)
	setTaskPath(r, req.TaskID)
	return nil
}

func encodeHTTPTasksRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.TasksRequest)
	r.SetBasicAuth(req.Credentials.Username, req.Credentials.Password)
	return nil
}

func encodeHTTPTaskRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.TaskRequest)
	r.SetBasicAuth(req.Credentials.Username, req.Credentials.Password)
	setTaskPath(r, req.TaskID)
	return nil
}

func encodeHTTPFilterTasksRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.FilterTasksRequest)
	r.SetBasicAuth(req.Credentials.Username, req.Credentials.Password)
	r.URL.RawQuery = url.Values{
		"priority":  {req.Priority},
		"completed": {req.Completed},
	}.Encode()
	return nil
}

func setTaskPath(r *http.Request, id string) {
	r.URL.Path = r.URL.Path + "/" + id
}

func decodeHTTPAddTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		return taskendpoint.AddTaskResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp taskendpoint.AddTaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPEditTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		return taskendpoint.EditTaskResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp taskendpoint.EditTaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPRemoveTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		return taskendpoint.RemoveTaskResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp taskendpoint.RemoveTaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPTasksResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		return taskendpoint.TasksResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp taskendpoint.TasksResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		return taskendpoint.TaskResponse{Err: decodeHTTPError(r)}, nil
	}
	var resp taskendpoint.TaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

// encodeHTTPGenericRequest is a transport/http.EncodeRequestFunc that
// JSON-encodes any request to the request body. Primarily useful in a client.
func encodeHTTPGenericRequest(_ context.Context, r *http.Request, request interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Body = ioutil.NopCloser(&buf)
	return nil
}

// encodeHTTPGenericResponse is a transport/http.EncodeResponseFunc that encodes
// the response as JSON to the response writer. Primarily useful in a server.
func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}
