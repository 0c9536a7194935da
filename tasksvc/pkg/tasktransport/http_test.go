package tasktransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/gtdkit/tasker/storage"
	"github.com/ichigozero/gtdkit/tasker/storage/storagetest"
	"github.com/ichigozero/gtdkit/tasker/tasksvc"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/inmem"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/taskservice"
	usersinmem "github.com/ichigozero/gtdkit/tasker/usersvc/inmem"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/userendpoint"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/userservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = tasksvc.Credentials{Username: "alice", Password: "pw1"}

func tomorrow() string {
	return time.Now().AddDate(0, 0, 1).Format(tasksvc.DateLayout)
}

func newTestServer(t *testing.T) (*httptest.Server, *storagetest.Store) {
	t.Helper()
	logger := log.NewNopLogger()
	store := storagetest.NewStore()

	users, err := usersinmem.NewUserRepository(store)
	require.NoError(t, err)
	userSvc := userservice.New(users, logger)
	require.NoError(t, userSvc.Register(context.Background(), alice.Username, alice.Password))

	tasks, err := inmem.NewTaskRepository(store)
	require.NoError(t, err)

	svc := taskservice.New(tasks, userendpoint.New(userSvc, logger).AuthenticateEndpoint, logger)
	srv := httptest.NewServer(NewHTTPHandler(taskendpoint.New(svc, logger), logger))
	t.Cleanup(srv.Close)

	return srv, store
}

func TestHTTPClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)

	client, err := NewHTTPClient(srv.URL, log.NewNopLogger())
	require.NoError(t, err)

	task, err := client.AddTask(ctx, alice, tasksvc.Fields{
		Name:        "Buy milk",
		Priority:    "Low",
		DueDate:     tomorrow(),
		Description: "2%",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "alice", task.Owner)
	assert.False(t, task.Completed)

	got, err := client.Task(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.True(t, task.CreatedAt.Equal(got.CreatedAt))

	done := true
	edited, err := client.EditTask(ctx, alice, task.ID, tasksvc.Patch{Completed: &done})
	require.NoError(t, err)
	assert.Equal(t, task.ID, edited.ID)
	assert.True(t, edited.Completed)
	assert.Equal(t, task.DueDate, edited.DueDate)

	pending, err := client.FilterTasks(ctx, alice, tasksvc.FilterAll, tasksvc.FilterPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	completed, err := client.FilterTasks(ctx, alice, "Low", tasksvc.FilterCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, task.ID, completed[0].ID)

	require.NoError(t, client.RemoveTask(ctx, alice, task.ID))

	tasks, err := client.Tasks(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestHTTPClient_Errors(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)

	client, err := NewHTTPClient(srv.URL, log.NewNopLogger())
	require.NoError(t, err)

	_, err = client.Tasks(ctx, tasksvc.Credentials{Username: "alice", Password: "nope"})
	assert.ErrorIs(t, err, tasksvc.ErrAuthFailure)

	_, err = client.Task(ctx, alice, "missing")
	assert.ErrorIs(t, err, tasksvc.ErrTaskNotFound)

	_, err = client.AddTask(ctx, alice, tasksvc.Fields{Name: "x", Priority: "Urgent", DueDate: tomorrow(), Description: "y"})
	var verr *tasksvc.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, tasksvc.CheckPriority, verr.Check)

	assert.ErrorIs(t, client.RemoveTask(ctx, alice, "missing"), tasksvc.ErrTaskNotFound)
}

func TestHTTPHandler_StatusCodes(t *testing.T) {
	srv, _ := newTestServer(t)

	do := func(method, path, body string, c *tasksvc.Credentials) (*http.Response, errorWrapper) {
		req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		if c != nil {
			req.SetBasicAuth(c.Username, c.Password)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		var w errorWrapper
		if resp.StatusCode != http.StatusOK {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&w))
		}
		return resp, w
	}

	resp, w := do("GET", "/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, kindAuthFailure, w.Kind)

	resp, w = do("POST", "/tasks", `{"name":"a","priority":"Low","due_date":"2000-01-01","description":"b"}`, &alice)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, kindValidation, w.Kind)
	assert.Equal(t, string(tasksvc.CheckDatePast), w.Check)

	resp, w = do("POST", "/tasks", `not json`, &alice)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, kindInvalidInput, w.Kind)

	resp, w = do("PATCH", "/tasks/missing", `{"completed":true}`, &alice)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, kindNotFound, w.Kind)

	resp, _ = do("GET", "/tasks", "", &alice)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPHandler_StorageFailure(t *testing.T) {
	srv, store := newTestServer(t)
	store.FailSave = true

	client, err := NewHTTPClient(srv.URL, log.NewNopLogger())
	require.NoError(t, err)

	_, err = client.AddTask(context.Background(), alice, tasksvc.Fields{Name: "a", Priority: "High", DueDate: tomorrow(), Description: "b"})
	assert.ErrorIs(t, err, storage.ErrStorageFailure)
}

func postAction(t *testing.T, srv *httptest.Server, body string) ActionResponse {
	t.Helper()
	resp, err := http.Post(srv.URL+"/task", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ActionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestActionProtocol(t *testing.T) {
	srv, _ := newTestServer(t)
	user := `"user_details":{"username":"alice","password":"pw1"}`

	added := postAction(t, srv, `{"add_task":true,`+user+`,"task_details":{"name":"Buy milk","priority":"Low","due_date":"`+tomorrow()+`","description":"2%"}}`)
	require.Equal(t, statusSuccess, added.Status)
	assert.Equal(t, "Task added successfully.", added.Notification)
	require.NotNil(t, added.Task)
	id := added.Task.ID

	edited := postAction(t, srv, `{"edit_task":true,`+user+`,"task_id":"`+id+`","updated_task_details":{"completed":true}}`)
	require.Equal(t, statusSuccess, edited.Status)
	assert.True(t, edited.Task.Completed)

	filtered := postAction(t, srv, `{"filter_tasks":true,`+user+`,"priority":"All","completed":"Completed"}`)
	require.Equal(t, statusSuccess, filtered.Status)
	require.Len(t, filtered.Tasks, 1)
	assert.Equal(t, id, filtered.Tasks[0].ID)

	removed := postAction(t, srv, `{"remove_task":true,`+user+`,"task_id":"`+id+`"}`)
	assert.Equal(t, statusSuccess, removed.Status)
	assert.Equal(t, "Task removed successfully.", removed.Notification)

	missing := postAction(t, srv, `{"remove_task":true,`+user+`,"task_id":"`+id+`"}`)
	assert.Equal(t, statusFailure, missing.Status)
	assert.Equal(t, "Task not found.", missing.Notification)

	listed := postAction(t, srv, `{"get_tasks":true,`+user+`}`)
	assert.Equal(t, statusSuccess, listed.Status)
	assert.Empty(t, listed.Tasks)
}

func TestActionProtocol_Failures(t *testing.T) {
	srv, store := newTestServer(t)
	before := store.Raw(storage.KindTasks)

	bad := postAction(t, srv, `{"add_task":true,"user_details":{"username":"alice","password":"x"},"task_details":{"name":"a","priority":"Low","due_date":"`+tomorrow()+`","description":"b"}}`)
	assert.Equal(t, ActionResponse{Status: statusFailure, Notification: "Invalid credentials."}, bad)
	assert.Equal(t, before, store.Raw(storage.KindTasks))

	unknown := postAction(t, srv, `{"user_details":{"username":"alice","password":"pw1"}}`)
	assert.Equal(t, ActionResponse{Status: statusFailure, Notification: "Invalid request."}, unknown)

	garbage := postAction(t, srv, `{`)
	assert.Equal(t, ActionResponse{Status: statusFailure, Notification: "Invalid request."}, garbage)

	past := postAction(t, srv, `{"add_task":true,"user_details":{"username":"alice","password":"pw1"},"task_details":{"name":"a","priority":"Low","due_date":"2000-01-01","description":"b"}}`)
	assert.Equal(t, ActionResponse{Status: statusFailure, Notification: "Due date cannot be in the past."}, past)
}

func TestActionProtocol_TruthyActionFlags(t *testing.T) {
	srv, _ := newTestServer(t)
	user := `"user_details":{"username":"alice","password":"pw1"}`

	added := postAction(t, srv, `{"add_task":1,`+user+`,"task_details":{"name":"a","priority":"High","due_date":"`+tomorrow()+`","description":"b"}}`)
	require.Equal(t, statusSuccess, added.Status)

	listed := postAction(t, srv, `{"add_task":0,"get_tasks":"yes",`+user+`}`)
	require.Equal(t, statusSuccess, listed.Status)
	assert.Len(t, listed.Tasks, 1)

	none := postAction(t, srv, `{"add_task":"","get_tasks":null,`+user+`}`)
	assert.Equal(t, ActionResponse{Status: statusFailure, Notification: "Invalid request."}, none)
}

func TestTruthy_UnmarshalJSON(t *testing.T) {
	tests := map[string]bool{
		`true`: true, `false`: false, `null`: false,
		`1`: true, `0`: false, `"x"`: true, `""`: false,
		`[1]`: true, `[]`: false, `{"a":1}`: true, `{}`: false,
	}
	for in, want := range tests {
		var v Truthy
		require.NoError(t, json.Unmarshal([]byte(in), &v), in)
		assert.Equal(t, want, bool(v), in)
	}
}
