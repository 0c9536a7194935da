package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/gtdkit/tasker/tasksvc"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/taskservice"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/tasktransport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	taskservice.Service
	tasks []tasksvc.Task
}

func (s stubService) Tasks(_ context.Context, c tasksvc.Credentials) ([]tasksvc.Task, error) {
	if c.Password != "pw1" {
		return nil, tasksvc.ErrAuthFailure
	}
	return s.tasks, nil
}

func TestFactoryFor_MountsPathPrefix(t *testing.T) {
	logger := log.NewNopLogger()
	svc := stubService{tasks: []tasksvc.Task{{ID: "t1", Owner: "alice", Name: "Buy milk"}}}

	mux := http.NewServeMux()
	mux.Handle(PathPrefix+"/", http.StripPrefix(PathPrefix, tasktransport.NewHTTPHandler(taskendpoint.New(svc, logger), logger)))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e, closer, err := factoryFor(taskendpoint.MakeTasksEndpoint, logger)(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	assert.Nil(t, closer)

	resp, err := e(context.Background(), taskendpoint.TasksRequest{Credentials: tasksvc.Credentials{Username: "alice", Password: "pw1"}})
	require.NoError(t, err)
	r := resp.(taskendpoint.TasksResponse)
	require.NoError(t, r.Err)
	require.Len(t, r.Tasks, 1)
	assert.Equal(t, "t1", r.Tasks[0].ID)

	resp, err = e(context.Background(), taskendpoint.TasksRequest{Credentials: tasksvc.Credentials{Username: "alice", Password: "bad"}})
	require.NoError(t, err)
	assert.ErrorIs(t, resp.(taskendpoint.TasksResponse).Err, tasksvc.ErrAuthFailure)
}
