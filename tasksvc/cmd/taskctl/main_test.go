package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/ichigozero/gtdkit/tasker/tasksvc"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/taskservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatch(t *testing.T) {
	p, err := parsePatch([]string{"-name", "Buy oat milk", "-pending"})
	require.NoError(t, err)
	require.NotNil(t, p.Name)
	assert.Equal(t, "Buy oat milk", *p.Name)
	require.NotNil(t, p.Completed)
	assert.False(t, *p.Completed)
	assert.Nil(t, p.Priority)
	assert.Nil(t, p.DueDate)
	assert.Nil(t, p.Description)

	p, err = parsePatch([]string{"-done"})
	require.NoError(t, err)
	require.NotNil(t, p.Completed)
	assert.True(t, *p.Completed)

	_, err = parsePatch([]string{"-done", "-pending"})
	assert.ErrorIs(t, err, errUsage)
}

type recordingTasks struct {
	taskservice.Service
	patch tasksvc.Patch
	id    string
}

func (r *recordingTasks) EditTask(_ context.Context, c tasksvc.Credentials, id string, p tasksvc.Patch) (tasksvc.Task, error) {
	r.id, r.patch = id, p
	return tasksvc.Task{ID: id, Owner: c.Username, Name: "Buy milk", Completed: true}, nil
}

func TestCommand_Edit(t *testing.T) {
	var out bytes.Buffer
	tasks := &recordingTasks{}
	cmd := command{tasks: tasks, creds: tasksvc.Credentials{Username: "alice"}, out: &out}

	require.NoError(t, cmd.run(context.Background(), "edit", []string{"t1", "-done"}))
	assert.Equal(t, "t1", tasks.id)
	require.NotNil(t, tasks.patch.Completed)
	assert.True(t, *tasks.patch.Completed)
	assert.Contains(t, out.String(), "Completed")
	assert.Contains(t, out.String(), "Buy milk")
}

func TestCommand_Usage(t *testing.T) {
	cmd := command{out: &bytes.Buffer{}}
	assert.ErrorIs(t, cmd.run(context.Background(), "rm", nil), errUsage)
	assert.ErrorIs(t, cmd.run(context.Background(), "show", []string{"a", "b"}), errUsage)
	assert.ErrorIs(t, cmd.run(context.Background(), "frobnicate", nil), errUsage)
}
