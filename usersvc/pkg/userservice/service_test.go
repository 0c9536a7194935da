package userservice

import (
	"context"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/generic"
	"github.com/ichigozero/gtdkit/tasker/storage/storagetest"
	"github.com/ichigozero/gtdkit/tasker/usersvc"
	"github.com/ichigozero/gtdkit/tasker/usersvc/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) Service {
	t.Helper()

	repo, err := inmem.NewUserRepository(storagetest.NewStore())
	require.NoError(t, err)

	return New(repo, log.NewNopLogger())
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "valid", username: "alice", password: "pw1"},
		{name: "duplicate", username: "alice", password: "pw2", wantErr: usersvc.ErrAlreadyExists},
		{name: "empty username", username: "", password: "pw", wantErr: usersvc.ErrInvalidArgument},
		{name: "empty password", username: "carol", password: "", wantErr: usersvc.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Register(ctx, tt.username, tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_AuthenticateIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	require.NoError(t, svc.Register(ctx, "alice", "pw1"))
	require.NoError(t, svc.Register(ctx, "bob", "pw2"))

	tests := []struct {
		username, password string
		want               bool
	}{
		{"alice", "pw1", true},
		{"bob", "pw2", true},
		{"alice", "pw2", false},
		{"bob", "pw1", false},
		{"ALICE", "pw1", false},
		{"nobody", "pw1", false},
		{"alice", "", false},
	}

	for _, tt := range tests {
		ok, err := svc.Authenticate(ctx, tt.username, tt.password)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "%s/%s", tt.username, tt.password)
	}
}

func TestInstrumentingMiddleware_CountsCalls(t *testing.T) {
	ctx := context.Background()
	counter := &countingCounter{}
	latency := generic.NewHistogram("request_latency", 10)

	svc := InstrumentingMiddleware(counter, latency)(newTestService(t))
	require.NoError(t, svc.Register(ctx, "alice", "pw1"))
	_, err := svc.Authenticate(ctx, "alice", "pw1")
	require.NoError(t, err)

	assert.Equal(t, 2.0, counter.total)
	assert.Equal(t, []string{"method", "register", "method", "authenticate"}, counter.labels)
}

type countingCounter struct {
	total  float64
	labels []string
}

func (c *countingCounter) With(labelValues ...string) metrics.Counter {
	c.labels = append(c.labels, labelValues...)
	return c
}

func (c *countingCounter) Add(delta float64) { c.total += delta }
