package userservice

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/gtdkit/tasker/usersvc"
)

type Service interface {
	Register(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) (bool, error)
}

func New(u usersvc.UserRepository, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(u)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	users usersvc.UserRepository
}

func NewBasicService(u usersvc.UserRepository) Service {
	return basicService{users: u}
}

func (s basicService) Register(_ context.Context, username, password string) error {
	if username == "" || password == "" {
		return usersvc.ErrInvalidArgument
	}
	return s.users.Create(usersvc.User{Name: username, Password: password})
}

// Authenticate compares the stored password verbatim. An unknown user is not
// an error, just a failed check.
func (s basicService) Authenticate(_ context.Context, username, password string) (bool, error) {
	u, err := s.users.Find(username)
	if err == usersvc.ErrUserNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Password == password, nil
}
