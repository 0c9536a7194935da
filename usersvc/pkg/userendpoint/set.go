package userendpoint

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/userservice"
)

type Set struct {
	RegisterEndpoint     endpoint.Endpoint
	AuthenticateEndpoint endpoint.Endpoint
}

func New(svc userservice.Service, logger log.Logger) Set {
	var registerEndpoint endpoint.Endpoint
	{
		registerEndpoint = MakeRegisterEndpoint(svc)
		registerEndpoint = LoggingMiddleware(log.With(logger, "method", "Register"))(registerEndpoint)
	}
	var authenticateEndpoint endpoint.Endpoint
	{
		authenticateEndpoint = MakeAuthenticateEndpoint(svc)
		authenticateEndpoint = LoggingMiddleware(log.With(logger, "method", "Authenticate"))(authenticateEndpoint)
	}
	return Set{
		RegisterEndpoint:     registerEndpoint,
		AuthenticateEndpoint: authenticateEndpoint,
	}
}

func (s Set) Register(ctx context.Context, username, password string) error {
	resp, err := s.RegisterEndpoint(ctx, RegisterRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	response := resp.(RegisterResponse)
	return response.Err
}

func (s Set) Authenticate(ctx context.Context, username, password string) (bool, error) {
	resp, err := s.AuthenticateEndpoint(ctx, AuthenticateRequest{Username: username, Password: password})
	if err != nil {
		return false, err
	}
	response := resp.(AuthenticateResponse)
	return response.V, response.Err
}

func MakeRegisterEndpoint(s userservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(RegisterRequest)
		err = s.Register(ctx, req.Username, req.Password)
		return RegisterResponse{Err: err}, nil
	}
}

func MakeAuthenticateEndpoint(s userservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(AuthenticateRequest)
		v, err := s.Authenticate(ctx, req.Username, req.Password)
		return AuthenticateResponse{V: v, Err: err}, nil
	}
}

var (
	_ endpoint.Failer = RegisterResponse{}
	_ endpoint.Failer = AuthenticateResponse{}
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Err error `json:"-"`
}

func (r RegisterResponse) Failed() error { return r.Err }

type AuthenticateRequest struct {
	Username string
	Password string
}

type AuthenticateResponse struct {
	V   bool  `json:"v"`
	Err error `json:"-"`
}

func (r AuthenticateResponse) Failed() error { return r.Err }
