package usertransport

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
	"github.com/ichigozero/gtdkit/tasker/usersvc"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/userendpoint"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/userservice"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

func NewHTTPHandler(endpoints userendpoint.Set, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	}

	registerHandler := httptransport.NewServer(
		endpoints.RegisterEndpoint,
		decodeHTTPRegisterRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	r := mux.NewRouter()
	r.Methods("POST").Path("/register").Handler(registerHandler)

	return r
}

// NewHTTPClient returns a Service backed by a remote user HTTP handler.
// Authenticate is never exposed over HTTP and always fails on the client.
func NewHTTPClient(instance string, logger log.Logger) (userservice.Service, error) {
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(time.Second), 100))

	var options []httptransport.ClientOption

	var registerEndpoint endpoint.Endpoint
	{
		registerEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/register"),
			encodeHTTPGenericRequest,
			decodeHTTPRegisterResponse,
			options...,
		).Endpoint()
		registerEndpoint = limiter(registerEndpoint)
		registerEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Register",
			Timeout: 30 * time.Second,
		}))(registerEndpoint)
	}

	return userendpoint.Set{
		RegisterEndpoint:     registerEndpoint,
		AuthenticateEndpoint: unsupportedEndpoint,
	}, nil
}

// ErrUnsupported is returned by client operations the HTTP handler does not serve.
var ErrUnsupported = errors.New("operation not available over HTTP")

func unsupportedEndpoint(context.Context, interface{}) (interface{}, error) {
	return nil, ErrUnsupported
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = strings.TrimRight(base.Path, "/") + path
	return &next
}

func errorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err2code(err))
	json.NewEncoder(w).Encode(errorWrapper{Error: err.Error()})
}

func err2code(err error) int {
	switch {
	case errors.Is(err, usersvc.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, usersvc.ErrAlreadyExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

type errorWrapper struct {
	Error string `json:"error"`
}

func str2err(s string) error {
	switch s {
	case usersvc.ErrInvalidArgument.Error():
		return usersvc.ErrInvalidArgument
	case usersvc.ErrAlreadyExists.Error():
		return usersvc.ErrAlreadyExists
	}
	if strings.HasPrefix(s, storage.ErrStorageFailure.Error()) {
		return storage.ErrStorageFailure
	}
	return errors.New(s)
}

func decodeHTTPRegisterRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req userendpoint.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, usersvc.ErrInvalidArgument
	}
	return req, nil
}

func decodeHTTPRegisterResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		var w errorWrapper
		if err := json.NewDecoder(r.Body).Decode(&w); err != nil || w.Error == "" {
			return nil, errors.New(r.Status)
		}
		return userendpoint.RegisterResponse{Err: str2err(w.Error)}, nil
	}
	return userendpoint.RegisterResponse{}, nil
}

// encodeHTTPGenericRequest is a transport/http.EncodeRequestFunc that
// JSON-encodes any request to the request body. Primarily useful in a client.
func encodeHTTPGenericRequest(_ context.Context, r *http.Request, request interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return err
	}
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
	return json.NewEncoder(w).Encode(statusWrapper{Status: "success"})
}

type statusWrapper struct {
	Status string `json:"status"`
}
