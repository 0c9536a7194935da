package client

import (
	"io"
	"strings"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/userendpoint"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/userservice"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/usertransport"
)

const (
	ServiceName = "tasker"
	PathPrefix  = "/user/v1"
)

// New returns a user endpoint set backed by Consul discovery. Only Register
// is served remotely; Authenticate fails with usertransport.ErrUnsupported.
func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) (userendpoint.Set, error) {
	var (
		tags        = []string{}
		passingOnly = true
		endpoints   = userendpoint.Set{}
		instancer   = consulsd.NewInstancer(apiclient, logger, ServiceName, tags, passingOnly)
	)
	{
		factory := factoryFor(userendpoint.MakeRegisterEndpoint, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.RegisterEndpoint = retry
	}
	{
		factory := factoryFor(userendpoint.MakeAuthenticateEndpoint, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.AuthenticateEndpoint = retry
	}

	return endpoints, nil
}

func factoryFor(makeEndpoint func(userservice.Service) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		service, err := usertransport.NewHTTPClient(strings.TrimRight(instance, "/")+PathPrefix, logger)
		if err != nil {
			return nil, nil, err
		}
		return makeEndpoint(service), nil, nil
	}
}
