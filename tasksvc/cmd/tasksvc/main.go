package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/go-kit/kit/log"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/gorilla/mux"
	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/gtdkit/tasker/storage"
	storageconsul "github.com/ichigozero/gtdkit/tasker/storage/consul"
	storagegorm "github.com/ichigozero/gtdkit/tasker/storage/gorm"
	"github.com/ichigozero/gtdkit/tasker/storage/jsonfile"
	taskclient "github.com/ichigozero/gtdkit/tasker/tasksvc/client"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/inmem"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/taskservice"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/tasktransport"
	usersinmem "github.com/ichigozero/gtdkit/tasker/usersvc/inmem"
	userclient "github.com/ichigozero/gtdkit/tasker/usersvc/client"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/userendpoint"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/userservice"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/usertransport"
	"github.com/oklog/oklog/pkg/group"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twinj/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	fs := flag.NewFlagSet("tasksvc", flag.ExitOnError)
	var (
		httpAddr = fs.String(
			"http.addr",
			getEnv("HTTP_ADDR", ":8080"),
			"HTTP listen address",
		)
		storageKind = fs.String(
			"storage",
			getEnv("STORAGE", "file"),
			"storage backend: file, gorm or consul",
		)
		dataDir = fs.String(
			"data.dir",
			getEnv("DATA_DIR", "."),
			"directory of users.json and tasks.json, or of the sqlite database",
		)
		databaseURL = fs.String(
			"database.url",
			getEnv("DATABASE_URL", ""),
			"Postgres URL for the gorm backend; sqlite is used when empty",
		)
		consulAddr = fs.String(
			"consul.addr",
			getEnv("CONSUL_ADDR", ""),
			"Consul agent address",
		)
		consulPrefix = fs.String(
			"consul.prefix",
			getEnv("CONSUL_PREFIX", "tasker"),
			"Consul KV prefix for the consul backend",
		)
		consulRegister = fs.Bool(
			"consul.register",
			getEnvAsBool("CONSUL_REGISTER", false),
			"register the HTTP service in Consul",
		)
	)

	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")
	fs.Parse(os.Args[1:])

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}

	var consulClient *api.Client
	if *storageKind == "consul" || *consulRegister {
		consulConfig := api.DefaultConfig()
		if len(*consulAddr) > 0 {
			consulConfig.Address = *consulAddr
		}
		var err error
		consulClient, err = api.NewClient(consulConfig)
		if err != nil {
			logger.Log("err", err)
			os.Exit(1)
		}
	}

	var store storage.Store
	{
		var err error
		switch *storageKind {
		case "file":
			store, err = jsonfile.NewStore(*dataDir)
		case "gorm":
			var db *libgorm.DB
			config := &libgorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
			if *databaseURL != "" {
				db, err = libgorm.Open(postgres.Open(*databaseURL), config)
			} else {
				db, err = libgorm.Open(sqlite.Open(filepath.Join(*dataDir, "tasker.db")), config)
			}
			if err == nil {
				store, err = storagegorm.NewDocumentStore(db)
			}
		case "consul":
			store = storageconsul.NewClientStore(consulClient, *consulPrefix)
		default:
			err = fmt.Errorf("unknown storage backend %q", *storageKind)
		}
		if err != nil {
			logger.Log("storage", *storageKind, "err", err)
			os.Exit(1)
		}
	}

	fieldKeys := []string{"method"}

	var userService userservice.Service
	{
		users, err := usersinmem.NewUserRepository(store)
		if err != nil {
			logger.Log("during", "load users", "err", err)
			os.Exit(1)
		}
		userService = userservice.New(users, logger)
		userService = userservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "api",
				Subsystem: "user_service",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "api",
				Subsystem: "user_service",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, fieldKeys),
		)(userService)
	}
	userEndpoints := userendpoint.New(userService, logger)

	var taskService taskservice.Service
	{
		tasks, err := inmem.NewTaskRepository(store)
		if err != nil {
			logger.Log("during", "load tasks", "err", err)
			os.Exit(1)
		}
		taskService = taskservice.New(tasks, userEndpoints.AuthenticateEndpoint, logger)
		taskService = taskservice.InstrumentingMiddleware(
			kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
				Namespace: "api",
				Subsystem: "task_service",
				Name:      "request_count",
				Help:      "Number of requests received.",
			}, fieldKeys),
			kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
				Namespace: "api",
				Subsystem: "task_service",
				Name:      "request_latency_seconds",
				Help:      "Total duration of requests in seconds.",
			}, fieldKeys),
		)(taskService)
	}
	taskEndpoints := taskendpoint.New(taskService, logger)

	r := mux.NewRouter()
	{
		userHTTPHandler := usertransport.NewHTTPHandler(userEndpoints, logger)
		r.PathPrefix(userclient.PathPrefix).Handler(http.StripPrefix(userclient.PathPrefix, userHTTPHandler))

		taskHTTPHandler := tasktransport.NewHTTPHandler(taskEndpoints, logger)
		r.PathPrefix(taskclient.PathPrefix).Handler(http.StripPrefix(taskclient.PathPrefix, taskHTTPHandler))

		r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())
	}

	var registrar *consulsd.Registrar
	if *consulRegister {
		host, port, err := net.SplitHostPort(*httpAddr)
		if err != nil {
			logger.Log("err", err)
			os.Exit(1)
		}
		if host == "" {
			host = "localhost"
		}

		p, _ := strconv.Atoi(port)
		asr := &api.AgentServiceRegistration{
			ID:      uuid.NewV4().String(),
			Name:    taskclient.ServiceName,
			Address: host,
			Port:    p,
		}

		registrar = consulsd.NewRegistrar(consulsd.NewClient(consulClient), asr, logger)
		registrar.Register()
		defer registrar.Deregister()
	}

	var g group.Group
	{
		httpListener, err := net.Listen("tcp", *httpAddr)
		if err != nil {
			logger.Log("transport", "HTTP", "during", "Listen", "err", err)
			if registrar != nil {
				registrar.Deregister()
			}
			os.Exit(1)
		}
		g.Add(func() error {
			logger.Log("transport", "HTTP", "addr", *httpAddr, "storage", *storageKind)
			return http.Serve(httpListener, r)
		}, func(error) {
			httpListener.Close()
		})
	}
	{
		// This function just sits and waits for ctrl-C.
		cancelInterrupt := make(chan struct{})
		g.Add(func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-c:
				return fmt.Errorf("received signal %s", sig)
			case <-cancelInterrupt:
				return nil
			}
		}, func(error) {
			close(cancelInterrupt)
		})
	}
	logger.Log("exit", g.Run())
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	if v, err := strconv.ParseBool(value); err == nil {
		return v
	}
	return fallback
}
