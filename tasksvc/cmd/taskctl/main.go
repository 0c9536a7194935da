package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-kit/kit/log"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/hashicorp/consul/api"
	"github.com/ichigozero/gtdkit/tasker/tasksvc"
	taskclient "github.com/ichigozero/gtdkit/tasker/tasksvc/client"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/taskservice"
	"github.com/ichigozero/gtdkit/tasker/tasksvc/pkg/tasktransport"
	userclient "github.com/ichigozero/gtdkit/tasker/usersvc/client"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/userservice"
	"github.com/ichigozero/gtdkit/tasker/usersvc/pkg/usertransport"
)

func main() {
	fs := flag.NewFlagSet("taskctl", flag.ExitOnError)
	var (
		addr = fs.String(
			"addr",
			getEnv("TASKER_ADDR", "localhost:8080"),
			"tasker HTTP address",
		)
		consulAddr = fs.String(
			"consul.addr",
			getEnv("CONSUL_ADDR", ""),
			"Consul agent address; when set, servers are discovered instead of using -addr",
		)
		username = fs.String(
			"user",
			getEnv("TASKER_USER", ""),
			"username",
		)
		password = fs.String(
			"password",
			getEnv("TASKER_PASSWORD", ""),
			"password",
		)
		retryMax = fs.Int(
			"retry.max",
			getEnvAsInt("RETRY_MAX", 3),
			"per-request retries to different instances",
		)
		retryTimeout = fs.Duration(
			"retry.timeout",
			time.Duration(getEnvAsInt("RETRY_TIMEOUT", 500))*time.Millisecond,
			"per-request timeout, including retries",
		)
	)

	fs.Usage = usageFor(fs, os.Args[0]+" [flags] <register|add|ls|filter|show|edit|rm> [args]")
	fs.Parse(os.Args[1:])
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	logger := log.NewLogfmtLogger(os.Stderr)
	logger = log.With(logger, "caller", log.DefaultCaller)

	var (
		users userservice.Service
		tasks taskservice.Service
		err   error
	)
	if *consulAddr != "" {
		consulConfig := api.DefaultConfig()
		consulConfig.Address = *consulAddr
		var consulClient *api.Client
		consulClient, err = api.NewClient(consulConfig)
		if err != nil {
			fatal(err)
		}
		client := consulsd.NewClient(consulClient)
		users, err = userclient.New(client, logger, *retryMax, *retryTimeout)
		if err != nil {
			fatal(err)
		}
		tasks, err = taskclient.New(client, logger, *retryMax, *retryTimeout)
	} else {
		base := strings.TrimRight(*addr, "/")
		users, err = usertransport.NewHTTPClient(base+userclient.PathPrefix, logger)
		if err != nil {
			fatal(err)
		}
		tasks, err = tasktransport.NewHTTPClient(base+taskclient.PathPrefix, logger)
	}
	if err != nil {
		fatal(err)
	}

	c := tasksvc.Credentials{Username: *username, Password: *password}
	cmd := command{users: users, tasks: tasks, creds: c, out: os.Stdout}
	if err := cmd.run(context.Background(), fs.Arg(0), fs.Args()[1:]); err != nil {
		fatal(err)
	}
}

type command struct {
	users userservice.Service
	tasks taskservice.Service
	creds tasksvc.Credentials
	out   io.Writer
}

var errUsage = errors.New("usage")

func (c command) run(ctx context.Context, name string, args []string) error {
	switch name {
	case "register":
		if err := c.users.Register(ctx, c.creds.Username, c.creds.Password); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Registration successful.")
		return nil

	case "add":
		fs := flag.NewFlagSet("add", flag.ContinueOnError)
		var f tasksvc.Fields
		fs.StringVar(&f.Name, "name", "", "task name")
		fs.StringVar(&f.Priority, "priority", string(tasksvc.PriorityMedium), "High, Medium or Low")
		fs.StringVar(&f.DueDate, "due", "", "due date, YYYY-MM-DD")
		fs.StringVar(&f.Description, "desc", "", "description")
		if err := fs.Parse(args); err != nil {
			return err
		}
		t, err := c.tasks.AddTask(ctx, c.creds, f)
		if err != nil {
			return err
		}
		c.print([]tasksvc.Task{t})
		return nil

	case "ls":
		ts, err := c.tasks.Tasks(ctx, c.creds)
		if err != nil {
			return err
		}
		c.print(ts)
		return nil

	case "filter":
		fs := flag.NewFlagSet("filter", flag.ContinueOnError)
		priority := fs.String("priority", tasksvc.FilterAll, "All, High, Medium or Low")
		completed := fs.String("completed", tasksvc.FilterAll, "All, Completed or Pending")
		if err := fs.Parse(args); err != nil {
			return err
		}
		ts, err := c.tasks.FilterTasks(ctx, c.creds, *priority, *completed)
		if err != nil {
			return err
		}
		c.print(ts)
		return nil

	case "show":
		if len(args) != 1 {
			return fmt.Errorf("%w: show <id>", errUsage)
		}
		t, err := c.tasks.Task(ctx, c.creds, args[0])
		if err != nil {
			return err
		}
		c.print([]tasksvc.Task{t})
		return nil

	case "edit":
		if len(args) < 1 {
			return fmt.Errorf("%w: edit <id> [flags]", errUsage)
		}
		p, err := parsePatch(args[1:])
		if err != nil {
			return err
		}
		t, err := c.tasks.EditTask(ctx, c.creds, args[0], p)
		if err != nil {
			return err
		}
		c.print([]tasksvc.Task{t})
		return nil

	case "rm":
		if len(args) != 1 {
			return fmt.Errorf("%w: rm <id>", errUsage)
		}
		if err := c.tasks.RemoveTask(ctx, c.creds, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Task removed.")
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, name)
}

// parsePatch turns edit flags into a Patch. Only flags given on the command
// line end up in the patch.
func parsePatch(args []string) (tasksvc.Patch, error) {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	var (
		name     = fs.String("name", "", "task name")
		priority = fs.String("priority", "", "High, Medium or Low")
		due      = fs.String("due", "", "due date, YYYY-MM-DD")
		desc     = fs.String("desc", "", "description")
		done     = fs.Bool("done", false, "mark completed")
		pending  = fs.Bool("pending", false, "mark pending")
	)
	if err := fs.Parse(args); err != nil {
		return tasksvc.Patch{}, err
	}
	if *done && *pending {
		return tasksvc.Patch{}, fmt.Errorf("%w: -done and -pending are exclusive", errUsage)
	}

	var p tasksvc.Patch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			p.Name = name
		case "priority":
			p.Priority = priority
		case "due":
			p.DueDate = due
		case "desc":
			p.Description = desc
		case "done":
			p.Completed = done
		case "pending":
			completed := !*pending
			p.Completed = &completed
		}
	})
	return p, nil
}

func (c command) print(tasks []tasksvc.Task) {
	w := tabwriter.NewWriter(c.out, 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tPRIORITY\tDUE\tSTATUS\tDESCRIPTION\n")
	for _, t := range tasks {
		status := tasksvc.FilterPending
		if t.Completed {
			status = tasksvc.FilterCompleted
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Priority, t.DueDate, status, t.Description)
	}
	w.Flush()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "taskctl: %v\n", err)
	os.Exit(1)
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

func getEnvAsInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
