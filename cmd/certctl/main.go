// Command certctl is the terminal front-end for the certificate platform.
// Each invocation performs one action; the session persists between runs.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"certgen/frontend/internal/api"
	"certgen/frontend/internal/config"
	"certgen/frontend/internal/session"
	"certgen/frontend/internal/views"
)

const usage = `usage: certctl [--api URL] [--json] [--yes] <command> [args]

commands:
  login --email E [--password P]       start a session
  logout                               end the session
  register --name N --email E [--password P] [--role R]
  whoami | dashboard                   show the current user and shortcuts
  certificates list|create|update|delete|export
  courses list|create|update|delete
  templates list|create|update|delete
  users list|update|delete
  verify CODE                          check a verification code
  ping [--register]                    check the backend is reachable
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env file ignored: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type app struct {
	cfg       config.Config
	in        *bufio.Reader
	out       io.Writer
	errOut    io.Writer
	logger    *slog.Logger
	store     *session.Store
	client    *api.Client
	asJSON    bool
	assumeYes bool
}

var errUsage = errors.New("usage")

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("certctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	apiURL := global.String("api", "", "backend base URL (overrides API_URL)")
	asJSON := global.Bool("json", false, "print JSON instead of tables")
	assumeYes := global.Bool("yes", false, "answer yes to confirmations")
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg := config.Load()
	if *apiURL != "" {
		cfg.APIURL = strings.TrimRight(*apiURL, "/")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "config invalid: %v\n", err)
		return 2
	}
	logger := config.NewLogger(cfg.LogLevel, stderr)

	storage, err := session.NewStorage(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "session storage: %v\n", err)
		return 1
	}
	store, err := session.Open(ctx, storage, session.Options{Logger: logger})
	if err != nil {
		_ = storage.Close()
		fmt.Fprintf(stderr, "session: %v\n", err)
		return 1
	}
	defer store.Close()

	client, err := api.New(api.Options{BaseURL: cfg.APIURL, Timeout: cfg.APITimeout, Tokens: store, Logger: logger})
	if err != nil {
		fmt.Fprintf(stderr, "config invalid: %v\n", err)
		return 2
	}

	a := &app{
		cfg:       cfg,
		in:        bufio.NewReader(stdin),
		out:       stdout,
		errOut:    stderr,
		logger:    logger,
		store:     store,
		client:    client,
		asJSON:    *asJSON,
		assumeYes: *assumeYes,
	}
	if err := a.dispatch(ctx, global.Arg(0), global.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, usage)
			return 2
		}
		if !isReported(err) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "register":
		return a.register(ctx, args)
	case "whoami", "dashboard":
		return a.dashboard()
	case "verify":
		return a.verify(ctx, args)
	case "ping":
		return a.ping(ctx, args)
	}

	var handler func(context.Context, []string) error
	switch command {
	case "certificates":
		handler = a.certificates
	case "courses":
		handler = a.courses
	case "templates":
		handler = a.templates
	case "users":
		handler = a.users
	default:
		return errUsage
	}
	if a.store.State() != session.Authenticated {
		fmt.Fprintln(a.errOut, "not logged in; run certctl login")
		return reported{errors.New("no session")}
	}
	return handler(ctx, args)
}

func (a *app) deps() views.Deps {
	return views.Deps{
		Client:    a.client,
		Session:   a.store,
		Notifier:  views.NotifierFunc(a.notify),
		Confirmer: views.ConfirmFunc(a.confirm),
		Logger:    a.logger,
	}
}

func (a *app) notify(level views.Level, message string) {
	fmt.Fprintf(a.errOut, "[%s] %s\n", level, message)
}

func (a *app) confirm(_ context.Context, prompt string) bool {
	if a.assumeYes {
		return true
	}
	fmt.Fprintf(a.errOut, "%s [y/N] ", prompt)
	line, _ := a.in.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (a *app) prompt(label string) string {
	fmt.Fprintf(a.errOut, "%s: ", label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

// reported marks an error the user has already been told about through a
// notification.
type reported struct{ err error }

func (r reported) Error() string { return r.err.Error() }
func (r reported) Unwrap() error { return r.err }

func isReported(err error) bool {
	var r reported
	return errors.As(err, &r)
}
